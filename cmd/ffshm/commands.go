package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hupe1980/ffshm"
	"github.com/hupe1980/ffshm/promcollector"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func runCreate(ctx context.Context, env *cmdEnv, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: create takes no arguments", errUsage)
	}
	cfg, err := env.config(false)
	if err != nil {
		return err
	}
	if cfg.Name == "" {
		cfg.Name = ffshm.NewSessionName()
	}
	opts, err := env.options()
	if err != nil {
		return err
	}
	m, err := ffshm.Create(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	env.printEnv(m.Config())
	return m.Detach()
}

func flagsList(fs *flag.FlagSet, env *cmdEnv) {
	fs.BoolVar(&env.asJSON, "json", false, "print descriptors and stats as JSON")
}

type listOutput struct {
	Stats     ffshm.Stats        `json:"stats"`
	Variables []ffshm.Descriptor `json:"variables"`
}

func runList(ctx context.Context, env *cmdEnv, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: list takes no arguments", errUsage)
	}
	m, err := env.attach(ctx)
	if err != nil {
		return err
	}
	defer m.Detach()

	vars, err := m.List()
	if err != nil {
		return err
	}
	stats, err := m.Stats()
	if err != nil {
		return err
	}

	if env.asJSON {
		enc := json.NewEncoder(env.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(listOutput{Stats: stats, Variables: vars})
	}

	tw := tabwriter.NewWriter(env.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tOFFSET\tSIZE\tUPDATED")
	for _, d := range vars {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", d.Name, d.Kind, d.Offset, d.Size, d.UpdateTime.Format(time.RFC3339Nano))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(env.stdout, "\n%d variables, %d of %d bytes used, %d free, %d orphaned\n",
		stats.Variables, stats.HighWater, stats.Size, stats.FreeBytes, stats.Orphaned)
	return nil
}

type arrayOutput struct {
	DType string `json:"dtype"`
	Shape []int  `json:"shape"`
	Data  any    `json:"data"`
}

func runGet(ctx context.Context, env *cmdEnv, args []string) error {
	name, err := oneArg(args, "variable name")
	if err != nil {
		return err
	}
	m, err := env.attach(ctx)
	if err != nil {
		return err
	}
	defer m.Detach()

	v, err := m.Read(name)
	if err != nil {
		return err
	}
	return printValue(env, v)
}

func printValue(env *cmdEnv, v ffshm.Value) error {
	switch v.Kind() {
	case ffshm.KindInt:
		i, _ := v.Int()
		fmt.Fprintln(env.stdout, i)
	case ffshm.KindDouble:
		f, _ := v.Double()
		fmt.Fprintln(env.stdout, strconv.FormatFloat(f, 'g', -1, 64))
	case ffshm.KindString:
		s, _ := v.Text()
		fmt.Fprintln(env.stdout, s)
	case ffshm.KindArray:
		a, _ := v.Array()
		out := arrayOutput{DType: a.DType().String(), Shape: a.Shape()}
		if a.DType() == ffshm.DTypeInt32 {
			out.Data = a.Int32s()
		} else {
			out.Data = a.Float64s()
		}
		return json.NewEncoder(env.stdout).Encode(out)
	default:
		return fmt.Errorf("unexpected value %s", v)
	}
	return nil
}

func flagsSet(fs *flag.FlagSet, env *cmdEnv) {
	fs.StringVar(&env.kind, "type", "double", "value type: int, double, string or array")
	fs.StringVar(&env.dtype, "dtype", "float64", "array element type: int32 or float64")
	fs.StringVar(&env.shape, "shape", "", "array shape, comma separated (default: a vector)")
}

func runSet(ctx context.Context, env *cmdEnv, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: expected a variable name and a value", errUsage)
	}
	v, err := parseValue(env, args[1])
	if err != nil {
		return err
	}
	m, err := env.attach(ctx)
	if err != nil {
		return err
	}
	defer m.Detach()
	return m.Write(ctx, args[0], v)
}

// parseValue converts text into a Value of the kind selected by -type.
// Arrays are comma separated elements, or a JSON list.
func parseValue(env *cmdEnv, text string) (ffshm.Value, error) {
	kind, err := ffshm.ParseKind(env.kind)
	if err != nil {
		return ffshm.Value{}, fmt.Errorf("%w: -type %q", errUsage, env.kind)
	}
	switch kind {
	case ffshm.KindInt:
		i, err := strconv.ParseInt(strings.TrimSpace(text), 10, 32)
		if err != nil {
			return ffshm.Value{}, fmt.Errorf("%w: %q is not an int32", ffshm.ErrInvalidArgument, text)
		}
		return ffshm.IntValue(int32(i)), nil
	case ffshm.KindDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return ffshm.Value{}, fmt.Errorf("%w: %q is not a number", ffshm.ErrInvalidArgument, text)
		}
		return ffshm.DoubleValue(f), nil
	case ffshm.KindString:
		return ffshm.StringValue(text), nil
	default:
		a, err := parseArray(text, env.dtype, env.shape)
		if err != nil {
			return ffshm.Value{}, err
		}
		return ffshm.ArrayValue(a), nil
	}
}

func parseArray(text, dtype, shapeText string) (*ffshm.Array, error) {
	var elems []float64
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &elems); err != nil {
			return nil, fmt.Errorf("%w: array %q: %w", ffshm.ErrInvalidArgument, text, err)
		}
	} else if trimmed != "" {
		for _, field := range strings.Split(trimmed, ",") {
			f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: array element %q", ffshm.ErrInvalidArgument, field)
			}
			elems = append(elems, f)
		}
	}

	shape := []int{len(elems)}
	if shapeText != "" {
		shape = shape[:0]
		for _, field := range strings.Split(shapeText, ",") {
			d, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil || d < 0 {
				return nil, fmt.Errorf("%w: shape %q", ffshm.ErrInvalidArgument, shapeText)
			}
			shape = append(shape, d)
		}
	}

	switch dtype {
	case "float64", "double":
		return ffshm.NewFloat64Array(shape, elems)
	case "int32", "int":
		ints := make([]int32, len(elems))
		for i, f := range elems {
			if f != float64(int32(f)) {
				return nil, fmt.Errorf("%w: %g is not an int32", ffshm.ErrInvalidArgument, f)
			}
			ints[i] = int32(f)
		}
		return ffshm.NewInt32Array(shape, ints)
	default:
		return nil, fmt.Errorf("%w: -dtype %q", errUsage, dtype)
	}
}

func flagsWait(fs *flag.FlagSet, env *cmdEnv) {
	fs.DurationVar(&env.timeout, "timeout", 10*time.Second, "give up after this long")
}

func runWait(ctx context.Context, env *cmdEnv, args []string) error {
	name, err := oneArg(args, "variable name")
	if err != nil {
		return err
	}
	m, err := env.attach(ctx)
	if err != nil {
		return err
	}
	defer m.Detach()
	return m.Wait(ctx, name, env.timeout)
}

func runRemove(ctx context.Context, env *cmdEnv, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: rm takes no arguments", errUsage)
	}
	cfg, err := env.config(true)
	if err != nil {
		return err
	}
	opts, err := env.options()
	if err != nil {
		return err
	}
	return ffshm.Remove(cfg, opts...)
}

func flagsEnv(fs *flag.FlagSet, env *cmdEnv) {
	fs.BoolVar(&env.export, "export", false, "prefix every line with export")
}

func runEnv(_ context.Context, env *cmdEnv, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: env takes no arguments", errUsage)
	}
	cfg, err := env.config(false)
	if err != nil {
		return err
	}
	if cfg.Name == "" {
		cfg.Name = ffshm.NewSessionName()
	}
	if cfg.Size == 0 {
		cfg.Size = ffshm.DefaultSize
	}
	env.printEnv(cfg)
	return nil
}

func flagsDump(fs *flag.FlagSet, env *cmdEnv) {
	fs.StringVar(&env.compression, "compression", "zstd", "payload compression: none, lz4 or zstd")
}

func runDump(ctx context.Context, env *cmdEnv, args []string) error {
	path, err := oneArg(args, "output file")
	if err != nil {
		return err
	}
	c, err := ffshm.ParseCompression(env.compression)
	if err != nil {
		return err
	}
	m, err := env.attach(ctx)
	if err != nil {
		return err
	}
	defer m.Detach()
	return m.DumpFile(path, c)
}

func runRestore(ctx context.Context, env *cmdEnv, args []string) error {
	path, err := oneArg(args, "snapshot file")
	if err != nil {
		return err
	}
	m, err := env.attach(ctx)
	if err != nil {
		return err
	}
	defer m.Detach()
	return m.RestoreFile(ctx, path)
}

func flagsServe(fs *flag.FlagSet, env *cmdEnv) {
	fs.StringVar(&env.metricsAddr, "metrics-addr", ":2112", "listen address for /metrics (empty disables)")
	fs.BoolVar(&env.export, "export", false, "prefix environment lines with export")
}

// runServe creates a segment, prints its environment and keeps it alive
// until ctx ends. The segment is destroyed on the way out.
func runServe(ctx context.Context, env *cmdEnv, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: serve takes no arguments", errUsage)
	}
	cfg, err := env.config(false)
	if err != nil {
		return err
	}
	if cfg.Name == "" {
		cfg.Name = ffshm.NewSessionName()
	}
	opts, err := env.options()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mc, err := promcollector.New(reg, cfg.Name)
	if err != nil {
		return err
	}

	m, err := ffshm.Create(ctx, cfg, append(opts, ffshm.WithMetricsCollector(mc))...)
	if err != nil {
		return err
	}
	defer m.Destroy()
	env.printEnv(m.Config())

	var srv *http.Server
	if env.metricsAddr != "" {
		ln, err := net.Listen("tcp", env.metricsAddr)
		if err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		fmt.Fprintf(env.stderr, "metrics available at http://%s/metrics\n", ln.Addr())
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(env.stderr, "metrics server: %v\n", err)
			}
		}()
	}

	<-ctx.Done()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
