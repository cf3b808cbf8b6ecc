// Command ffshm inspects and drives ffshm shared-memory segments.
//
// Usage:
//
//	ffshm <command> [flags] [args]
//
// Commands:
//
//	create   create (or reinitialize) a segment and print its environment
//	list     list registered variables
//	get      print the value of a variable
//	set      write a variable
//	wait     block until a variable is registered
//	rm       remove a segment
//	env      print FF_SHM_NAME and FF_SHM_SIZE for a session
//	dump     write a snapshot of a segment to a file
//	restore  load a snapshot into a segment
//	serve    create a segment, export metrics and destroy it on SIGINT/SIGTERM
//
// Every command accepts -name, -size, -backend, -dir, -header-size and
// -log-level. Without -name the segment is taken from FF_SHM_NAME.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/hupe1980/ffshm"
)

var errUsage = errors.New("usage")

type command struct {
	summary string
	run     func(ctx context.Context, env *cmdEnv, args []string) error
	flags   func(fs *flag.FlagSet, env *cmdEnv)
}

var commands = map[string]command{
	"create":  {"create (or reinitialize) a segment", runCreate, nil},
	"list":    {"list registered variables", runList, flagsList},
	"get":     {"print the value of a variable", runGet, nil},
	"set":     {"write a variable", runSet, flagsSet},
	"wait":    {"block until a variable is registered", runWait, flagsWait},
	"rm":      {"remove a segment", runRemove, nil},
	"env":     {"print the session environment", runEnv, flagsEnv},
	"dump":    {"write a snapshot to a file", runDump, flagsDump},
	"restore": {"load a snapshot into a segment", runRestore, nil},
	"serve":   {"host a segment until interrupted", runServe, flagsServe},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" || args[0] == "--help" {
		usage(stderr)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "ffshm: unknown command %q\n\n", name)
		usage(stderr)
		return 2
	}

	env := &cmdEnv{stdout: stdout, stderr: stderr}
	fs := flag.NewFlagSet("ffshm "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	env.register(fs)
	if cmd.flags != nil {
		cmd.flags(fs, env)
	}
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if err := cmd.run(ctx, env, fs.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "ffshm %s: %v\n", name, err)
			fs.Usage()
			return 2
		}
		fmt.Fprintf(stderr, "ffshm %s: %v\n", name, err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: ffshm <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-8s %s\n", n, commands[n].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'ffshm <command> -h' for command flags.")
}

// cmdEnv carries the flags shared by every command.
type cmdEnv struct {
	stdout, stderr io.Writer

	name       string
	size       int
	backend    string
	dir        string
	headerSize int
	logLevel   string

	// command specific
	asJSON      bool
	kind        string
	shape       string
	dtype       string
	timeout     time.Duration
	export      bool
	compression string
	metricsAddr string
}

func (e *cmdEnv) register(fs *flag.FlagSet) {
	fs.StringVar(&e.name, "name", "", "segment name (default $"+ffshm.EnvName+")")
	fs.IntVar(&e.size, "size", 0, "segment size in bytes (default $"+ffshm.EnvSize+" or 1 MiB)")
	fs.StringVar(&e.backend, "backend", "sysv", "shared memory backend: sysv, posix or anon")
	fs.StringVar(&e.dir, "dir", "", "directory for posix segments (default /dev/shm)")
	fs.IntVar(&e.headerSize, "header-size", ffshm.DefaultHeaderSize, "bytes reserved for the registry")
	fs.StringVar(&e.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
}

// config resolves the segment name and size from flags, then environment.
func (e *cmdEnv) config(requireName bool) (ffshm.Config, error) {
	cfg := ffshm.Config{Name: e.name, Size: e.size}
	if cfg.Name == "" {
		fromEnv, err := ffshm.ConfigFromEnv(nil)
		if err != nil {
			if requireName {
				return cfg, fmt.Errorf("%w: -name or $%s is required", errUsage, ffshm.EnvName)
			}
			return cfg, nil
		}
		cfg.Name = fromEnv.Name
		if cfg.Size == 0 {
			if _, ok := os.LookupEnv(ffshm.EnvSize); ok {
				cfg.Size = fromEnv.Size
			}
		}
	}
	return cfg, nil
}

func (e *cmdEnv) options() ([]ffshm.Option, error) {
	backend, err := ffshm.ParseBackend(e.backend)
	if err != nil {
		return nil, err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.logLevel)); err != nil {
		return nil, fmt.Errorf("%w: -log-level %q", errUsage, e.logLevel)
	}
	logger := ffshm.NewLogger(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: level}))
	return []ffshm.Option{
		ffshm.WithBackend(backend),
		ffshm.WithDir(e.dir),
		ffshm.WithHeaderSize(e.headerSize),
		ffshm.WithLogger(logger),
	}, nil
}

// attach opens the configured segment.
func (e *cmdEnv) attach(ctx context.Context, extra ...ffshm.Option) (*ffshm.Manager, error) {
	cfg, err := e.config(true)
	if err != nil {
		return nil, err
	}
	opts, err := e.options()
	if err != nil {
		return nil, err
	}
	return ffshm.Attach(ctx, cfg, append(opts, extra...)...)
}

func (e *cmdEnv) printEnv(cfg ffshm.Config) {
	prefix := ""
	if e.export {
		prefix = "export "
	}
	for _, kv := range cfg.Environ() {
		fmt.Fprintln(e.stdout, prefix+kv)
	}
}

func oneArg(args []string, what string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("%w: expected exactly one %s", errUsage, what)
	}
	return args[0], nil
}
