package ffshm

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Migrate copies every registered variable of src into dst and returns the
// number copied. It is the way to grow a session: create a larger segment,
// migrate, then destroy the old one. Superseded slots in src are not
// carried over, so dst starts compacted.
//
// Values are read from src concurrently and written to dst in name order.
// A failure leaves dst with the variables written so far.
func Migrate(ctx context.Context, dst, src *Manager) (int, error) {
	if dst == nil || src == nil || dst == src {
		return 0, fmt.Errorf("%w: migrate needs two distinct managers", ErrInvalidArgument)
	}
	vars, err := src.List()
	if err != nil {
		return 0, err
	}

	values := make([]Value, len(vars))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, d := range vars {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := src.Read(d.Name)
			if err != nil {
				return fmt.Errorf("migrate %q: %w", d.Name, err)
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	for i, d := range vars {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := dst.Write(ctx, d.Name, values[i]); err != nil {
			return i, fmt.Errorf("migrate %q: %w", d.Name, err)
		}
	}
	return len(vars), nil
}
