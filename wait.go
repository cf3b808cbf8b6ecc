package ffshm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Wait polls every poll interval until name is registered. It returns
// ErrTimeout once timeout elapses, or ctx.Err() if ctx ends first. A
// timeout <= 0 checks exactly once. No lock is held between checks.
func (m *Manager) Wait(ctx context.Context, name string, timeout time.Duration) error {
	start := time.Now()
	err := poll(ctx, timeout, m.opts.pollInterval, func() (bool, error) {
		return m.Exists(name)
	})
	elapsed := time.Since(start)
	m.opts.metricsCollector.RecordWait(elapsed, err)
	m.log.LogWait(ctx, name, elapsed, err)
	return err
}

// poll calls check until it reports done, fails, or the deadline passes.
// A final check runs at the deadline itself.
func poll(ctx context.Context, timeout, interval time.Duration, check func() (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if done, err := check(); err != nil || done {
		return err
	}
	if timeout <= 0 {
		return ErrTimeout
	}

	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	lim := rate.NewLimiter(rate.Every(interval), 1)
	lim.Allow() // spend the burst token; the first check already ran

	for {
		if err := lim.Wait(wctx); err != nil {
			// Wait gives up early when the next token lies past the deadline.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			<-wctx.Done()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if done, err := check(); err != nil || done {
				return err
			}
			return ErrTimeout
		}
		if done, err := check(); err != nil || done {
			return err
		}
	}
}
