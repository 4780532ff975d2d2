// Package lifecycle supervises the long-running loops (HTTP server, class
// monitor, transcript worker) under one cancellable context and a bounded
// shutdown grace period, replacing framework-level background task hooks
// with an explicit signal-driven cancel per spec.md §5 and §9.
package lifecycle

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lesson-pipeline/internal/logger"
)

// NotifyContext returns a context canceled on SIGINT/SIGTERM.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Supervisor runs a set of loops concurrently and waits for all of them to
// return after the context is canceled, capping the wait at grace.
type Supervisor struct {
	log   *logger.Logger
	grace time.Duration
}

func NewSupervisor(log *logger.Logger, grace time.Duration) *Supervisor {
	return &Supervisor{log: log.With("component", "Supervisor"), grace: grace}
}

// Run launches every fn in its own goroutine under ctx. It returns once ctx
// is canceled and either every fn has returned or the grace period elapses,
// whichever comes first — matching spec.md §5's "finish within a grace
// period or are abandoned."
func (s *Supervisor) Run(ctx context.Context, fns ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		f := fn
		g.Go(func() error { return f(gctx) })
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	<-gctx.Done()
	s.log.Info("shutdown signal received, waiting for loops to drain", "grace", s.grace)

	select {
	case err := <-done:
		return err
	case <-time.After(s.grace):
		s.log.Warn("shutdown grace period elapsed, abandoning in-flight work")
		return nil
	}
}
