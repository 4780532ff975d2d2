package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lesson-pipeline/internal/logger"
)

// httpServer wraps http.Server so it can be handed to
// lifecycle.Supervisor.Run alongside the monitor/worker loops in a combined
// deployment, and stopped via ctx the same way they are.
type httpServer struct {
	router *gin.Engine
	addr   string
	log    *logger.Logger
}

func (s *httpServer) run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
