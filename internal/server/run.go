// internal/server/run.go
//
// Lifecycle: serve until the context is cancelled, then drain.
//
// Workflow
// --------
//   1. ListenAndServe runs in an errgroup goroutine.
//   2. Background workers (cache invalidation listener, …) join the same
//      group through Run's extra funcs.
//   3. ctx cancelled (SIGINT/SIGTERM) → Shutdown with ShutdownTimeout, and
//      every worker sees the cancelled group context.

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds the graceful drain.
const ShutdownTimeout = 15 * time.Second

// Run serves srv and workers until ctx is done or any of them fails.
func Run(ctx context.Context, srv *http.Server, workers ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		zap.L().Info("http server shutting down")
		return srv.Shutdown(sctx)
	})

	for _, w := range workers {
		g.Go(func() error { return w(gctx) })
	}
	return g.Wait()
}
