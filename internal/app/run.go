package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vk/vegapanel/internal/ctxlog"
	"github.com/vk/vegapanel/internal/ingest"
	"golang.org/x/sync/errgroup"
)

// Run serves the API, the health check and the NATS ingest until ctx is
// cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.Close()

	var sub *ingest.Subscriber
	if url := a.model.Ingest.URL; url != "" {
		var err error
		if sub, err = ingest.Connect(url, a.model.Ingest.Prefix, a); err != nil {
			return err
		}
	} else {
		a.logger.Debug("Ingest disabled: no NATS url.")
	}

	g, ctx := errgroup.WithContext(ctx)
	a.httpServer = &http.Server{Addr: a.model.Server.Address, Handler: a.Handler()}
	g.Go(func() error {
		a.logger.Info("🚀 Panel server starting.", "address", a.model.Server.Address, "panels", len(a.Panels()))
		if err := serve(ctx, a.httpServer); err != nil {
			return fmt.Errorf("panel server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return a.serveHealthcheck(ctx) })

	if sub != nil {
		g.Go(func() error { return sub.Run(ctx) })
	}

	err := g.Wait()
	a.logger.Info("🏁 Panel server stopped.")
	return err
}
