package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-productoptions/pkg/coordinator"
	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/pricing"
	"github.com/goliatone/go-productoptions/pkg/transport"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the authoritative HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides the config)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	store, err := a.catalog()
	if err != nil {
		return err
	}
	ectx, err := a.context(model.RoleAuthoritative)
	if err != nil {
		return err
	}
	authority := coordinator.NewLocalAuthority(store, ectx,
		coordinator.WithPricingOptions(pricing.WithPriceDecimals(a.cfg.Store.PriceDecimals)),
		coordinator.WithAuthorityLogger(a.logger.With("component", "authority")),
	)

	gin.SetMode(gin.ReleaseMode)
	srv, err := transport.NewServer(ctx, authority,
		transport.WithLogger(a.logger.With("component", "transport")),
		transport.WithRateLimit(a.cfg.Server.RateLimit.RPS, a.cfg.Server.RateLimit.Burst),
	)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", a.cfg.Server.Addr, "tax_conflict", ectx.TaxConflict)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
