package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpx "github.com/dropDatabas3/segmentation/internal/http"
	"github.com/dropDatabas3/segmentation/internal/observability/logger"
)

func newServeCmd(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta /healthz, /readyz y /metrics hasta SIGINT/SIGTERM",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Storage.Migrate {
				if err := runMigrations(ctx, a); err != nil {
					return err
				}
			}

			mcfg := httpx.MetricsConfig{}
			if p, ok := a.conn.(interface{ Pool() *pgxpool.Pool }); ok {
				mcfg.Pool = p.Pool
			}
			metricsHandler, err := httpx.RegisterMetrics(mcfg)
			if err != nil {
				return err
			}

			router := httpx.NewOpsRouter(httpx.OpsConfig{
				Metrics: metricsHandler,
				Checks: map[string]httpx.Checker{
					"store": a.conn.Ping,
					"cache": a.cache.Ping,
				},
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return httpx.Serve(gctx, a.cfg.Server.Addr, router)
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.L().Info("shutting down")
				return nil
			})
			return g.Wait()
		},
	}
}

