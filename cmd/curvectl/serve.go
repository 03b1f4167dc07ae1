package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchlab/internal/api"
)

const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve curve listings, quotes, metrics and a live event stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, done, err := open(cmd)
			if err != nil {
				return err
			}
			defer done()

			srv := api.NewServer(s.Store, s.Bus, s.Registry, s.Logger, api.DefaultStreamConfig())
			defer srv.Close()

			servers := []*http.Server{{
				Addr:              s.Config.ListenAddr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}}
			if s.Config.MetricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("GET /metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
				servers = append(servers, &http.Server{
					Addr:              s.Config.MetricsAddr,
					Handler:           mux,
					ReadHeaderTimeout: 5 * time.Second,
				})
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			for _, hs := range servers {
				hs := hs
				g.Go(func() error {
					s.Logger.Info("Listening", zap.String("addr", hs.Addr))
					if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
			}
			g.Go(func() error {
				<-ctx.Done()
				// End websocket streams first; Shutdown does not wait for hijacked connections.
				srv.Close()

				sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				var errs []error
				for _, hs := range servers {
					errs = append(errs, hs.Shutdown(sctx))
				}
				s.Logger.Info("Server stopped")
				return errors.Join(errs...)
			})
			return g.Wait()
		},
	}
	cmd.Flags().String("listen", "", "API listen address")
	cmd.Flags().String("metrics-addr", "", "separate Prometheus listen address")
	return cmd
}
