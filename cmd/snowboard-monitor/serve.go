package main

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maltedev/snowboard-monitor/internal/api"
	"github.com/maltedev/snowboard-monitor/internal/monitor"
)

var serveNoScrape *bool

func init() {
	serveNoScrape = serveCmd.Flags().Bool("no-scrape", false, "Only serve the stored catalog, never scrape.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--no-scrape]",
	Short: "Scrapes on SCRAPE_INTERVAL and serves the dashboard, feed and API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		var m *monitor.Monitor
		if !*serveNoScrape {
			if m, err = a.monitor(cmd.Context()); err != nil {
				return err
			}
		}

		g, ctx := errgroup.WithContext(cmd.Context())

		server := &http.Server{
			Addr: net.JoinHostPort(a.cfg.Server.Host, a.cfg.Server.Port),
			Handler: api.NewRouter(a.store, api.RouterConfig{
				AllowedOrigins: a.cfg.Server.AllowedOrigins,
				ImagesDir:      a.cfg.Output.ImagesDir,
				Metrics:        a.metrics.Handler(),
			}, a.logger),
			ReadTimeout:  a.cfg.Server.ReadTimeout,
			WriteTimeout: a.cfg.Server.WriteTimeout,
		}

		g.Go(func() error {
			a.logger.Info("starting server", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			a.logger.Info("shutting down server")
			return server.Shutdown(shutdownCtx)
		})

		if m != nil {
			g.Go(func() error {
				if err := m.Serve(ctx, a.cfg.Server.ScrapeInterval); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		}

		return g.Wait()
	},
}
