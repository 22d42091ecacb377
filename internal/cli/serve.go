package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qms/clinic-queue/internal/httpapi"
	"qms/clinic-queue/internal/telemetry"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

// ServeCmd returns the serve command
func ServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, *configPath, os.Stderr)
			if err != nil {
				return err
			}
			defer a.close()

			shutdownTracing := telemetry.Setup(ctx, telemetry.Options{
				ServiceName: "clinic-queue",
				Version:     Version,
				Endpoint:    a.cfg.OTelEndpoint,
				Insecure:    a.cfg.OTelInsecure,
				SampleRatio: a.cfg.OTelSampleRatio,
			}, a.logger)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(shutdownCtx); err != nil {
					a.logger.WithError(err).Warn("otel shutdown error")
				}
			}()

			handler := httpapi.NewHandler(a.service, a.store, httpapi.Options{
				SessionTTL: a.cfg.SessionTTL,
				Events:     a.hub,
				RateLimit: httpapi.RateLimitConfig{
					PerMinute: a.cfg.RateLimitPerMinute,
					Burst:     a.cfg.RateLimitBurst,
				},
			})
			server := &http.Server{
				Addr:         ":" + a.cfg.Port,
				Handler:      otelhttp.NewHandler(handler.Handler(), "clinic-queue"),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.logger.WithFields(logrus.Fields{
					"addr":   server.Addr,
					"store":  a.cfg.StoreDriver,
					"tz":     a.service.Location().String(),
					"events": a.redis != nil,
				}).Info("clinic-queue listening")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
				defer cancel()
				a.logger.Info("shutting down")
				return server.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}
