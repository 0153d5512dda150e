package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/taxjar/internal/app"
	taxjarhttp "github.com/odyssey-erp/taxjar/internal/taxjar/http"
	"github.com/odyssey-erp/taxjar/jobs"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var inlineRefresh bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tax API",
		Long:  "Serve stored rates, categories and live address/order taxes over HTTP. POST /api/taxes/refresh queues a refresh for the worker unless --inline-refresh is set.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.InTestMode() {
				cmd.Println("test mode detected, skipping server startup")
				return nil
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			container, err := app.Build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer container.Close()

			var enqueuer taxjarhttp.Enqueuer
			if !inlineRefresh {
				client, err := jobs.NewClient(container.RedisOpts())
				if err != nil {
					return err
				}
				defer func() {
					if err := client.Close(); err != nil {
						logger.Warn("jobs client close", slog.Any("error", err))
					}
				}()
				enqueuer = client
			}

			inspector := asynq.NewInspector(container.RedisOpts())
			defer func() {
				if err := inspector.Close(); err != nil {
					logger.Warn("inspector close", slog.Any("error", err))
				}
			}()

			router := app.NewRouter(app.RouterParams{
				Logger:     logger,
				Config:     cfg,
				TaxHandler: taxjarhttp.NewHandler(logger, container.Service, enqueuer),
				JobHandler: jobs.NewHandler(inspector, logger),
				Metrics:    container.Metrics,
				Ready:      container.Ready,
			})
			return serveHTTP(ctx, stop, logger, &http.Server{
				Addr:              cfg.AppAddr,
				Handler:           router,
				ReadTimeout:       cfg.AppReadTimeout,
				ReadHeaderTimeout: 5 * time.Second,
				WriteTimeout:      cfg.AppWriteTimeout,
			})
		},
	}
	cmd.Flags().BoolVar(&inlineRefresh, "inline-refresh", false, "Run POST /api/taxes/refresh in the request instead of queueing it")
	return cmd
}

// serveHTTP runs server until ctx is cancelled, then drains connections.
func serveHTTP(ctx context.Context, stop context.CancelFunc, logger *slog.Logger, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return err
	}
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
