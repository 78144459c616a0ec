package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-relay/config"
	"github.com/marcelsud/webhook-relay/failure"
	"github.com/marcelsud/webhook-relay/internal/http/chi"
	"github.com/marcelsud/webhook-relay/internal/storage"
	"github.com/marcelsud/webhook-relay/metrics"
	"github.com/marcelsud/webhook-relay/routes"
	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/rs/zerolog"
)

const TIMEOUT = 30 * time.Second

/* Wiring only: config, store, router, executor, HTTP listeners
 * Imports go one way, down: cmd -> http -> webhook/routes -> failure backends
 */

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}

	logger := httplog.NewLogger("webhook-relay", httplog.Options{
		JSON:     true,
		LogLevel: cfg.Level().String(),
	})

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	repo, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("opening failure store")
		return
	}
	defer repo.Close(context.Background())
	failures := failure.NewService(repo)

	loader := routes.NewLoader(routes.Defaults{Mode: cfg.Mode(), Policy: cfg.ResponsePolicy()})
	if err := loader.Load(cfg.SourcesFile); err != nil {
		// every source still works with the defaults
		logger.Warn().Err(err).Str("file", cfg.SourcesFile).Msg("no source policies loaded")
	}
	router := routes.NewRouter(loader, cfg)

	exporter, err := metrics.NewOTelExporter(metrics.NewStoreCollector(repo))
	if err != nil {
		logger.Error().Err(err).Msg("creating metrics exporter")
		return
	}
	defer exporter.Shutdown(context.Background())

	client := webhook.NewClient(
		webhook.WithTimeout(cfg.OutboundTimeout),
		webhook.WithMaxRedirects(cfg.OutboundMaxRedirects),
	)
	executor := webhook.NewExecutor(client, failures,
		webhook.WithLogger(logger),
		webhook.WithObserver(exporter),
	)

	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.OutboundTimeout + 10*time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      chi.Handlers(ctx, logger, router, executor, failures),
	}
	metricsSrv := &http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Addr:         ":" + cfg.MetricsPort,
		Handler:      exporter.ServeHTTP(),
	}

	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics listener")
		}
	}()

	errShutdown := make(chan error, 1)
	go shutdown(ctx, logger, executor, errShutdown, srv, metricsSrv)

	logger.Info().
		Str("port", cfg.Port).
		Str("metrics_port", cfg.MetricsPort).
		Str("storage", cfg.StorageDriver).
		Int("sources", len(loader.List())).
		Msg("listening")

	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("api listener")
		return
	}
	if err := <-errShutdown; err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}

// shutdown stops the listeners, then gives detached forwards the rest of the timeout
func shutdown(ctxShutdown context.Context, logger zerolog.Logger, executor *webhook.Executor, errShutdown chan error, servers ...*http.Server) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	var errs []error
	for _, server := range servers {
		if err := server.Shutdown(ctxTimeout); err != nil {
			errs = append(errs, fmt.Errorf("forcing closing the server: %w", err))
		}
	}
	if err := executor.Drain(ctxTimeout); err != nil {
		errs = append(errs, err)
	}

	logger.Info().Msg("shutting down server")
	errShutdown <- errors.Join(errs...)
}
