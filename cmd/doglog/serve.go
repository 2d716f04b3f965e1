package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"doglog/internal/adapters/httpapi"
	"doglog/internal/auth"
	"doglog/internal/blob"
	"doglog/internal/cache"
	"doglog/internal/config"
	"doglog/internal/core"
	"doglog/internal/logging"
	"doglog/internal/metrics"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts.cfg, opts.logger)
		},
	}
}

// app is the wired server and the resources it must release.
type app struct {
	handler http.Handler
	closers []io.Closer
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// newApp builds every dependency named by cfg.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		_ = a.Close()
		return nil, err
	}
	log := logging.NewAdapter(logger)

	store, err := core.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return fail(fmt.Errorf("open storage: %w", err))
	}
	a.closers = append(a.closers, store)

	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return fail(fmt.Errorf("open blob store: %w", err))
	}

	listCache, err := cache.New(cfg.Cache)
	if err != nil {
		return fail(fmt.Errorf("open cache: %w", err))
	}
	a.closers = append(a.closers, listCache)

	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		return fail(fmt.Errorf("auth: %w", err))
	}

	m := metrics.New(true)
	svcOpts := []core.Option{
		core.WithLogger(log),
		core.WithAuditRecorder(core.NewLogAuditRecorder(log)),
		core.WithMetricsRecorder(m),
		core.WithBlobStore(blobs),
		core.WithCache(listCache),
		core.WithMaxPhotoBytes(cfg.Photos.MaxBytes),
	}
	if cfg.Log.TracePath != "" {
		f, err := os.OpenFile(cfg.Log.TracePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return fail(fmt.Errorf("open trace file: %w", err))
		}
		a.closers = append(a.closers, f)
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(f)))
	}
	svc := core.NewService(store, svcOpts...)

	server := httpapi.NewServer(svc, verifier,
		httpapi.WithLogger(log),
		httpapi.WithFeatures(cfg.Features),
		httpapi.WithMetrics(m),
		httpapi.WithRateLimit(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst),
		httpapi.WithPhotoURLExpiry(cfg.Photos.URLExpiry),
	)
	a.handler = server.Handler()
	logger.Info("dependencies ready",
		zap.String("storage", string(store.Driver())),
		zap.String("blobs", string(blobs.Driver())),
		zap.String("cache", cfg.Cache.Driver),
		zap.String("auth", cfg.Auth.Driver),
		zap.Any("features", cfg.Features.Map()),
	)
	return a, nil
}

// serve runs the API until ctx is canceled, then drains in-flight requests.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close resources", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           a.handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr), zap.String("version", version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.HTTP.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
