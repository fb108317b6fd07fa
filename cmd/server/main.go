package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"eucookie/internal/audit"
	"eucookie/internal/pageload/handler"
	"eucookie/internal/pageload/metrics"
	"eucookie/internal/pageload/service"
	"eucookie/internal/pageload/store"
	"eucookie/internal/pageload/workers/cleanup"
	"eucookie/internal/platform/config"
	"eucookie/internal/platform/health"
	"eucookie/internal/platform/logger"
	"eucookie/internal/settings"
	"eucookie/pkg/platform/middleware/metadata"
	"eucookie/pkg/platform/middleware/request"
	"eucookie/pkg/platform/tracer"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	log.Info("initializing eucookie",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"settings_file", cfg.SettingsFile,
		"admin_routes", cfg.AdminToken != "",
	)

	trustedProxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse trusted proxies: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	tr := tracer.NewOTel()

	source := settings.NewSource(cfg.SettingsFile,
		settings.WithLogger(log),
		settings.WithTracer(tr),
	)
	if _, err := source.Reload(ctx); err != nil {
		return fmt.Errorf("load site settings: %w", err)
	}

	var auditOpts []audit.PublisherOption
	auditOpts = append(auditOpts, audit.WithPublisherLogger(log))
	if cfg.AuditBuffer > 0 {
		auditOpts = append(auditOpts, audit.WithAsyncBuffer(cfg.AuditBuffer))
	}
	auditor := audit.NewPublisher(audit.NewInMemoryStore(), auditOpts...)
	defer auditor.Close()

	pageMetrics := metrics.New(reg)
	pages := store.New()
	svc := service.New(pages, source, auditor,
		service.WithMetrics(pageMetrics),
		service.WithLogger(log),
		service.WithTracer(tr),
	)

	janitor, err := cleanup.New(pages, cfg.PageTTL,
		cleanup.WithCleanupInterval(cfg.CleanupEvery),
		cleanup.WithCleanupLogger(log),
		cleanup.WithCleanupMetrics(pageMetrics),
		cleanup.WithCleanupEvents(auditor),
	)
	if err != nil {
		return fmt.Errorf("create cleanup worker: %w", err)
	}

	healthHandler := health.New(cfg.Environment)
	healthHandler.RegisterCheck("settings", settingsCheck(source))

	router := newRouter(routerDeps{
		cfg:            cfg,
		logger:         log,
		registry:       reg,
		trustedProxies: trustedProxies,
		pages:          handler.New(svc, log),
		health:         healthHandler,
		latency:        request.NewMetrics(reg),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := janitor.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("cleanup worker: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// settingsCheck fails readiness when a settings file is configured but no
// revision is loaded.
func settingsCheck(source *settings.Source) health.CheckFunc {
	return func(context.Context) error {
		if source.Path() != "" && source.Current() == nil {
			return errors.New("site settings not loaded")
		}
		return nil
	}
}
