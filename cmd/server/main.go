package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"comment-overlay/internal/overlay"
	"comment-overlay/internal/platform/config"
	"comment-overlay/internal/platform/logger"
	"comment-overlay/internal/platform/metrics"
	"comment-overlay/internal/render"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	metricsPath     = "/metrics"
)

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	log := logger.New(logLevel, logFormat)
	cfg, err := config.LoadOverlay()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	met := metrics.New()

	repo := overlay.NewInMemorySessionRepository()
	svc := overlay.NewService(repo, overlay.Options{
		MatchWindow:     cfg.MatchWindow,
		SeekPolicy:      overlay.SeekPolicy(cfg.SeekPolicy),
		CatchUpLookback: cfg.CatchUpLookback,
		Allocator:       overlay.AllocatorKind(cfg.Allocator),
		LaneCount:       cfg.LaneCount,
		Viewport:        overlay.Viewport{Width: cfg.ContainerWidth, Height: cfg.ContainerHeight},
		EventBufferSize: cfg.EventBufferSize,
		Measurer:        render.NewMeasurer(),
		Observer:        overlay.NewMetricsObserver(met),
	})
	h := overlay.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met, metricsPath))
	r.Get(metricsPath, func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveSessions(svc.SessionCount()) }).ServeHTTP(w, r)
	})
	h.Routes(r)

	srv := &http.Server{Addr: ":" + port, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting",
			"port", port,
			"match_window", cfg.MatchWindow,
			"seek_policy", cfg.SeekPolicy,
			"allocator", cfg.Allocator,
			"log_level", logLevel,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, draining connections")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// Release every session's timers once no request can reach them.
		svc.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
