// Command server starts the ENEM Pro+ practice and essay-assessment API.
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

	"github.com/enempro/enem-pro-api/internal/adapter/ai/openrouter"
	"github.com/enempro/enem-pro-api/internal/adapter/enem"
	httpserver "github.com/enempro/enem-pro-api/internal/adapter/httpserver"
	"github.com/enempro/enem-pro-api/internal/adapter/observability"
	"github.com/enempro/enem-pro-api/internal/app"
	"github.com/enempro/enem-pro-api/internal/config"
	"github.com/enempro/enem-pro-api/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, upstream, and assessment instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Upstream clients
	questionSrc := enem.New(cfg)
	chatClient := openrouter.New(cfg)
	if cfg.OpenRouterAPIKey == "" {
		slog.Warn("OPENROUTER_API_KEY not set; essay assessment will fall back to default scores")
	}

	// Usecases
	questionSvc := usecase.NewQuestionService(questionSrc)
	essaySvc := usecase.NewEssayService(chatClient, observability.PromAssessmentObserver{}, cfg.MaxEssayChars)

	// HTTP server
	srv := httpserver.NewServer(cfg, questionSvc, essaySvc, app.UpstreamReadyCheck(questionSrc))
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting",
			slog.Int("port", cfg.Port),
			slog.String("enem_api", cfg.EnemAPIBaseURL),
			slog.String("model", cfg.OpenRouterModel))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
