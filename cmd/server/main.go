package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerylCAtieno/tech-stack-advisor/internal/a2a"
	"github.com/BerylCAtieno/tech-stack-advisor/internal/advisor"
	"github.com/BerylCAtieno/tech-stack-advisor/internal/config"
	"github.com/BerylCAtieno/tech-stack-advisor/internal/export"
	"github.com/BerylCAtieno/tech-stack-advisor/internal/flow"
	"github.com/BerylCAtieno/tech-stack-advisor/internal/logging"
	"github.com/BerylCAtieno/tech-stack-advisor/internal/web"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Gemini client
	geminiClient, err := advisor.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger.Named("gemini"))
	if err != nil {
		logger.Fatal("failed to create Gemini client", zap.Error(err))
	}
	defer geminiClient.Close()

	format, err := export.LookupPageFormat(cfg.Export.PageFormat)
	if err != nil {
		logger.Fatal("invalid export page format", zap.Error(err))
	}
	background, err := export.ParseHexColor(cfg.Export.Background)
	if err != nil {
		logger.Fatal("invalid export background", zap.Error(err))
	}

	rasterCfg := export.DefaultRasterConfig()
	rasterCfg.Scale = cfg.Export.Scale
	rasterCfg.Background = background
	rasterCfg.ChromeBin = cfg.Export.ChromeBin
	rasterCfg.Headless = cfg.Export.Headless
	rasterCfg.Timeout = cfg.Export.Timeout
	rasterizer := export.NewBrowserRasterizer(rasterCfg, logger.Named("raster"))
	defer func() {
		if err := rasterizer.Close(); err != nil {
			logger.Warn("browser close failed", zap.Error(err))
		}
	}()

	adviceFlow := flow.NewAdviceFlow(geminiClient, logger.Named("flow"))
	exportFlow := export.NewFlow(rasterizer, format, logger.Named("export"))

	handler, err := web.NewHandler(adviceFlow, exportFlow, web.Options{
		BaseURL:  cfg.BaseURL,
		FileName: cfg.Export.FileName,
	}, logger.Named("web"))
	if err != nil {
		logger.Fatal("failed to create web handler", zap.Error(err))
	}

	router := web.NewRouter(handler, logger.Named("http"))
	a2a.NewA2AHandler(geminiClient, logger.Named("a2a")).Register(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Tech Stack Advisor starting",
			zap.String("port", cfg.Port),
			zap.String("base_url", cfg.BaseURL),
			zap.String("model", cfg.GeminiModel),
			zap.String("page_format", format.Name),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := handler.Wait(shutdownCtx); err != nil {
		logger.Warn("advice request still running at shutdown", zap.Error(err))
	}
}
