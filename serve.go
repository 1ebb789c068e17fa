package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-server/config"
	"quiz-server/handlers"
	"quiz-server/ingestion"
	"quiz-server/middleware"
	"quiz-server/quiz"
)

const watchDebounce = 500 * time.Millisecond

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE:  runServe,
}

// newRouter builds the gin engine with every route the quiz exposes.
func newRouter(cfg *config.Config, svc *quiz.Service, logger *zap.Logger) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger.Named("http")))
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	renderer, err := handlers.NewRenderer()
	if err != nil {
		return nil, err
	}
	router.HTMLRender = renderer

	router.GET("/health", handlers.Health())
	router.GET("/progress", handlers.Progress(svc))
	// Older clients post here directly.
	router.POST("/reset-wrong", handlers.ResetWrong(svc))

	api := router.Group("/api")
	{
		api.GET("/questions", handlers.GetQuestions(svc))
		api.POST("/answer", handlers.SubmitAnswer(svc))
		api.POST("/reset-wrong", handlers.ResetWrong(svc))
		api.POST("/resample", handlers.Resample(svc))
		api.GET("/stats", handlers.GetStats(svc))
	}

	// Serve the static frontend when one is shipped alongside the binary
	if info, err := os.Stat(cfg.FrontendDir); err == nil && info.IsDir() {
		router.StaticFile("/", filepath.Join(cfg.FrontendDir, "index.html"))
		fs := gin.Dir(cfg.FrontendDir, false)
		router.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
				return
			}
			c.FileFromFS(c.Request.URL.Path, fs)
		})
	} else {
		logger.Info("Frontend directory not found, serving API only", zap.String("dir", cfg.FrontendDir))
	}
	return router, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)
	router, err := newRouter(cfg, a.service, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Materialize the working set up front so the first request is cheap.
	if _, err := a.service.GetWorkingSet(); err != nil {
		if !errors.Is(err, quiz.ErrNoQuestions) {
			return fmt.Errorf("failed to prepare working set: %w", err)
		}
		logger.Warn("No questions available yet", zap.String("dir", cfg.Subjects.Dir))
	}

	resync := func() {
		changed, err := a.service.SyncIfStale()
		if err != nil {
			logger.Error("Error during scheduled resync", zap.Error(err))
			return
		}
		if changed {
			logger.Info("Working set resampled after subject change")
		}
	}

	// Start background resync job
	if cfg.ResyncInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.ResyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					logger.Debug("Running scheduled staleness check")
					resync()
				}
			}
		}()
	}

	if cfg.Subjects.Watch {
		w, err := ingestion.NewWatcher(a.loader, watchDebounce, logger.Named("watcher"), resync)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			logger.Warn("Subject watcher disabled", zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	srv := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}

	// Goroutine to gracefully shut down the server
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down server...")
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Info("Quiz server starting",
		zap.String("addr", cfg.ServerPort),
		zap.String("subjects", cfg.Subjects.Dir),
		zap.String("store", a.store.Path()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server startup error: %w", err)
	}
	logger.Info("Server exited gracefully.")
	return nil
}
