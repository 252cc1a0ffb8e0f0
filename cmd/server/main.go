package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stwalsh4118/ppm/api/internal/config"
	"github.com/stwalsh4118/ppm/api/internal/database"
	apierrors "github.com/stwalsh4118/ppm/api/internal/errors"
	"github.com/stwalsh4118/ppm/api/internal/handlers"
	"github.com/stwalsh4118/ppm/api/internal/logger"
	"github.com/stwalsh4118/ppm/api/internal/metrics"
	"github.com/stwalsh4118/ppm/api/internal/middleware"
	"github.com/stwalsh4118/ppm/api/internal/repository"
	"github.com/stwalsh4118/ppm/api/internal/services"
	"github.com/stwalsh4118/ppm/api/internal/spreadsheet"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Server.Env)
	log.Info("Starting PPM API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
		"table":       cfg.Retrieval.Table,
	})

	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := handlers.RegisterValidators(v); err != nil {
			log.Fatal("Failed to register validators", err, nil)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Middleware order: RequestID -> Logger -> Recovery -> Metrics -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Metrics(m))
	router.Use(middleware.CORS(cfg.CORS.Origins))
	router.NoRoute(func(c *gin.Context) {
		apierrors.NotFound(c, "Route not found")
	})

	// Initialize repository and service layers
	propertyRepo := repository.NewPropertyRepository(db, cfg.Retrieval)

	healthHandler := handlers.NewHealthHandler(db, propertyRepo, handlers.SourceInfo{
		Env:       cfg.Server.Env,
		Table:     cfg.Retrieval.Table,
		BatchSize: cfg.Retrieval.BatchSize,
	})
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	registryService := services.NewRegistryService(
		propertyRepo,
		spreadsheet.NewEncoder(cfg.Export.SheetName),
		m,
		log,
		cfg.Export.ImportMaxBytes,
	)
	registryHandler := handlers.NewRegistryHandler(registryService, cfg.Export.Filename, cfg.Export.ImportMaxBytes)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/info", healthHandler.Info)
		v1.GET("/idu", registryHandler.ComposeIdu)
		v1.GET("/departements", registryHandler.Departements)

		v1.POST("/parcels/search", registryHandler.SearchParcels)
		v1.POST("/sirens/search", registryHandler.SearchSirens)

		imports := v1.Group("/imports")
		{
			imports.POST("/idus", registryHandler.ImportIdus)
			imports.POST("/sirens", registryHandler.ImportSirens)
		}
	}

	// Searches may run up to the retrieval timeout before the response is written.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Retrieval.Timeout + 30*time.Second,
	}

	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
