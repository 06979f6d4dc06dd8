// @title           Desyn Animation Backend API
// @version         1.0.0
// @description     Backend API for the Desyn animation editor. It stores projects and frames, coordinates autosave over WebSocket editing sessions, and manages collaborators.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"desyn-backend/docs"
	"desyn-backend/internal/collab"
	"desyn-backend/internal/config"
	"desyn-backend/internal/database"
	"desyn-backend/internal/docstore"
	"desyn-backend/internal/handlers"
	"desyn-backend/internal/logger"
	"desyn-backend/internal/middleware"
	"desyn-backend/internal/services"
	"desyn-backend/internal/supabase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Update Swagger docs with dynamic base URL
	if cfg.BaseURL != "" {
		baseURL, err := url.Parse(cfg.BaseURL)
		if err == nil {
			docs.SwaggerInfo.Host = baseURL.Host
			if baseURL.Scheme == "https" {
				docs.SwaggerInfo.Schemes = []string{"https", "http"}
			} else {
				docs.SwaggerInfo.Schemes = []string{"http", "https"}
			}
		}
	}

	// Document store: Postgres when DATABASE_URL is set, memory otherwise
	var store docstore.Store
	storage := "memory"
	if cfg.DatabaseURL != "" {
		dbClient, err := supabase.NewDocumentClient(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize database client: %v", err)
		}
		defer dbClient.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err = database.NewMigrator(dbClient.DB()).Run(migrateCtx)
		cancel()
		if err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		logger.Info("migrations completed successfully")

		store = dbClient
		storage = "postgres"
	} else {
		logger.Warn("DATABASE_URL not set, projects are kept in memory and lost on restart")
		store = docstore.NewMemory()
	}

	// Supabase services are optional; without them events are dropped,
	// thumbnails are stored inline and profiles come from the document store.
	var (
		directory  collab.Directory = collab.NewDocumentDirectory(store)
		publisher  services.Publisher
		thumbnails services.ThumbnailUploader
	)
	if cfg.SupabaseURL != "" {
		supabaseClient, err := supabase.NewClient(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Supabase client: %v", err)
		}
		directory = supabase.NewUserDirectory(supabaseClient)
		publisher = supabase.NewRealtimeClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		thumbnails = supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	} else {
		logger.Warn("SUPABASE_URL not set, realtime events and thumbnail uploads are disabled")
	}

	manager, err := collab.NewManager(store, directory, collab.DefaultLookupConcurrency)
	if err != nil {
		log.Fatalf("Failed to initialize collaborator manager: %v", err)
	}
	defer manager.Close()

	projectService := services.NewProjectService(store, manager, publisher, thumbnails)
	hub := services.NewSessionHub()

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestLogger(nil))
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(cfg.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.Metrics())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check (no auth)
	router.GET("/health", handlers.NewHealthHandler(storage).Health)

	// API routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))

	handlers.RegisterRoutes(api, handlers.Routes{
		Projects:      handlers.NewProjectsHandler(projectService),
		Frames:        handlers.NewFramesHandler(projectService, hub),
		Collaborators: handlers.NewCollaboratorsHandler(projectService),
		Sessions: handlers.NewSessionHandler(projectService, hub, services.SessionOptions{
			FrameDelay:   cfg.FrameAutosaveDelay,
			ProjectDelay: cfg.ProjectAutosaveDelay,
			SaveTimeout:  cfg.SaveTimeout,
		}, cfg.CORSOrigins),
		AddLimiter: middleware.NewRateLimiter(cfg.CollaboratorRateLimit, cfg.CollaboratorRateBurst),
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", port, "storage", storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.SaveTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := hub.FlushAll(ctx); err != nil {
		logger.Error("failed to flush open sessions", "error", err)
	}
	logger.Info("server stopped")
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
