// Package server
//
// @title Reelfolio API
// @version 1.0
// @description Portfolio content, accounts and roles
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/reelfolio/reelfolio/internal/assert"
	"github.com/reelfolio/reelfolio/internal/auth"
	"github.com/reelfolio/reelfolio/internal/config"
	"github.com/reelfolio/reelfolio/internal/models"
	"github.com/reelfolio/reelfolio/internal/storage"
	"github.com/reelfolio/reelfolio/internal/tasks"
)

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	db        *gorm.DB
	config    *config.Config
	logger    zerolog.Logger
	validator *validator.Validate
	signer    *auth.Signer
	enqueuer  tasks.Enqueuer
	storage   *storage.Service
	version   string

	asynqClient *asynq.Client
}

// New creates a new server instance backed by the configured database,
// Redis queue and storage directory
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Initialize database with production settings
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	store, err := storage.NewService(cfg.Storage.Dir, cfg.Storage.PublicURL, zlog)
	if err != nil {
		return nil, err
	}

	// Initialize Asynq client for enqueueing tasks
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})

	srv, err := NewWithDeps(cfg, zlog, version, db, asynqClient, store)
	if err != nil {
		asynqClient.Close()
		return nil, err
	}
	srv.asynqClient = asynqClient
	return srv, nil
}

// NewWithDeps creates a server around already-initialised dependencies.
// The database must be migrated.
func NewWithDeps(cfg *config.Config, zlog zerolog.Logger, version string, db *gorm.DB, enqueuer tasks.Enqueuer, store *storage.Service) (*Server, error) {
	secret, err := loadJWTSecret(db, cfg.Auth.JWTSecret, zlog)
	if err != nil {
		return nil, err
	}

	server := &Server{
		db:        db,
		config:    cfg,
		logger:    zlog,
		validator: newValidator(),
		signer:    auth.NewSigner(secret, cfg.Auth.TokenTTL),
		enqueuer:  enqueuer,
		storage:   store,
		version:   version,
	}

	// Setup router
	server.setupRouter()

	return server, nil
}

// loadJWTSecret prefers the configured secret, then the persisted one, and
// generates and persists a new one on first start
func loadJWTSecret(db *gorm.DB, configured string, zlog zerolog.Logger) (string, error) {
	if configured != "" {
		return configured, nil
	}

	var setting models.Setting
	err := db.First(&setting).Error
	if err == nil {
		zlog.Debug().Msg("Loaded JWT secret from database")
		return setting.JWTSecret, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to load settings: %w", err)
	}

	// 64 hex characters = 32 bytes of randomness
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)
	assert.Length(secret, 64)

	if err := db.Create(&models.Setting{JWTSecret: secret}).Error; err != nil {
		return "", fmt.Errorf("failed to persist JWT secret: %w", err)
	}

	zlog.Info().Msg("Generated new JWT secret")
	return secret, nil
}

func newValidator() *validator.Validate {
	validate := validator.New()

	validate.RegisterValidation("projectstatus", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == "" || value == models.ProjectStatusInProgress || value == models.ProjectStatusLive
	})

	return validate
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns      = 8
		maxIdleConns      = 4
		connMaxLifetime   = 300       // 5 minutes
		busyTimeout       = 5000      // 5 seconds
		cacheSize         = 10000     // 10MB
		mmapSize          = 134217728 // 128MB
		walAutocheckpoint = 1000
	)

	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode must be set first
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA wal_autocheckpoint=%d", walAutocheckpoint),
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		fmt.Sprintf("PRAGMA cache_size=-%d", cacheSize),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
		fmt.Sprintf("PRAGMA mmap_size=%d", mmapSize),
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	var journalMode string
	db.Raw("PRAGMA journal_mode").Scan(&journalMode)
	zlog.Debug().Str("journal_mode", journalMode).Str("path", cfg.Database.URL).Msg("Database ready")

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	origins := s.config.HTTP.CORSOrigins
	if len(origins) == 0 {
		s.logger.Warn().Str("origin", config.DefaultCORSOrigin).Msg("No CORS origins configured, using default")
		origins = []string{config.DefaultCORSOrigin}
	}
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.router.GET("/health", s.healthCheck)

	// Uploaded images are public
	s.router.Static("/storage", s.storage.Root())

	public := s.router.Group("/api")
	{
		public.POST("/auth/signup", s.signup)
		public.POST("/auth/verify", s.verifyEmail)
		public.GET("/auth/verify", s.verifyEmail)
		public.POST("/auth/login", s.login)

		public.GET("/projects", s.listProjects)
		public.GET("/projects/search", s.searchProjects)
		public.GET("/projects/:id", s.getProject)
		public.GET("/categories", s.listCategories)
		public.GET("/about", s.getAbout)
		public.GET("/banners", s.listBanners)
	}

	// Authenticated API routes (JWT required)
	api := s.router.Group("/api")
	api.Use(JWTAuthMiddleware(s.db, s.signer, s.logger))
	{
		api.POST("/auth/logout", s.logout)
		api.POST("/auth/refresh", s.refreshToken)
		api.GET("/auth/me", s.getCurrentUser)
		api.GET("/auth/roles/:role", s.hasRole)

		admin := api.Group("/admin")
		admin.Use(RequireRoute("/admin", s.logger))
		{
			admin.GET("/stats", s.getStats)

			admin.POST("/projects", s.createProject)
			admin.PUT("/projects/:id", s.updateProject)
			admin.DELETE("/projects/:id", s.deleteProject)

			admin.POST("/categories", s.createCategory)
			admin.PUT("/categories/:id", s.updateCategory)
			admin.DELETE("/categories/:id", s.deleteCategory)

			admin.POST("/banners", s.createBanner)
			admin.PUT("/banners/:id", s.updateBanner)
			admin.DELETE("/banners/:id", s.deleteBanner)

			admin.PUT("/about", s.upsertAbout)
			admin.POST("/uploads/:bucket", s.uploadFile)
			admin.POST("/roles", s.grantAdmin)
		}
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "reelfolio-api",
		"version":   s.version,
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// GetStorage returns the object store for use by workers
func (s *Server) GetStorage() *storage.Service {
	return s.storage
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Start serves HTTP until SIGINT or SIGTERM, then shuts down gracefully
func (s *Server) Start() error {
	addr := s.config.HTTP.Addr

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		return err
	}

	if s.asynqClient != nil {
		if err := s.asynqClient.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing Asynq client")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
