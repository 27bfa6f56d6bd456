package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/filedesk/internal/api/http"
	"github.com/GriffinCanCode/filedesk/internal/api/middleware"
	"github.com/GriffinCanCode/filedesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/filedesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/filedesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/filedesk/internal/providers/filesystem"
	"github.com/GriffinCanCode/filedesk/internal/providers/system"
	"github.com/GriffinCanCode/filedesk/internal/providers/transfer"
	"github.com/GriffinCanCode/filedesk/internal/shared/paths"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	logger.Info("Initializing filedesk server",
		zap.String("port", cfg.Server.Port),
		zap.String("root", cfg.Storage.Root),
	)

	if cfg.Storage.CreateRoot {
		if err := os.MkdirAll(cfg.Storage.Root, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage root: %w", err)
		}
	}
	resolver, err := paths.NewResolver(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage root: %w", err)
	}
	filter, err := filesystem.NewFilter(cfg.Storage.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude patterns: %w", err)
	}

	metrics := monitoring.NewMetrics()

	ops := filesystem.NewFilesystemOps(resolver, logger, filter)
	tree := filesystem.NewFileTree(ops, cfg.Storage.CollationLocale)
	archives := filesystem.NewArchiveBuilder(ops, filesystem.ArchiveConfig{
		MaxDepth:   cfg.Archive.MaxDepth,
		TarEnabled: cfg.Archive.TarEnabled,
		TempDir:    cfg.TempDir(),
	})
	files := transfer.New(ops, transfer.Config{MaxFileSize: cfg.Transfer.MaxUploadFileSize})
	sys := system.NewProvider(system.Options{
		Resolver: resolver,
		TempDir:  cfg.TempDir(),
		Limits: system.Limits{
			MaxUploadSize:     cfg.Transfer.MaxUploadSize,
			MaxUploadFileSize: cfg.Transfer.MaxUploadFileSize,
			MultipartMemory:   cfg.Transfer.MultipartMemory,
			DownloadChunkSize: cfg.Transfer.ChunkSize,
		},
		Archive: system.ArchiveInfo{
			Formats:    filesystem.SupportedFormats(cfg.Archive.TarEnabled),
			TarEnabled: cfg.Archive.TarEnabled,
			MaxDepth:   cfg.Archive.MaxDepth,
		},
		Logger: logger,
	})

	handlers := api.NewHandlers(tree, archives, files, sys, api.NewHandlerMetrics(metrics), logger, api.Config{
		MaxUploadSize:   cfg.Transfer.MaxUploadSize,
		MultipartMemory: cfg.Transfer.MultipartMemory,
		ChunkSize:       cfg.Transfer.ChunkSize,
	})

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(api.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		useRateLimits(router, cfg.RateLimit, logger)
	}

	registerRoutes(router, handlers)

	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	if cfg.Server.StaticDir != "" {
		router.StaticFile("/", cfg.Server.StaticDir+"/index.html")
		router.Static("/static", cfg.Server.StaticDir)
	}

	router.NoRoute(api.NoRoute)
	router.NoMethod(api.NoMethod)

	logger.Info("Server initialized successfully",
		zap.String("root", resolver.Root()),
		zap.Strings("archive_formats", filesystem.SupportedFormats(cfg.Archive.TarEnabled)),
	)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// useRateLimits installs the shared limiter, when configured, ahead of the
// per-client one.
func useRateLimits(router *gin.Engine, rl config.RateLimitConfig, logger *logging.Logger) {
	if rl.GlobalRequestsPerSecond > 0 {
		burst := rl.GlobalBurst
		if burst <= 0 {
			burst = rl.GlobalRequestsPerSecond
		}
		logger.Info("Global rate limiting enabled",
			zap.Int("rps", rl.GlobalRequestsPerSecond),
			zap.Int("burst", burst),
		)
		router.Use(middleware.GlobalRateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: rl.GlobalRequestsPerSecond,
			Burst:             burst,
		}))
	}

	logger.Info("Rate limiting enabled",
		zap.Int("rps", rl.RequestsPerSecond),
		zap.Int("burst", rl.Burst),
	)
	perClient := middleware.DefaultRateLimitConfig()
	perClient.RequestsPerSecond = rl.RequestsPerSecond
	perClient.Burst = rl.Burst
	router.Use(middleware.RateLimit(perClient))
}

func registerRoutes(router *gin.Engine, h *api.Handlers) {
	router.GET("/health", h.Health)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/list", h.List)
		apiGroup.POST("/create-directory", h.CreateDirectory)
		apiGroup.POST("/delete", h.Delete)
		apiGroup.POST("/delete-one", h.Delete)
		apiGroup.POST("/delete-many", h.DeleteMany)
		apiGroup.POST("/move", h.Move)
		apiGroup.POST("/upload", h.Upload)
		apiGroup.GET("/download", h.DownloadFile)
		apiGroup.GET("/download-file", h.DownloadFile)
		apiGroup.GET("/download-directory", h.DownloadDirectory)
		apiGroup.POST("/create-archive", h.CreateArchive)
		apiGroup.GET("/diagnostics", h.Diagnostics)
	}
}

// Handler returns the assembled router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("Graceful shutdown failed", zap.Error(err))
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	_ = s.logger.Sync()
	return nil
}
