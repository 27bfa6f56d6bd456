// Package http exposes the storage root over a JSON API.
package http

import (
	"github.com/GriffinCanCode/filedesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/filedesk/internal/providers/filesystem"
	"github.com/GriffinCanCode/filedesk/internal/providers/system"
	"github.com/GriffinCanCode/filedesk/internal/providers/transfer"
	"github.com/GriffinCanCode/filedesk/internal/shared/utils"
)

// Config holds the request limits applied by the handlers.
type Config struct {
	MaxUploadSize   int64
	MultipartMemory int64
	ChunkSize       int
	MaxJSONSize     int
}

// Handlers contains all HTTP handlers
type Handlers struct {
	tree      *filesystem.FileTree
	archives  *filesystem.ArchiveBuilder
	transfer  *transfer.Transfer
	system    *system.Provider
	metrics   *HandlerMetrics
	logger    *logging.Logger
	jsonLimit *utils.JSONSizeValidator
	cfg       Config
}

// NewHandlers creates a new handler set
func NewHandlers(
	tree *filesystem.FileTree,
	archives *filesystem.ArchiveBuilder,
	transfer *transfer.Transfer,
	system *system.Provider,
	metrics *HandlerMetrics,
	logger *logging.Logger,
	cfg Config,
) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.MultipartMemory <= 0 {
		cfg.MultipartMemory = 32 << 20
	}
	jsonLimit := utils.DefaultJSONValidator()
	if cfg.MaxJSONSize > 0 {
		jsonLimit = utils.NewJSONSizeValidator(cfg.MaxJSONSize)
	}
	return &Handlers{
		tree:      tree,
		archives:  archives,
		transfer:  transfer,
		system:    system,
		metrics:   metrics,
		logger:    logger.Named("api"),
		jsonLimit: jsonLimit,
		cfg:       cfg,
	}
}
