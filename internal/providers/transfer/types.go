package transfer

import (
	"time"

	"github.com/GriffinCanCode/filedesk/internal/providers/filesystem"
)

// Config limits transfers.
type Config struct {
	// MaxFileSize caps a single uploaded file in bytes. Zero disables it.
	MaxFileSize int64
}

// Transfer serves downloads and stores uploads below the storage root.
type Transfer struct {
	*filesystem.FilesystemOps
	maxFileSize int64
	now         func() time.Time
}

// New creates a transfer endpoint sharing ops with the file tree.
func New(ops *filesystem.FilesystemOps, cfg Config) *Transfer {
	return &Transfer{
		FilesystemOps: ops,
		maxFileSize:   cfg.MaxFileSize,
		now:           time.Now,
	}
}

// MaxFileSize returns the per-file upload cap, zero when unlimited.
func (t *Transfer) MaxFileSize() int64 {
	return t.maxFileSize
}
