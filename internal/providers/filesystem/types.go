package filesystem

import (
	"os"
	"time"

	"github.com/GriffinCanCode/filedesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/filedesk/internal/shared/paths"
)

// Entry kinds as reported to clients.
const (
	KindDirectory = "directory"
	KindFile      = "file"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// FileEntry describes one child of a listed directory.
type FileEntry struct {
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	SizeHuman  string    `json:"sizeHuman"`
	Modified   string    `json:"modified"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Path       string    `json:"path"`
	Icon       string    `json:"icon"`
}

// IsDir reports whether the entry is a directory.
func (e FileEntry) IsDir() bool {
	return e.Type == KindDirectory
}

// Listing is the result of listing one directory.
type Listing struct {
	Files       []FileEntry `json:"files"`
	CurrentPath string      `json:"currentPath"`
}

// DeleteResult is the outcome of deleting one item of a batch.
type DeleteResult struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// FilesystemOps provides state shared by the file tree and archive builder.
type FilesystemOps struct {
	Resolver *paths.Resolver
	Logger   *logging.Logger
	Filter   *Filter

	rename func(oldpath, newpath string) error
}

// NewFilesystemOps creates the shared operation state. A nil filter hides
// nothing.
func NewFilesystemOps(resolver *paths.Resolver, logger *logging.Logger, filter *Filter) *FilesystemOps {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FilesystemOps{
		Resolver: resolver,
		Logger:   logger.Named("filesystem"),
		Filter:   filter,
		rename:   os.Rename,
	}
}
