package system

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/filedesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/filedesk/internal/shared/paths"
)

// Limits are the transfer limits reported by diagnostics.
type Limits struct {
	MaxUploadSize     int64 `json:"maxUploadSize"`
	MaxUploadFileSize int64 `json:"maxUploadFileSize"`
	MultipartMemory   int64 `json:"multipartMemory"`
	DownloadChunkSize int   `json:"downloadChunkSize"`
}

// ArchiveInfo describes archive support.
type ArchiveInfo struct {
	Formats    []string `json:"formats"`
	TarEnabled bool     `json:"tarEnabled"`
	MaxDepth   int      `json:"maxDepth"`
}

// Options configures a Provider.
type Options struct {
	Resolver *paths.Resolver
	TempDir  string
	Limits   Limits
	Archive  ArchiveInfo
	Logger   *logging.Logger
}

// Provider reports runtime and storage capabilities
type Provider struct {
	startTime time.Time
	resolver  *paths.Resolver
	tempDir   string
	limits    Limits
	archive   ArchiveInfo
	logger    *logging.Logger
}

// RuntimeInfo describes the running process.
type RuntimeInfo struct {
	GoVersion     string  `json:"goVersion"`
	OS            string  `json:"os"`
	Arch          string  `json:"arch"`
	CPUs          int     `json:"cpus"`
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB uint64  `json:"memoryAllocMB"`
	MemorySysMB   uint64  `json:"memorySysMB"`
	Uptime        float64 `json:"uptime"`
}

// StorageInfo is the result of probing the storage root.
type StorageInfo struct {
	Root        string `json:"root"`
	Exists      bool   `json:"exists"`
	IsDir       bool   `json:"isDir"`
	Readable    bool   `json:"readable"`
	Writable    bool   `json:"writable"`
	Permissions string `json:"permissions,omitempty"`
	WriteTest   string `json:"writeTest"`
}

// TempInfo is the result of probing the staging directory.
type TempInfo struct {
	Dir      string `json:"dir"`
	Writable bool   `json:"writable"`
}

// RequestInfo echoes the diagnosed request.
type RequestInfo struct {
	Method      string `json:"method"`
	ContentType string `json:"contentType"`
	UserAgent   string `json:"userAgent"`
	RemoteAddr  string `json:"remoteAddr"`
}

// Usage totals everything below the storage root.
type Usage struct {
	Files       int64 `json:"files"`
	Directories int64 `json:"directories"`
	Bytes       int64 `json:"bytes"`
}

// Report is the full diagnostics document.
type Report struct {
	Runtime RuntimeInfo `json:"runtime"`
	Storage StorageInfo `json:"storage"`
	Temp    TempInfo    `json:"temp"`
	Limits  Limits      `json:"limits"`
	Archive ArchiveInfo `json:"archive"`
	Request RequestInfo `json:"request"`
	Usage   *Usage      `json:"usage,omitempty"`
}

// NewProvider creates a system provider
func NewProvider(opts Options) *Provider {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Provider{
		startTime: time.Now(),
		resolver:  opts.Resolver,
		tempDir:   tempDir,
		limits:    opts.Limits,
		archive:   opts.Archive,
		logger:    logger.Named("system"),
	}
}

// Uptime returns the time since the provider was created.
func (s *Provider) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Diagnostics builds a capability report. The usage walk only runs when
// withUsage is set.
func (s *Provider) Diagnostics(ctx context.Context, req RequestInfo, withUsage bool) (*Report, error) {
	report := &Report{
		Runtime: s.runtimeInfo(),
		Storage: s.probeStorage(),
		Temp:    TempInfo{Dir: s.tempDir, Writable: probeWritable(s.tempDir)},
		Limits:  s.limits,
		Archive: s.archive,
		Request: req,
	}
	if withUsage {
		usage, err := s.usage(ctx)
		if err != nil {
			return nil, fmt.Errorf("usage: %w", err)
		}
		report.Usage = usage
	}
	return report, nil
}

func (s *Provider) runtimeInfo() RuntimeInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return RuntimeInfo{
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		CPUs:          runtime.NumCPU(),
		Goroutines:    runtime.NumGoroutine(),
		MemoryAllocMB: m.Alloc / 1024 / 1024,
		MemorySysMB:   m.Sys / 1024 / 1024,
		Uptime:        s.Uptime().Seconds(),
	}
}

func (s *Provider) probeStorage() StorageInfo {
	root := s.resolver.Root()
	info := StorageInfo{Root: root, WriteTest: "skipped"}

	st, err := os.Stat(root)
	if err != nil {
		info.WriteTest = "storage root is missing"
		return info
	}
	info.Exists = true
	info.IsDir = st.IsDir()
	info.Permissions = fmt.Sprintf("%04o", st.Mode().Perm())
	if !info.IsDir {
		info.WriteTest = "storage root is not a directory"
		return info
	}

	if d, err := os.Open(root); err == nil {
		_, err = d.Readdirnames(1)
		info.Readable = err == nil || err == io.EOF
		d.Close()
	}

	if err := writeProbe(root); err != nil {
		s.logger.Warn("Storage write test failed", zap.Error(err))
		info.WriteTest = "failed"
	} else {
		info.Writable = true
		info.WriteTest = "ok"
	}
	return info
}

// writeProbe creates, writes and removes a uniquely named file in dir.
func writeProbe(dir string) error {
	p := filepath.Join(dir, ".filedesk-probe-"+uuid.NewString())
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	_, werr := f.Write([]byte("probe"))
	cerr := f.Close()
	rerr := os.Remove(p)
	for _, err := range []error{werr, cerr, rerr} {
		if err != nil {
			return err
		}
	}
	return nil
}

func probeWritable(dir string) bool {
	return writeProbe(dir) == nil
}

// usage walks the root concurrently without following symlinks.
func (s *Provider) usage(ctx context.Context) (*Usage, error) {
	var files, dirs, size atomic.Int64
	root := s.resolver.Root()

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are left out of the totals.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		switch {
		case d.IsDir():
			dirs.Add(1)
		case d.Type().IsRegular():
			files.Add(1)
			if fi, err := d.Info(); err == nil {
				size.Add(fi.Size())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Usage{Files: files.Load(), Directories: dirs.Load(), Bytes: size.Load()}, nil
}
