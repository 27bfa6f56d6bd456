package filesystem

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/filedesk/internal/shared/paths"
	"github.com/GriffinCanCode/filedesk/internal/shared/types"
	"github.com/GriffinCanCode/filedesk/internal/shared/utils"
)

// ArchiveConfig configures an ArchiveBuilder.
type ArchiveConfig struct {
	MaxDepth   int
	TarEnabled bool
	TempDir    string
}

// ArchiveBuilder packs confined files and directories into ZIP or TAR
// archives.
type ArchiveBuilder struct {
	*FilesystemOps
	maxDepth   int
	tarEnabled bool
	tempDir    string

	open func(name string) (io.ReadCloser, error)
}

// NewArchiveBuilder creates an archive builder.
func NewArchiveBuilder(ops *FilesystemOps, cfg ArchiveConfig) *ArchiveBuilder {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 64
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &ArchiveBuilder{
		FilesystemOps: ops,
		maxDepth:      cfg.MaxDepth,
		tarEnabled:    cfg.TarEnabled,
		tempDir:       cfg.TempDir,
		open:          openFile,
	}
}

func openFile(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// TarEnabled reports whether TAR formats are accepted.
func (b *ArchiveBuilder) TarEnabled() bool {
	return b.tarEnabled
}

// MaxDepth returns the deepest nesting level walked.
func (b *ArchiveBuilder) MaxDepth() int {
	return b.maxDepth
}

// TempDir returns where directory downloads are staged.
func (b *ArchiveBuilder) TempDir() string {
	return b.tempDir
}

// ArchiveOptions describes an archive to build inside Dir.
type ArchiveOptions struct {
	Dir     string
	Name    string
	Format  string
	Entries []string
}

// ArchiveResult describes a newly built archive.
type ArchiveResult struct {
	ArchiveName string `json:"archiveName"`
	Path        string `json:"path"`
	Method      string `json:"method"`
	Format      string `json:"format"`
	FilesCount  int    `json:"filesCount"`
	Size        int64  `json:"size"`
	SizeHuman   string `json:"sizeHuman"`
}

// TempArchive is a directory download staged outside the storage root.
// Callers must call Cleanup once the response is finished.
type TempArchive struct {
	Path         string
	DownloadName string
	ContentType  string
	Format       string
	Size         int64
}

// Cleanup removes the staged archive.
func (a *TempArchive) Cleanup() error {
	err := os.Remove(a.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// archiveSource is a validated top-level entry and its name in the archive.
type archiveSource struct {
	abs  string
	name string
}

// archiveItem is one file or directory to be written.
type archiveItem struct {
	src  string
	name string
	info fs.FileInfo
}

// BuildArchive packs opts.Entries of opts.Dir into a new archive in the same
// directory. Entries that do not resolve inside the root are dropped. The
// archive is either complete and non-empty or absent.
func (b *ArchiveBuilder) BuildArchive(ctx context.Context, opts ArchiveOptions) (*ArchiveResult, error) {
	format, err := ParseFormat(opts.Format, b.tarEnabled)
	if err != nil {
		return nil, err
	}

	base := utils.SanitizeArchiveName(utils.RepairName(opts.Name))
	base = strings.Trim(trimFormatExt(base, format), " .")
	if err := utils.ValidateName(base, "archive name"); err != nil {
		return nil, types.E(types.KindInvalidArgument, "archive", "", err)
	}
	fileName := base + format.Ext
	if err := utils.ValidateName(fileName, "archive name"); err != nil {
		return nil, types.E(types.KindInvalidArgument, "archive", "", err)
	}

	work, err := b.Resolver.Resolve(opts.Dir)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(work.Abs); err != nil {
		return nil, types.FromOS("archive", work.Rel, err)
	} else if !info.IsDir() {
		return nil, types.New(types.KindNotADirectory, "archive", work.Rel)
	}

	archiveAbs := filepath.Join(work.Abs, fileName)
	archiveRel := joinRel(work.Rel, fileName)
	if _, err := os.Lstat(archiveAbs); err == nil {
		return nil, types.New(types.KindAlreadyExists, "archive", archiveRel)
	}

	sources := b.validEntries(work, opts.Entries)
	if len(sources) == 0 {
		return nil, types.New(types.KindNoValidEntries, "archive", work.Rel)
	}

	var items []archiveItem
	packed := 0
	for _, src := range sources {
		collected, err := b.collect(ctx, src, archiveAbs)
		if err != nil {
			return nil, types.FromOS("archive", archiveRel, err)
		}
		if len(collected) == 0 {
			continue
		}
		packed++
		items = append(items, collected...)
	}
	if len(items) == 0 {
		return nil, types.New(types.KindNoValidEntries, "archive", work.Rel)
	}
	sortItems(items)

	size, err := b.writeFile(ctx, archiveAbs, format, items)
	if err != nil {
		b.Logger.Error("Archive failed", zap.String("path", archiveRel), zap.Error(err))
		return nil, types.FromOS("archive", archiveRel, err)
	}

	b.Logger.Info("Archive created",
		zap.String("path", archiveRel),
		zap.String("format", format.Name),
		zap.Int("entries", packed),
		zap.Int64("size", size),
	)

	return &ArchiveResult{
		ArchiveName: fileName,
		Path:        archiveRel,
		Method:      format.Method(),
		Format:      format.Name,
		FilesCount:  packed,
		Size:        size,
		SizeHuman:   FormatBytes(size),
	}, nil
}

// BuildDirectoryDownload archives name inside dir into a uniquely named
// temporary file. Archive paths are relative to the directory itself.
func (b *ArchiveBuilder) BuildDirectoryDownload(ctx context.Context, dir, name, format string) (*TempArchive, error) {
	f, err := ParseFormat(format, b.tarEnabled)
	if err != nil {
		return nil, err
	}

	target, err := b.Resolver.Resolve(paths.Join(dir, name))
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(target.Abs)
	if err != nil {
		return nil, types.FromOS("download directory", target.Rel, err)
	}
	if !info.IsDir() {
		return nil, types.New(types.KindNotADirectory, "download directory", target.Rel)
	}

	children, err := os.ReadDir(target.Abs)
	if err != nil {
		return nil, types.FromOS("download directory", target.Rel, err)
	}
	if len(children) == 0 {
		return nil, types.New(types.KindEmptyDirectory, "download directory", target.Rel)
	}

	if err := os.MkdirAll(b.tempDir, dirPerm); err != nil {
		return nil, types.FromOS("download directory", target.Rel, err)
	}
	tmpPath := filepath.Join(b.tempDir, "download_"+uuid.NewString()+f.Ext)

	items, err := b.collect(ctx, archiveSource{abs: target.Abs}, tmpPath)
	if err != nil {
		return nil, types.FromOS("download directory", target.Rel, err)
	}
	if len(items) == 0 {
		return nil, types.New(types.KindEmptyDirectory, "download directory", target.Rel)
	}
	sortItems(items)

	size, err := b.writeFile(ctx, tmpPath, f, items)
	if err != nil {
		b.Logger.Error("Directory archive failed", zap.String("path", target.Rel), zap.Error(err))
		return nil, types.FromOS("download directory", target.Rel, err)
	}

	downloadName := utils.RepairName(target.Name())
	if downloadName == "" {
		downloadName = "storage"
	}

	return &TempArchive{
		Path:         tmpPath,
		DownloadName: downloadName + f.Ext,
		ContentType:  f.ContentType,
		Format:       f.Name,
		Size:         size,
	}, nil
}

// validEntries resolves requested entries relative to work. Entries that
// escape the root or would be packed twice are dropped.
func (b *ArchiveBuilder) validEntries(work paths.StoragePath, entries []string) []archiveSource {
	seen := make(map[string]struct{}, len(entries))
	sources := make([]archiveSource, 0, len(entries))

	for _, raw := range entries {
		cleaned, err := paths.Clean(raw)
		if err != nil || cleaned == "" {
			b.Logger.Debug("Dropping archive entry", zap.String("entry", raw))
			continue
		}
		p, err := b.Resolver.Resolve(joinRel(work.Rel, cleaned))
		if err != nil {
			b.Logger.Debug("Dropping archive entry", zap.String("entry", raw), zap.Error(err))
			continue
		}
		if p.Abs == work.Abs || b.Filter.Excluded(p.Rel) {
			continue
		}
		if _, dup := seen[p.Abs]; dup {
			continue
		}
		seen[p.Abs] = struct{}{}
		sources = append(sources, archiveSource{abs: p.Abs, name: cleaned})
	}
	return dropNested(sources)
}

// dropNested removes sources that lie inside another source, which already
// packs them.
func dropNested(sources []archiveSource) []archiveSource {
	out := make([]archiveSource, 0, len(sources))
	for i, src := range sources {
		nested := false
		for j, other := range sources {
			if i != j && src.abs != other.abs && isWithin(src.abs, other.abs) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, src)
		}
	}
	return out
}

// collect lists everything under src. fastwalk invokes the callback from
// several goroutines, so results are gathered under a mutex and sorted by
// the caller before anything is written. skip is never included.
func (b *ArchiveBuilder) collect(ctx context.Context, src archiveSource, skip string) ([]archiveItem, error) {
	info, err := os.Stat(src.abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			b.Logger.Debug("Skipping special file", zap.String("entry", src.name))
			return nil, nil
		}
		return []archiveItem{{src: src.abs, name: src.name, info: info}}, nil
	}

	var (
		mu    sync.Mutex
		items []archiveItem
	)
	if src.name != "" {
		items = append(items, archiveItem{src: src.abs, name: src.name, info: info})
	}

	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, src.abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == src.abs || p == skip {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src.abs, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.Count(rel, "/")+1 > b.maxDepth {
			return types.Errorf(types.KindInvalidArgument, "archive", "", "directory nesting exceeds %d levels", b.maxDepth)
		}
		if storageRel, ok := b.Resolver.RelOf(p); ok && b.Filter.Excluded(storageRel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		item := archiveItem{src: p, name: joinRel(src.name, rel)}
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			target, err := filepath.EvalSymlinks(p)
			if err != nil || !b.Resolver.Contains(target) {
				b.Logger.Debug("Skipping symlink outside root", zap.String("entry", item.name))
				return nil
			}
			ti, err := os.Stat(target)
			if err != nil || !ti.Mode().IsRegular() {
				b.Logger.Debug("Skipping non-file symlink", zap.String("entry", item.name))
				return nil
			}
			item.src, item.info = target, ti
		case d.IsDir(), d.Type().IsRegular():
			fi, err := d.Info()
			if err != nil {
				return err
			}
			item.info = fi
		default:
			b.Logger.Debug("Skipping special file", zap.String("entry", item.name))
			return nil
		}

		mu.Lock()
		items = append(items, item)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func sortItems(items []archiveItem) {
	sort.Slice(items, func(i, j int) bool { return items[i].name < items[j].name })
}

// writeFile creates dest exclusively and writes the archive into it. On
// any failure, or when the result is empty, dest is removed.
func (b *ArchiveBuilder) writeFile(ctx context.Context, dest string, f Format, items []archiveItem) (int64, error) {
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return 0, err
	}

	err = writeArchive(ctx, out, f, items, b.open)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return 0, err
	}

	info, err := os.Stat(dest)
	if err != nil {
		os.Remove(dest)
		return 0, err
	}
	if info.Size() == 0 {
		os.Remove(dest)
		return 0, types.Errorf(types.KindInternal, "archive", "", "archive is empty")
	}
	return info.Size(), nil
}

func writeArchive(ctx context.Context, w io.Writer, f Format, items []archiveItem, open func(string) (io.ReadCloser, error)) error {
	aw, err := newArchiveWriter(w, f)
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			aw.Close()
			return err
		}
		if err := addItem(aw, it, open); err != nil {
			aw.Close()
			return err
		}
	}
	return aw.Close()
}

func addItem(aw archiveWriter, it archiveItem, open func(string) (io.ReadCloser, error)) error {
	if it.info.IsDir() {
		return aw.writeDir(it.name, it.info)
	}
	file, err := open(it.src)
	if err != nil {
		return err
	}
	defer file.Close()
	return aw.writeFile(it.name, it.info, file)
}

// archiveWriter is implemented by the ZIP and TAR backends.
type archiveWriter interface {
	writeDir(name string, info fs.FileInfo) error
	writeFile(name string, info fs.FileInfo, r io.Reader) error
	Close() error
}

func newArchiveWriter(w io.Writer, f Format) (archiveWriter, error) {
	if !f.Tar {
		return &zipArchive{zw: zip.NewWriter(w)}, nil
	}

	ta := &tarArchive{}
	switch f.Compression {
	case compressGzip:
		ta.comp = gzip.NewWriter(w)
	case compressZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		ta.comp = enc
	}
	if ta.comp != nil {
		ta.tw = tar.NewWriter(ta.comp)
	} else {
		ta.tw = tar.NewWriter(w)
	}
	return ta, nil
}

type zipArchive struct {
	zw *zip.Writer
}

func (z *zipArchive) writeDir(name string, info fs.FileInfo) error {
	h, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	h.Name = name + "/"
	h.Method = zip.Store
	h.UncompressedSize64 = 0
	_, err = z.zw.CreateHeader(h)
	return err
}

func (z *zipArchive) writeFile(name string, info fs.FileInfo, r io.Reader) error {
	h, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	h.Name = name
	h.Method = zip.Deflate
	w, err := z.zw.CreateHeader(h)
	if err != nil {
		return err
	}
	n, err := io.Copy(w, r)
	if err != nil {
		return err
	}
	if n != info.Size() {
		return fmt.Errorf("%s changed while archiving", name)
	}
	return nil
}

func (z *zipArchive) Close() error {
	return z.zw.Close()
}

type tarArchive struct {
	tw   *tar.Writer
	comp io.WriteCloser
}

func (t *tarArchive) writeDir(name string, info fs.FileInfo) error {
	h, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	h.Name = name + "/"
	return t.tw.WriteHeader(h)
}

func (t *tarArchive) writeFile(name string, info fs.FileInfo, r io.Reader) error {
	h, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	h.Name = name
	if err := t.tw.WriteHeader(h); err != nil {
		return err
	}
	if _, err := io.CopyN(t.tw, r, info.Size()); err != nil {
		return fmt.Errorf("%s changed while archiving: %w", name, err)
	}
	return nil
}

func (t *tarArchive) Close() error {
	err := t.tw.Close()
	if t.comp != nil {
		if cerr := t.comp.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
