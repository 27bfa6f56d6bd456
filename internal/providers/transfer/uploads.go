package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/filedesk/internal/providers/filesystem"
	"github.com/GriffinCanCode/filedesk/internal/shared/types"
	"github.com/GriffinCanCode/filedesk/internal/shared/utils"
)

// maxCollisions bounds the name_N search for one upload.
const maxCollisions = 10000

// UploadItem is one file of a multipart submission.
type UploadItem struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// ItemResult is the outcome for one uploaded item.
type ItemResult struct {
	Name        string `json:"name"`
	StoredName  string `json:"storedName,omitempty"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
	Error       string `json:"error,omitempty"`
}

// UploadResult reports a batch upload. The batch succeeded when at least
// one item was stored.
type UploadResult struct {
	Dir      string       `json:"dir"`
	Uploaded []string     `json:"uploaded"`
	Warnings []string     `json:"warnings,omitempty"`
	Items    []ItemResult `json:"items"`
}

// Succeeded reports whether any item was stored.
func (r *UploadResult) Succeeded() bool {
	return len(r.Uploaded) > 0
}

// Err joins the per-item failures, or returns nil when nothing failed.
func (r *UploadResult) Err() error {
	if len(r.Warnings) == 0 {
		return nil
	}
	return errors.New(strings.Join(r.Warnings, "; "))
}

// Upload stores items inside dir, creating it when missing. Items fail
// independently; only failures affecting the whole batch are returned as
// an error.
func (t *Transfer) Upload(ctx context.Context, dir string, items []UploadItem) (*UploadResult, error) {
	target, err := t.Resolver.ResolveCreatable(dir)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(target.Abs); err == nil && !info.IsDir() {
		return nil, types.New(types.KindNotADirectory, "upload", target.Rel)
	}
	if err := t.EnsureDirectory(target.Abs, target.Rel); err != nil {
		return nil, err
	}

	result := &UploadResult{Dir: target.Rel, Uploaded: []string{}, Items: []ItemResult{}}
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Browsers submit an empty part when no file was picked.
		if item.Filename == "" && item.Size == 0 {
			continue
		}

		res := t.storeItem(target.Abs, target.Rel, i, item)
		if res.Error != "" {
			display := res.Name
			if display == "" {
				display = fmt.Sprintf("item %d", i+1)
			}
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", display, res.Error))
		} else {
			result.Uploaded = append(result.Uploaded, res.StoredName)
		}
		result.Items = append(result.Items, res)
	}
	return result, nil
}

func (t *Transfer) storeItem(dirAbs, dirRel string, index int, item UploadItem) ItemResult {
	res := ItemResult{Name: utils.RepairName(baseName(item.Filename)), Size: item.Size}

	if t.maxFileSize > 0 && item.Size > t.maxFileSize {
		res.Error = fmt.Sprintf("file exceeds the %s limit", filesystem.FormatBytes(t.maxFileSize))
		t.Logger.Warn("Upload rejected", zap.String("name", res.Name), zap.Int64("size", item.Size))
		return res
	}

	stored, written, err := t.write(dirAbs, t.storedName(res.Name, index), item)
	if err != nil {
		res.Error = types.MessageOf(err)
		t.Logger.Warn("Upload failed", zap.String("dir", dirRel), zap.String("name", res.Name), zap.Error(err))
		return res
	}

	res.StoredName = stored
	res.Size = written
	res.ContentType = DefaultContentType
	if mt, err := mimetype.DetectFile(filepath.Join(dirAbs, stored)); err == nil {
		res.ContentType = mt.String()
	}

	t.Logger.Info("Uploaded file",
		zap.String("path", joinRel(dirRel, stored)),
		zap.Int64("size", written),
		zap.String("contentType", res.ContentType),
	)
	return res
}

// storedName sanitizes name, generating one when nothing usable is left.
func (t *Transfer) storedName(name string, index int) string {
	if clean := utils.SanitizeFilename(name); clean != "" {
		return clean
	}
	ext := ""
	if _, e := utils.SplitExt(name); e != "" {
		if s := utils.SanitizeFilename(strings.TrimPrefix(e, ".")); s != "" && "."+s == e {
			ext = e
		}
	}
	return fmt.Sprintf("file_%d_%d%s", t.now().Unix(), index, ext)
}

// write reserves a free name with exclusive creation and copies the item
// into it. Partial files are removed.
func (t *Transfer) write(dirAbs, name string, item UploadItem) (string, int64, error) {
	out, stored, err := createUnique(dirAbs, name)
	if err != nil {
		return "", 0, err
	}
	dest := filepath.Join(dirAbs, stored)

	written, err := copyItem(out, item, t.maxFileSize)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = types.FromOS("upload", stored, cerr)
	}
	if err != nil {
		os.Remove(dest)
		return "", 0, err
	}
	return stored, written, nil
}

func copyItem(out io.Writer, item UploadItem, maxSize int64) (int64, error) {
	if item.Open == nil {
		return 0, types.Errorf(types.KindTransport, "upload", "", "upload has no content")
	}
	src, err := item.Open()
	if err != nil {
		return 0, types.E(types.KindTransport, "upload", "", err)
	}
	defer src.Close()

	var r io.Reader = src
	if maxSize > 0 {
		r = io.LimitReader(src, maxSize+1)
	}
	written, err := io.Copy(out, r)
	if err != nil {
		return written, types.Errorf(types.KindTransport, "upload", "", "transfer interrupted: %v", err)
	}
	if maxSize > 0 && written > maxSize {
		return written, types.Errorf(types.KindInvalidArgument, "upload", "", "file exceeds the %s limit", filesystem.FormatBytes(maxSize))
	}
	if item.Size >= 0 && written != item.Size {
		return written, types.Errorf(types.KindTransport, "upload", "", "incomplete upload: received %d of %d bytes", written, item.Size)
	}
	return written, nil
}

// createUnique opens name exclusively, falling back to name_1.ext, name_2.ext
// and so on.
func createUnique(dirAbs, name string) (*os.File, string, error) {
	base, ext := utils.SplitExt(name)
	candidate := name
	for n := 1; n <= maxCollisions; n++ {
		f, err := os.OpenFile(filepath.Join(dirAbs, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", types.FromOS("upload", candidate, err)
		}
		candidate = withSuffix(base, ext, n)
	}
	return nil, "", types.Errorf(types.KindAlreadyExists, "upload", name, "too many files named %s", name)
}

// withSuffix builds base_n+ext, shortening base so the result stays within
// the name length limit.
func withSuffix(base, ext string, n int) string {
	suffix := fmt.Sprintf("_%d", n)
	limit := utils.MaxNameBytes - len(suffix) - len(ext)
	if limit < 1 {
		ext = ""
		limit = utils.MaxNameBytes - len(suffix)
	}
	if len(base) > limit {
		for limit > 0 && !utf8.RuneStart(base[limit]) {
			limit--
		}
		base = base[:limit]
	}
	return base + suffix + ext
}

// baseName drops any client-side directory, including Windows paths.
func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
