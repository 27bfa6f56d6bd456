package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/filedesk/internal/shared/paths"
	"github.com/GriffinCanCode/filedesk/internal/shared/types"
	"github.com/GriffinCanCode/filedesk/internal/shared/utils"
)

// DefaultChunkSize is used when a caller passes a non-positive chunk size.
const DefaultChunkSize = 8192

// Download is an open file ready to stream. Close it when done.
type Download struct {
	Name        string
	Path        string
	ContentType string
	Size        int64
	ModTime     time.Time

	file *os.File
}

// OpenFile resolves name inside dir and opens it for streaming. Symlinks
// are followed only when they land inside the root.
func (t *Transfer) OpenFile(ctx context.Context, dir, name string) (*Download, error) {
	if strings.TrimSpace(name) == "" {
		return nil, types.Errorf(types.KindInvalidArgument, "download", "", "file name is required")
	}
	target, err := t.Resolver.Resolve(paths.Join(dir, name))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(target.Abs)
	if err != nil {
		return nil, types.FromOS("download", target.Rel, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, types.FromOS("download", target.Rel, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, types.New(types.KindNotAFile, "download", target.Rel)
	}

	display := utils.RepairName(target.Name())
	return &Download{
		Name:        display,
		Path:        target.Rel,
		ContentType: ContentTypeFor(display),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		file:        f,
	}, nil
}

// Stream copies the file to w in chunks of chunkSize bytes, stopping early
// when ctx is cancelled.
func (d *Download) Stream(ctx context.Context, w io.Writer, chunkSize int) (int64, error) {
	return streamChunks(ctx, w, d.file, chunkSize)
}

// Close releases the underlying file.
func (d *Download) Close() error {
	return d.file.Close()
}

// StreamFile streams an arbitrary file, such as a staged archive, in chunks.
func StreamFile(ctx context.Context, w io.Writer, name string, chunkSize int) (int64, error) {
	f, err := os.Open(name)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return streamChunks(ctx, w, f, chunkSize)
}

func streamChunks(ctx context.Context, w io.Writer, r io.Reader, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
			if m != n {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

// ContentDisposition builds an attachment header carrying an ASCII
// fallback filename and the exact UTF-8 name as an RFC 5987 parameter.
func ContentDisposition(name string) string {
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiFallback(name), encodeExtValue(name))
}

func asciiFallback(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == utf8.RuneError, r < 0x20, r >= 0x7f:
			b.WriteByte('_')
		case r == '"', r == '\\':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), " ")
	if strings.Trim(out, "_.") == "" {
		ext := ""
		if _, e := utils.SplitExt(out); e != "" && strings.Trim(e, "_.") != "" {
			ext = e
		}
		return "download" + ext
	}
	return out
}

// encodeExtValue percent-encodes everything outside the RFC 5987 attr-char
// set.
func encodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}

// LogDownload records a finished download.
func (t *Transfer) LogDownload(path string, written int64, err error) {
	if err != nil {
		t.Logger.Warn("Download interrupted", zap.String("path", path), zap.Int64("bytes", written), zap.Error(err))
		return
	}
	t.Logger.Info("Downloaded file", zap.String("path", path), zap.Int64("bytes", written))
}
