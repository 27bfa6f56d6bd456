package transfer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/filedesk/internal/shared/types"
)

// chunkRecorder records the size of every write.
type chunkRecorder struct {
	bytes.Buffer
	writes []int
}

func (c *chunkRecorder) Write(p []byte) (int, error) {
	c.writes = append(c.writes, len(p))
	return c.Buffer.Write(p)
}

func TestOpenFileAndStream(t *testing.T) {
	tr, _, root := newTestTransfer(t, Config{})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "Отчет.pdf"), []byte("0123456789"), 0o644))

	d, err := tr.OpenFile(context.Background(), "docs", "Отчет.pdf")
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, "Отчет.pdf", d.Name)
	assert.Equal(t, "docs/Отчет.pdf", d.Path)
	assert.Equal(t, "application/pdf", d.ContentType)
	assert.Equal(t, int64(10), d.Size)

	var out chunkRecorder
	n, err := d.Stream(context.Background(), &out, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.Equal(t, "0123456789", out.String())
	assert.Equal(t, []int{4, 4, 2}, out.writes)
}

func TestOpenFileErrors(t *testing.T) {
	tr, _, root := newTestTransfer(t, Config{})
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("s"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "link.txt")))
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0o755))
	ctx := context.Background()

	tests := []struct {
		dir, name string
		want      types.Kind
	}{
		{"", "dir", types.KindNotAFile},
		{"", "missing.txt", types.KindNotFound},
		{"..", "etc/passwd", types.KindOutsideRoot},
		{"", "/etc/passwd", types.KindOutsideRoot},
		{"", "link.txt", types.KindOutsideRoot},
		{"", "", types.KindInvalidArgument},
	}
	for _, tt := range tests {
		_, err := tr.OpenFile(ctx, tt.dir, tt.name)
		assert.Equal(t, tt.want, types.KindOf(err), "%s/%s", tt.dir, tt.name)
	}
}

func TestStreamStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(p, bytes.Repeat([]byte("x"), 100), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	n, err := StreamFile(ctx, &out, p, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)

	n, err = StreamFile(context.Background(), &out, p, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)

	_, err = StreamFile(context.Background(), &out, filepath.Join(dir, "missing"), 10)
	assert.Error(t, err)
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t,
		`attachment; filename="report.pdf"; filename*=UTF-8''report.pdf`,
		ContentDisposition("report.pdf"))

	assert.Equal(t,
		`attachment; filename="_____ 2024.pdf"; filename*=UTF-8''%D0%9E%D1%82%D1%87%D0%B5%D1%82%202024.pdf`,
		ContentDisposition("Отчет 2024.pdf"))

	assert.Equal(t,
		`attachment; filename="a_b_.txt"; filename*=UTF-8''a%22b%5C.txt`,
		ContentDisposition(`a"b\.txt`))

	assert.Equal(t,
		`attachment; filename="download"; filename*=UTF-8''%E6%96%87%E6%A1%A3`,
		ContentDisposition("文档"))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentTypeFor("a.PDF"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("photo.jpeg"))
	assert.Equal(t, "application/zip", ContentTypeFor("x.zip"))
	assert.Equal(t, "text/plain; charset=utf-8", ContentTypeFor("notes.txt"))
	assert.Equal(t, DefaultContentType, ContentTypeFor("binary"))
	assert.Equal(t, DefaultContentType, ContentTypeFor("x.unknown"))
}
