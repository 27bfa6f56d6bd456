package system

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/filedesk/internal/shared/paths"
)

func newTestProvider(t *testing.T) (*Provider, string) {
	t.Helper()
	r, err := paths.NewResolver(t.TempDir())
	require.NoError(t, err)
	return NewProvider(Options{
		Resolver: r,
		TempDir:  t.TempDir(),
		Limits:   Limits{MaxUploadSize: 1 << 20, DownloadChunkSize: 8192},
		Archive:  ArchiveInfo{Formats: []string{"zip"}, MaxDepth: 64},
	}), r.Root()
}

func TestDiagnostics(t *testing.T) {
	sys, root := newTestProvider(t)

	report, err := sys.Diagnostics(context.Background(), RequestInfo{Method: "GET", UserAgent: "test"}, false)
	require.NoError(t, err)

	assert.Equal(t, runtime.Version(), report.Runtime.GoVersion)
	assert.Equal(t, runtime.GOOS, report.Runtime.OS)
	assert.Positive(t, report.Runtime.CPUs)

	assert.Equal(t, root, report.Storage.Root)
	assert.True(t, report.Storage.Exists)
	assert.True(t, report.Storage.IsDir)
	assert.True(t, report.Storage.Readable)
	assert.True(t, report.Storage.Writable)
	assert.Equal(t, "ok", report.Storage.WriteTest)
	assert.Len(t, report.Storage.Permissions, 4)
	assert.True(t, report.Temp.Writable)

	assert.Equal(t, int64(1<<20), report.Limits.MaxUploadSize)
	assert.Equal(t, []string{"zip"}, report.Archive.Formats)
	assert.Equal(t, "test", report.Request.UserAgent)
	assert.Nil(t, report.Usage)

	// The probe leaves nothing behind.
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiagnosticsUsage(t *testing.T) {
	sys, root := newTestProvider(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "x.txt"), []byte("12345"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "y.txt"), []byte("123"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "loop")))

	report, err := sys.Diagnostics(context.Background(), RequestInfo{}, true)
	require.NoError(t, err)
	require.NotNil(t, report.Usage)
	assert.Equal(t, &Usage{Files: 2, Directories: 2, Bytes: 8}, report.Usage)
}

func TestDiagnosticsMissingRoot(t *testing.T) {
	sys, root := newTestProvider(t)
	require.NoError(t, os.Remove(root))

	report, err := sys.Diagnostics(context.Background(), RequestInfo{}, false)
	require.NoError(t, err)
	assert.False(t, report.Storage.Exists)
	assert.False(t, report.Storage.Writable)
	assert.NotEqual(t, "ok", report.Storage.WriteTest)
}

func TestDiagnosticsJSONShape(t *testing.T) {
	sys, _ := newTestProvider(t)
	report, err := sys.Diagnostics(context.Background(), RequestInfo{}, false)
	require.NoError(t, err)

	data, err := sonic.Marshal(report)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, sonic.Unmarshal(data, &doc))
	for _, key := range []string{"runtime", "storage", "temp", "limits", "archive", "request"} {
		assert.Contains(t, doc, key)
	}
	assert.NotContains(t, doc, "usage")
	assert.Contains(t, doc["storage"], "writeTest")
}
