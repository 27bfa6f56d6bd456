package transfer

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/filedesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/filedesk/internal/providers/filesystem"
	"github.com/GriffinCanCode/filedesk/internal/shared/paths"
)

func newTestTransfer(t *testing.T, cfg Config) (*Transfer, *filesystem.FilesystemOps, string) {
	t.Helper()
	r, err := paths.NewResolver(t.TempDir())
	require.NoError(t, err)
	ops := filesystem.NewFilesystemOps(r, logging.NewNop(), nil)
	tr := New(ops, cfg)
	tr.now = func() time.Time { return time.Unix(1700000000, 0) }
	return tr, ops, r.Root()
}

func textItem(name, content string) UploadItem {
	return UploadItem{
		Filename: name,
		Size:     int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}
