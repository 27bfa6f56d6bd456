package filesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	f, err := NewFilter([]string{"*.tmp", "**/node_modules", "", ".cache/**"})
	require.NoError(t, err)
	assert.Equal(t, []string{"*.tmp", "**/node_modules", ".cache/**"}, f.Patterns())

	assert.True(t, f.Excluded("x.tmp"))
	assert.True(t, f.Excluded("a/b/x.tmp"))
	assert.True(t, f.Excluded("web/node_modules"))
	assert.True(t, f.Excluded("node_modules"))
	assert.True(t, f.Excluded(".cache/thumbs/1.png"))
	assert.False(t, f.Excluded("x.txt"))
	assert.False(t, f.Excluded(""))

	var nilFilter *Filter
	assert.False(t, nilFilter.Excluded("x.tmp"))
	assert.Nil(t, nilFilter.Patterns())
}

func TestFilterRejectsBadPatterns(t *testing.T) {
	_, err := NewFilter([]string{"[unclosed"})
	assert.Error(t, err)
}

func TestIconFor(t *testing.T) {
	assert.Equal(t, "fas fa-folder", IconFor("photos.jpg", true))
	assert.Equal(t, "fas fa-file-image", IconFor("photo.JPG", false))
	assert.Equal(t, "fas fa-file-archive", IconFor("b.tar.zst", false))
	assert.Equal(t, "fas fa-file-code", IconFor("main.go", false))
	assert.Equal(t, "fas fa-file", IconFor("Makefile", false))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", FormatBytes(0))
	assert.Equal(t, "1023 B", FormatBytes(1023))
	assert.Equal(t, "1.00 KB", FormatBytes(1024))
	assert.Equal(t, "1.50 MB", FormatBytes(1536*1024))
	assert.Equal(t, "2.00 GB", FormatBytes(2<<30))
}
