package filesystem

import (
	"strings"

	"github.com/GriffinCanCode/filedesk/internal/shared/types"
)

// Compression applied to a TAR stream.
const (
	compressNone = ""
	compressGzip = "gzip"
	compressZstd = "zstd"
)

// Format describes one archive output format.
type Format struct {
	Name        string
	Ext         string
	ContentType string
	Tar         bool
	Compression string
}

// Method names the writer used, as reported to clients.
func (f Format) Method() string {
	if !f.Tar {
		return "zip"
	}
	if f.Compression == compressNone {
		return "tar"
	}
	return "tar+" + f.Compression
}

var (
	formatZip    = Format{Name: "zip", Ext: ".zip", ContentType: "application/zip"}
	formatTar    = Format{Name: "tar", Ext: ".tar", ContentType: "application/x-tar", Tar: true}
	formatTarGz  = Format{Name: "tar.gz", Ext: ".tar.gz", ContentType: "application/gzip", Tar: true, Compression: compressGzip}
	formatTarZst = Format{Name: "tar.zst", Ext: ".tar.zst", ContentType: "application/zstd", Tar: true, Compression: compressZstd}
)

var formatsByName = map[string]Format{
	"zip":     formatZip,
	"tar":     formatTar,
	"tar.gz":  formatTarGz,
	"tgz":     formatTarGz,
	"gzip":    formatTarGz,
	"tar.zst": formatTarZst,
	"zstd":    formatTarZst,
}

// ParseFormat looks up a format by name. The empty name selects ZIP. TAR
// formats fail with KindFormatUnsupported when tarEnabled is false.
func ParseFormat(name string, tarEnabled bool) (Format, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return formatZip, nil
	}
	f, ok := formatsByName[key]
	if !ok {
		return Format{}, types.Errorf(types.KindFormatUnsupported, "archive", "", "unsupported archive format %q", name)
	}
	if f.Tar && !tarEnabled {
		return Format{}, types.Errorf(types.KindFormatUnsupported, "archive", "", "tar archives are disabled")
	}
	return f, nil
}

// SupportedFormats lists the canonical format names currently accepted.
func SupportedFormats(tarEnabled bool) []string {
	if !tarEnabled {
		return []string{formatZip.Name}
	}
	return []string{formatZip.Name, formatTar.Name, formatTarGz.Name, formatTarZst.Name}
}

// trimFormatExt removes a trailing extension that matches f, so "backup.zip"
// does not become "backup.zip.zip".
func trimFormatExt(name string, f Format) string {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, f.Ext) {
		return name[:len(name)-len(f.Ext)]
	}
	if f == formatTarGz && strings.HasSuffix(lower, ".tgz") {
		return name[:len(name)-len(".tgz")]
	}
	return name
}
