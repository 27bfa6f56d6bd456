package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// JSON size limits (in bytes)
const (
	MaxJSONSize = 1 * 1024 * 1024 // 1MB - maximum JSON request body
)

// MaxNameBytes is the longest file or directory name accepted, in bytes.
const MaxNameBytes = 255

var (
	// folderHostile are replaced in directory and archive names.
	folderHostile = strings.NewReplacer(
		"<", "_", ">", "_", ":", "_", `"`, "_", "|", "_",
		"?", "_", "*", "_", "/", "_", `\`, "_",
	)
	underscoreRun = regexp.MustCompile(`_+`)
)

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {},
	"COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {},
	"LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// JSONSizeValidator validates JSON size limits
type JSONSizeValidator struct {
	maxSize int
}

// NewJSONSizeValidator creates a new validator with the specified max size
func NewJSONSizeValidator(maxSize int) *JSONSizeValidator {
	return &JSONSizeValidator{maxSize: maxSize}
}

// DefaultJSONValidator returns a validator with the default 1MB limit
func DefaultJSONValidator() *JSONSizeValidator {
	return NewJSONSizeValidator(MaxJSONSize)
}

// MaxSize returns the configured limit.
func (v *JSONSizeValidator) MaxSize() int {
	return v.maxSize
}

// ValidateSize checks if the data size is within limits
func (v *JSONSizeValidator) ValidateSize(data []byte) error {
	size := len(data)
	if size > v.maxSize {
		return fmt.Errorf("JSON size %d bytes exceeds maximum %d bytes", size, v.maxSize)
	}
	return nil
}

// IsReservedName reports whether name is a device name that Windows
// refuses to create, compared case-insensitively.
func IsReservedName(name string) bool {
	_, ok := reservedNames[strings.ToUpper(name)]
	return ok
}

// ValidateName checks a single path component after sanitizing.
func ValidateName(name, fieldName string) error {
	if name == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if len(name) > MaxNameBytes {
		return fmt.Errorf("%s must not exceed %d bytes", fieldName, MaxNameBytes)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%s %q is not allowed", fieldName, name)
	}
	if IsReservedName(name) {
		return fmt.Errorf("%s %q is a reserved name", fieldName, name)
	}
	return nil
}

// SanitizeFolderName replaces characters that are unsafe in a directory
// name and trims surrounding spaces and dots.
func SanitizeFolderName(name string) string {
	name = stripControl(name)
	name = folderHostile.Replace(name)
	return strings.Trim(name, " .")
}

// SanitizeArchiveName applies the folder rules to an archive base name.
func SanitizeArchiveName(name string) string {
	return SanitizeFolderName(name)
}

// SanitizeFilename cleans an uploaded file name. It may return "" when
// nothing usable is left; callers then generate a name.
func SanitizeFilename(name string) string {
	name = strings.ToValidUTF8(name, "_")
	name = stripControl(name)
	name = folderHostile.Replace(name)
	name = underscoreRun.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_. ")
	return TruncateName(name, MaxNameBytes)
}

// TruncateName shortens name to at most max bytes, keeping the extension
// and never splitting a UTF-8 sequence.
func TruncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) >= max/2 {
		ext = ""
	}
	base := name[:len(name)-len(ext)]
	limit := max - len(ext)
	for limit > 0 && !utf8.RuneStart(base[limit]) {
		limit--
	}
	return base[:limit] + ext
}

// SplitExt splits name into stem and extension (extension includes the dot).
func SplitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
