package filesystem

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// displayTimeLayout is the modification time format shown in listings.
const displayTimeLayout = "2006-01-02 15:04:05"

const (
	iconFolder  = "fas fa-folder"
	iconDefault = "fas fa-file"
)

var iconsByExt = map[string]string{
	// Images
	"jpg": "fas fa-file-image", "jpeg": "fas fa-file-image", "png": "fas fa-file-image",
	"gif": "fas fa-file-image", "bmp": "fas fa-file-image", "svg": "fas fa-file-image",
	"webp": "fas fa-file-image",

	// Documents
	"pdf": "fas fa-file-pdf",
	"doc": "fas fa-file-word", "docx": "fas fa-file-word",
	"xls": "fas fa-file-excel", "xlsx": "fas fa-file-excel",
	"ppt": "fas fa-file-powerpoint", "pptx": "fas fa-file-powerpoint",
	"txt": "fas fa-file-alt", "rtf": "fas fa-file-alt",

	// Archives
	"zip": "fas fa-file-archive", "rar": "fas fa-file-archive", "7z": "fas fa-file-archive",
	"tar": "fas fa-file-archive", "gz": "fas fa-file-archive", "zst": "fas fa-file-archive",

	// Code
	"html": "fas fa-file-code", "css": "fas fa-file-code", "js": "fas fa-file-code",
	"php": "fas fa-file-code", "py": "fas fa-file-code", "java": "fas fa-file-code",
	"cpp": "fas fa-file-code", "c": "fas fa-file-code", "go": "fas fa-file-code",

	// Audio
	"mp3": "fas fa-file-audio", "wav": "fas fa-file-audio", "flac": "fas fa-file-audio",
	"aac": "fas fa-file-audio",

	// Video
	"mp4": "fas fa-file-video", "avi": "fas fa-file-video", "mkv": "fas fa-file-video",
	"mov": "fas fa-file-video", "wmv": "fas fa-file-video",
}

// IconFor returns the Font Awesome class for an entry.
func IconFor(name string, isDir bool) string {
	if isDir {
		return iconFolder
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if icon, ok := iconsByExt[ext]; ok {
		return icon
	}
	return iconDefault
}

// FormatBytes formats bytes to human-readable size
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.2f %s", float64(bytes)/float64(div), units[exp])
}

// newFileEntry builds the listing entry for name inside dirRel.
func newFileEntry(dirRel, name string, info fs.FileInfo) FileEntry {
	isDir := info.IsDir()
	entry := FileEntry{
		Name:       name,
		Type:       KindFile,
		Modified:   info.ModTime().Format(displayTimeLayout),
		ModifiedAt: info.ModTime(),
		Path:       path.Join(dirRel, name),
		Icon:       IconFor(name, isDir),
	}
	if isDir {
		entry.Type = KindDirectory
	} else {
		entry.Size = info.Size()
	}
	entry.SizeHuman = FormatBytes(entry.Size)
	return entry
}
