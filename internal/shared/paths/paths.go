package paths

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/filedesk/internal/shared/types"
)

// StoragePath is a location inside the storage root. Abs is only ever
// populated after the confinement check has passed.
type StoragePath struct {
	Raw string // client input, untrusted
	Rel string // cleaned, slash separated, "" for the root
	Abs string // canonical absolute host path
}

// IsRoot reports whether p is the storage root itself.
func (p StoragePath) IsRoot() bool {
	return p.Rel == ""
}

// Name returns the last element of the relative path.
func (p StoragePath) Name() string {
	if p.Rel == "" {
		return ""
	}
	return path.Base(p.Rel)
}

// Resolver maps relative paths onto a canonical storage root.
type Resolver struct {
	root string
}

// NewResolver canonicalizes root, which must be an existing directory.
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage root: %w", err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("storage root: %w", err)
	}
	info, err := os.Stat(canon)
	if err != nil {
		return nil, fmt.Errorf("storage root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage root %s is not a directory", canon)
	}
	return &Resolver{root: canon}, nil
}

// Root returns the canonical storage root.
func (r *Resolver) Root() string {
	return r.root
}

// Contains reports whether the canonical path p is the root or below it.
func (r *Resolver) Contains(p string) bool {
	if p == r.root {
		return true
	}
	prefix := r.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}

// Resolve resolves raw to an existing, confined location.
func (r *Resolver) Resolve(raw string) (StoragePath, error) {
	rel, err := Clean(raw)
	if err != nil {
		return StoragePath{}, types.E(types.KindOutsideRoot, "resolve", raw, err)
	}

	candidate := r.abs(rel)
	canon, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Report NotFound only when the part that does exist is confined.
			if _, aerr := r.ResolveCreatable(raw); aerr != nil && types.KindOf(aerr) == types.KindOutsideRoot {
				return StoragePath{}, aerr
			}
		}
		return StoragePath{}, types.FromOS("resolve", rel, err)
	}
	if !r.Contains(canon) {
		return StoragePath{}, types.New(types.KindOutsideRoot, "resolve", rel)
	}
	return StoragePath{Raw: raw, Rel: rel, Abs: canon}, nil
}

// ResolveEntry resolves raw to an existing directory entry without following
// a symlink in the final component, so operations act on the link itself.
// The parent is canonicalized and confinement checked as in Resolve.
func (r *Resolver) ResolveEntry(raw string) (StoragePath, error) {
	rel, err := Clean(raw)
	if err != nil {
		return StoragePath{}, types.E(types.KindOutsideRoot, "resolve", raw, err)
	}
	if rel == "" {
		return StoragePath{Raw: raw, Rel: rel, Abs: r.root}, nil
	}

	parent, err := r.Resolve(path.Dir(rel))
	if err != nil {
		return StoragePath{}, err
	}
	abs := filepath.Join(parent.Abs, path.Base(rel))
	if _, err := os.Lstat(abs); err != nil {
		return StoragePath{}, types.FromOS("resolve", rel, err)
	}
	return StoragePath{Raw: raw, Rel: rel, Abs: abs}, nil
}

// ResolveCreatable resolves raw to a location that may not exist yet. The
// deepest existing ancestor is canonicalized and confinement checked; the
// missing tail is appended to it verbatim.
func (r *Resolver) ResolveCreatable(raw string) (StoragePath, error) {
	rel, err := Clean(raw)
	if err != nil {
		return StoragePath{}, types.E(types.KindOutsideRoot, "resolve", raw, err)
	}

	var segs []string
	if rel != "" {
		segs = strings.Split(rel, "/")
	}

	i := len(segs)
	for ; i > 0; i-- {
		_, err := os.Lstat(r.abs(strings.Join(segs[:i], "/")))
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return StoragePath{}, types.FromOS("resolve", rel, err)
		}
	}

	existing := strings.Join(segs[:i], "/")
	canon, err := filepath.EvalSymlinks(r.abs(existing))
	if err != nil {
		return StoragePath{}, types.FromOS("resolve", existing, err)
	}
	if !r.Contains(canon) {
		return StoragePath{}, types.New(types.KindOutsideRoot, "resolve", rel)
	}

	if i < len(segs) {
		info, err := os.Stat(canon)
		if err != nil {
			return StoragePath{}, types.FromOS("resolve", existing, err)
		}
		if !info.IsDir() {
			return StoragePath{}, types.New(types.KindNotADirectory, "resolve", existing)
		}
	}

	abs := filepath.Join(append([]string{canon}, segs[i:]...)...)
	return StoragePath{Raw: raw, Rel: rel, Abs: abs}, nil
}

// RelOf converts a canonical absolute path below the root back to a
// slash-separated relative path.
func (r *Resolver) RelOf(abs string) (string, bool) {
	if !r.Contains(abs) {
		return "", false
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return "", false
	}
	if rel == "." {
		return "", true
	}
	return filepath.ToSlash(rel), true
}

func (r *Resolver) abs(rel string) string {
	if rel == "" {
		return r.root
	}
	return filepath.Join(r.root, filepath.FromSlash(rel))
}

// Clean normalizes a client path. It rejects NUL bytes, ".." segments and
// absolute inputs, drops backslashes and trailing slashes and collapses
// "." segments. The empty string denotes the root.
func Clean(raw string) (string, error) {
	if strings.ContainsRune(raw, 0) {
		return "", errors.New("path contains NUL byte")
	}
	if isAbsolute(raw) {
		return "", errors.New("absolute paths are not allowed")
	}
	for _, seg := range strings.FieldsFunc(raw, isSeparator) {
		if seg == ".." {
			return "", errors.New("parent directory references are not allowed")
		}
	}

	cleaned := strings.ReplaceAll(raw, `\`, "")
	cleaned = strings.Trim(cleaned, "/")
	if cleaned == "" {
		return "", nil
	}
	cleaned = path.Clean(cleaned)
	if cleaned == "." {
		return "", nil
	}
	return cleaned, nil
}

// Join concatenates client path fragments without cleaning them; the
// result still has to go through a Resolver.
func Join(dir, name string) string {
	switch {
	case dir == "":
		return name
	case name == "":
		return dir
	default:
		return strings.TrimRight(dir, `/\`) + "/" + name
	}
}

func isAbsolute(raw string) bool {
	if raw == "" {
		return false
	}
	if raw[0] == '/' || raw[0] == '\\' {
		return true
	}
	if filepath.VolumeName(raw) != "" {
		return true
	}
	// Drive letters are rejected on every host.
	return len(raw) >= 2 && raw[1] == ':' && isLetter(raw[0])
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
