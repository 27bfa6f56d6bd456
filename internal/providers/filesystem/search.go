package filesystem

import (
	"fmt"
	"path"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter hides entries matching any of a set of doublestar patterns from
// listings and archives. Patterns are matched against the root-relative
// path and against the base name, so "*.tmp" and "**/cache/**" both work.
type Filter struct {
	patterns []string
}

// NewFilter validates patterns and returns a filter over them.
func NewFilter(patterns []string) (*Filter, error) {
	clean := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
		clean = append(clean, p)
	}
	return &Filter{patterns: clean}, nil
}

// Excluded reports whether rel should be hidden. A nil filter hides nothing.
func (f *Filter) Excluded(rel string) bool {
	if f == nil || rel == "" {
		return false
	}
	base := path.Base(rel)
	for _, p := range f.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
	}
	return false
}

// Patterns returns the active patterns.
func (f *Filter) Patterns() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.patterns...)
}
