package filesystem

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collator orders listing entries: directories first, then names by
// locale-aware, case-insensitive, numeric-aware collation.
type Collator struct {
	tag language.Tag
}

// NewCollator builds a collator for a BCP-47 locale. Unparseable locales
// fall back to the root collation.
func NewCollator(locale string) *Collator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Collator{tag: tag}
}

// Sort orders entries in place.
func (c *Collator) Sort(entries []FileEntry) {
	// collate.Collator keeps internal buffers and is not safe to share
	// between concurrent requests.
	col := collate.New(c.tag, collate.Loose, collate.Numeric)
	sort.SliceStable(entries, func(i, j int) bool {
		return c.less(col, entries[i], entries[j])
	})
}

func (c *Collator) less(col *collate.Collator, a, b FileEntry) bool {
	if a.IsDir() != b.IsDir() {
		return a.IsDir()
	}
	if r := col.CompareString(a.Name, b.Name); r != 0 {
		return r < 0
	}
	return strings.Compare(a.Name, b.Name) < 0
}
