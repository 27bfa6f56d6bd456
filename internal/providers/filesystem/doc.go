// Package filesystem implements the file tree and archive operations of
// filedesk, all confined to a single storage root.
//
// This package is organized into specialized modules:
//   - directory: listing and directory creation
//   - basic: single and batch deletion
//   - operations: move with cross-device copy fallback
//   - archives, formats: ZIP and TAR construction
//   - metadata: sizes, icons and entry construction
//   - names: collation for listings
//   - search: exclusion patterns
//
// All operations:
//   - Resolve every client path through paths.Resolver before any I/O
//   - Report failures as *types.Error so callers can map them to responses
//   - Walk trees iteratively or with fastwalk, never by unbounded recursion
//
// Example Usage:
//
//	ops := filesystem.NewFilesystemOps(resolver, logger, filter)
//	tree := filesystem.NewFileTree(ops, "ru")
//	listing, err := tree.List(ctx, "docs")
package filesystem
