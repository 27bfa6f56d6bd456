// Package paths confines client-supplied paths to the storage root.
//
// Every path that arrives over HTTP passes through a Resolver before any
// filesystem call is made. Resolution happens in two layers:
//   - Clean rejects NUL bytes, ".." segments and absolute inputs and
//     normalizes separators. This is a first filter only.
//   - Resolve / ResolveCreatable canonicalize against the live filesystem
//     (symlinks included) and require the result to be the root or one of
//     its descendants. This check is the security boundary.
//
// Example Usage:
//
//	r, err := paths.NewResolver("/srv/files")
//	dir, err := r.Resolve("photos/2024")
//	target, err := r.ResolveCreatable(paths.Join("photos", "new-album"))
package paths
