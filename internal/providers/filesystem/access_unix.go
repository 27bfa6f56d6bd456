//go:build unix

package filesystem

import "golang.org/x/sys/unix"

// writable reports whether the process may write to path.
func writable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}
