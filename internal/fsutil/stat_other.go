//go:build !unix

package fsutil

import "os"

// copyStatNoFollow is the non-unix fallback: Windows has no concept of
// per-symlink permission bits, and a reparse-point mtime write through the
// os package follows the same non-destructive path as everywhere else, so
// a plain Chtimes/Chmod pair is sufficient here.
func copyStatNoFollow(path string, info os.FileInfo) error {
	if err := os.Chtimes(path, info.ModTime(), info.ModTime()); err != nil {
		return err
	}
	return os.Chmod(path, info.Mode().Perm())
}

// hardLinkCount is unavailable without a platform-specific stat call; test
// helpers on this platform skip the link-count assertion instead of
// calling it.
func hardLinkCount(path string) (uint64, error) {
	return 0, os.ErrInvalid
}
