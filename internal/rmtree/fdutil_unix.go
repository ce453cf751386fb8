//go:build unix

package rmtree

import "os"

// fdToFile wraps a raw fd in an *os.File so Readdirnames can be reused
// instead of hand-rolling getdents parsing. The returned File's Close
// closes the duplicated fd only, never the original directory fd it was
// dup'd from.
func fdToFile(fd int) *os.File {
	return os.NewFile(uintptr(fd), "")
}
