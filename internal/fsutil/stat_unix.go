//go:build unix

package fsutil

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// copyStatNoFollow applies info's mtime and permission bits to path without
// ever dereferencing a trailing symlink: the mtime write always uses
// AT_SYMLINK_NOFOLLOW, and so does the mode write when info is a symlink
// (other nodes get a plain chmod). Linux reports ENOTSUP for an Fchmodat
// on a symlink, which is expected: symlink permission bits are meaningless
// there, so that one error is swallowed while a real chmod failure on a
// regular file or directory is not.
func copyStatNoFollow(path string, info os.FileInfo) error {
	mtime := info.ModTime()
	ts := []unix.Timespec{
		unix.NsecToTimespec(time.Now().UnixNano()),
		unix.NsecToTimespec(mtime.UnixNano()),
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, ts, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		err := unix.Fchmodat(unix.AT_FDCWD, path, uint32(info.Mode().Perm()), unix.AT_SYMLINK_NOFOLLOW)
		if err == unix.ENOTSUP || err == unix.EOPNOTSUPP {
			return nil
		}
		return err
	}
	return os.Chmod(path, info.Mode().Perm())
}

// hardLinkCount returns the link count the kernel is carrying for path,
// used by tests asserting that an unchanged seeded snapshot entry actually
// shares storage with its predecessor rather than having been copied.
func hardLinkCount(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Nlink), nil
}
