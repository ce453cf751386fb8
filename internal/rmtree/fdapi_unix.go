//go:build unix

package rmtree

import (
	"errors"

	"golang.org/x/sys/unix"
)

// errUnsupported signals "this strategy does not apply here"; Remove falls
// through to the tree or save-memory strategy whenever a strategy
// function returns it. The FD-API strategy never actually returns it on a
// unix build since the *at-family syscalls it needs are always present;
// it exists so rmtree.go can compare against one sentinel on every
// platform.
var errUnsupported = errors.New("rmtree: fd-api strategy unsupported on this platform")

// removeFDAPI walks path single-threaded using directory file descriptors
// throughout, so a concurrent rename/symlink swap at any level cannot
// trick it into operating outside the subtree it opened (the classic
// TOCTOU between a path-based stat and a path-based open). Two passes:
// countFDAPI tallies nodes for the progress indicator, then
// removeChildrenFD unlinks files and rmdirs directories bottom-up.
func removeFDAPI(path string, opts *Options) error {
	if opts.NumNodes != nil {
		dir, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
		if err != nil {
			return err
		}
		countFDAPI(dir, opts)
		unix.Close(dir)
	}

	opts.beginApply()

	dir, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(dir)
	if err := removeChildrenFD(dir, opts); err != nil {
		return err
	}
	return unix.Rmdir(path)
}

func countFDAPI(dirFD int, opts *Options) {
	fd, err := unix.Dup(dirFD)
	if err != nil {
		return
	}
	f := fdToFile(fd)
	names, err := f.Readdirnames(-1)
	f.Close()
	if err != nil {
		return
	}
	for _, name := range names {
		opts.countNode()
		var st unix.Stat_t
		if err := unix.Fstatat(dirFD, name, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
			continue
		}
		if st.Mode&unix.S_IFMT == unix.S_IFDIR {
			childFD, err := unix.Openat(dirFD, name, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
			if err != nil {
				continue
			}
			countFDAPI(childFD, opts)
			unix.Close(childFD)
		}
	}
}

func removeChildrenFD(dirFD int, opts *Options) error {
	fd, err := unix.Dup(dirFD)
	if err != nil {
		return err
	}
	f := fdToFile(fd)
	names, err := f.Readdirnames(-1)
	f.Close()
	if err != nil {
		return err
	}

	for _, name := range names {
		var st unix.Stat_t
		if err := unix.Fstatat(dirFD, name, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
			continue
		}
		opts.countApplied()
		if st.Mode&unix.S_IFMT == unix.S_IFDIR {
			childFD, err := unix.Openat(dirFD, name, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
			if err != nil {
				continue
			}
			if err := removeChildrenFD(childFD, opts); err != nil {
				unix.Close(childFD)
				return err
			}
			unix.Close(childFD)
			_ = unix.Unlinkat(dirFD, name, unix.AT_REMOVEDIR)
			continue
		}
		_ = unix.Unlinkat(dirFD, name, 0)
	}
	return nil
}
