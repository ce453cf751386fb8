// Package fsutil collects the filesystem primitives the sync and rmtree
// engines build on: stat predicates that never follow a top-level symlink,
// directory listing, and removal of a single node by type. Grounded in the
// teacher's own copyfileStream/buildBackupPath helpers, generalized here to
// support the hard-link copy branch and non-follow-symlink semantics the
// sync engine needs.
package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// NodeStat lstats path: it never follows a trailing symlink, matching the
// "don't follow symlinks" rule applied throughout the sync engine.
func NodeStat(path string) (os.FileInfo, error) {
	return os.Lstat(path)
}

// Exists reports whether path has a directory entry at all, symlink or not.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// IsDir reports whether path is a real directory (not a symlink to one).
func IsDir(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink == 0 && info.IsDir()
}

// IsFile reports whether path is a regular file (not a symlink to one).
func IsFile(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode().IsRegular()
}

// IsSymlink reports whether path is itself a symlink.
func IsSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// IsSpecial reports whether path names a node that is none of regular file,
// directory, or symlink: device, socket, named pipe. These are skipped
// outright by the sync engine rather than copied or compared.
func IsSpecial(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	m := info.Mode()
	return m&(os.ModeDevice|os.ModeCharDevice|os.ModeSocket|os.ModeNamedPipe|os.ModeIrregular) != 0
}

// SameTypes reports whether a and b name the same broad node kind: both
// directories, both regular files, or both symlinks. Special files never
// compare equal, even to each other, since the sync engine always treats
// them as needing deletion and recreation.
func SameTypes(a, b os.FileInfo) bool {
	ta, tb := classify(a), classify(b)
	return ta != nodeSpecial && ta == tb
}

type nodeKind int

const (
	nodeDir nodeKind = iota
	nodeFile
	nodeSymlink
	nodeSpecial
)

func classify(info os.FileInfo) nodeKind {
	m := info.Mode()
	switch {
	case m&os.ModeSymlink != 0:
		return nodeSymlink
	case info.IsDir():
		return nodeDir
	case m.IsRegular():
		return nodeFile
	default:
		return nodeSpecial
	}
}

// SamePermissions reports whether a and b carry the same permission bits.
// Used to decide whether a hard-linked snapshot entry needs its mode
// re-applied versus a fresh copy.
func SamePermissions(a, b os.FileInfo) bool {
	return a.Mode().Perm() == b.Mode().Perm()
}

// Listdir returns the base names of path's direct children. On
// Windows-class platforms it additionally drops entries that are neither
// files nor readable as directories: permission reporting there cannot be
// trusted, so the only reliable probe is attempting the listing itself.
func Listdir(path string, plat *Platform) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if plat != nil && plat.Windows {
		filtered := names[:0]
		for _, n := range names {
			child := filepath.Join(path, n)
			if IsFile(child) || IsSymlink(child) || readableDir(child) {
				filtered = append(filtered, n)
			}
		}
		names = filtered
	}
	return names, nil
}

func readableDir(path string) bool {
	_, err := os.ReadDir(path)
	return err == nil
}

// RemoveFile deletes a regular file or symlink, clearing a read-only bit
// first on Windows-class platforms where an unmodified read-only attribute
// otherwise rejects the unlink outright.
func RemoveFile(path string, plat *Platform) error {
	if plat != nil && plat.Windows {
		if info, err := os.Lstat(path); err == nil && info.Mode().Perm()&0o200 == 0 {
			_ = os.Chmod(path, info.Mode().Perm()|0o200)
		}
	}
	err := os.Remove(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// RemoveEmptyDir deletes path if it is a directory with no remaining
// entries. It is not an error for path to already be gone.
func RemoveEmptyDir(path string) error {
	err := os.Remove(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// RemoveNode removes a single filesystem node (file, symlink, socket,
// device, or empty directory) without recursing. Callers drive the
// recursion.
func RemoveNode(path string, plat *Platform) error {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() && info.Mode()&os.ModeSymlink == 0 {
		return RemoveEmptyDir(path)
	}
	return RemoveFile(path, plat)
}
