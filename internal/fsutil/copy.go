package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// CopyFile materializes src at dst. When link is true it creates a hard
// link (the cheap path used whenever an unchanged file is being seeded
// into a new snapshot from the previous one); snapshots live on the same
// filesystem as each other, so a failing link is a real error, not a cue
// to copy instead. Symlinks are never followed: a linked symlink shares
// its inode (linkat with flag 0 links the symlink itself), and a copied
// symlink becomes a new symlink at dst pointing at the same target, with
// the source symlink's own mtime carried over.
func CopyFile(src, dst string, link bool, plat *Platform) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}

	if link {
		_ = os.Remove(dst)
		return os.Link(src, dst)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		_ = os.Remove(dst)
		if err := os.Symlink(target, dst); err != nil {
			return err
		}
		return CopyStat(src, dst, plat)
	}

	_ = os.Remove(dst)
	if err := streamCopy(src, dst, info); err != nil {
		if plat != nil && plat.Windows {
			// Permission reporting on these filesystems is unreliable
			// enough that a failed copy is swallowed, not an abort.
			return nil
		}
		return err
	}
	return CopyStat(src, dst, plat)
}

func streamCopy(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

// CopyStat copies mtime and permission bits from src to dst without
// following symlinks at either end. Two platform quirks are tolerated
// here and nowhere else: Windows-class filesystems report permissions
// unreliably enough that any metadata-write failure is swallowed, and
// WSL interop mounts reject some metadata writes with EACCES even though
// the copy they follow already succeeded.
func CopyStat(src, dst string, plat *Platform) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if err := copyStatNoFollow(dst, info); err != nil {
		if plat != nil && plat.Windows {
			return nil
		}
		if plat != nil && plat.WSL && errors.Is(err, fs.ErrPermission) {
			return nil
		}
		return err
	}
	return nil
}
