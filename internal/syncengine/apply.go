package syncengine

import (
	"fmt"
	"os"
	"path/filepath"

	"rsyncbackup/internal/fsutil"
)

// RemoveFunc deletes the node (file, symlink, or whole directory subtree)
// at path. It must treat an already-missing path as success.
type RemoveFunc func(path string) error

// failTask aborts the running traversal task on a leaf filesystem error
// that fsutil did not sanction swallowing. The panic is captured by the
// task pool (or by Scoped, for work run on the caller's goroutine),
// shuts the pool down, and surfaces as the sync's error — so a partial
// apply never reaches the stage manager's stamp-writing commit point.
func failTask(op, path string, err error) {
	panic(fmt.Errorf("%s %s: %w", op, path, err))
}

func removeFallback(path string, plat *fsutil.Platform) error {
	info, err := fsutil.NodeStat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() && info.Mode()&os.ModeSymlink == 0 {
		names, err := fsutil.Listdir(path, plat)
		if err != nil {
			return err
		}
		for _, n := range names {
			if err := removeFallback(filepath.Join(path, n), plat); err != nil {
				return err
			}
		}
		return fsutil.RemoveEmptyDir(path)
	}
	return fsutil.RemoveFile(path, plat)
}

// removeFor resolves the removal function one apply pass uses for
// RemoveNode and CreateNode targets. The default is a plain recursive
// remove on the calling task's own goroutine: apply tasks already shard
// across the pool by directory, so fanning the removal itself out again
// buys nothing and would tangle two traversals on one pool.
func removeFor(opts *Options) RemoveFunc {
	if opts != nil && opts.Remove != nil {
		return opts.Remove
	}
	var plat *fsutil.Platform
	if opts != nil {
		plat = opts.Platform
	}
	return func(path string) error {
		return removeFallback(path, plat)
	}
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

// ApplyChanges walks a FileChanges tree built by RecordChanges and performs
// the recorded actions against srcDir/tgtDir. Directory descent fans out
// through the task pool exactly like the record phase, and the tree is
// fully applied only once the pool has been drained with Finish. A
// directory's own CreateNode/UpdateStat is applied before its descent is
// scheduled, so a freshly created parent always exists before its children
// are visited.
func ApplyChanges(tree FileChanges, srcDir, tgtDir string, opts *Options) {
	applyDir(tree, srcDir, tgtDir, opts, removeFor(opts))
}

func applyDir(tree FileChanges, srcDir, tgtDir string, opts *Options, remove RemoveFunc) {
	for name, entry := range tree {
		srcPath := filepath.Join(srcDir, name)
		tgtPath := filepath.Join(tgtDir, name)

		if opts.Applied != nil {
			opts.Applied.Increment(1)
		}

		switch entry.Change {
		case NoChange:

		case RemoveNode:
			if err := remove(tgtPath); err != nil {
				failTask("remove", tgtPath, err)
			}
			continue

		case UpdateStat:
			if err := fsutil.CopyStat(srcPath, tgtPath, opts.Platform); err != nil {
				failTask("copy stat to", tgtPath, err)
			}

		case CreateNode:
			if err := remove(tgtPath); err != nil {
				failTask("remove", tgtPath, err)
			}
			if !entry.IsDir() {
				if err := fsutil.CopyFile(srcPath, tgtPath, opts.CreateHardLinks, opts.Platform); err != nil {
					failTask("copy to", tgtPath, err)
				}
				continue
			}
			if err := mkdirAll(tgtPath); err != nil {
				failTask("create directory", tgtPath, err)
			}
			if err := fsutil.CopyStat(srcPath, tgtPath, opts.Platform); err != nil {
				failTask("copy stat to", tgtPath, err)
			}

		case UpdateNode:
			if !entry.IsDir() {
				if err := fsutil.CopyFile(srcPath, tgtPath, opts.CreateHardLinks, opts.Platform); err != nil {
					failTask("copy to", tgtPath, err)
				}
				continue
			}
			if err := mkdirAll(tgtPath); err != nil {
				failTask("create directory", tgtPath, err)
			}
			if err := fsutil.CopyStat(srcPath, tgtPath, opts.Platform); err != nil {
				failTask("copy stat to", tgtPath, err)
			}
		}

		if entry.IsDir() {
			sub := entry.Sub
			srcPath, tgtPath := srcPath, tgtPath
			opts.Pool.AddOrRun(func() {
				applyDir(sub, srcPath, tgtPath, opts, remove)
			})
		}
	}
}
