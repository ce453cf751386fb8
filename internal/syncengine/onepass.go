package syncengine

import (
	"os"
	"path/filepath"

	"rsyncbackup/internal/fsutil"
)

// SyncOnePass is the memory-saving mode: it reuses the same decision table
// as the tree mode's record phase but never materializes a FileChanges
// map. Each include path is walked twice with dryRun flipped: once purely
// to drive num_nodes for the phase-1 indicator, once to actually mutate
// the target. Neither pass keeps per-entry state beyond the call stack,
// and both fan out subdirectory descent through the pool; the caller
// drains the pool with Finish between and after the two passes.
func SyncOnePass(sourceRoot, targetRoot string, includePaths []string, opts *Options, dryRun bool) {
	remove := removeFor(opts)
	for _, rel := range includePaths {
		srcDir := filepath.Join(sourceRoot, filepath.FromSlash(rel))
		tgtDir := filepath.Join(targetRoot, filepath.FromSlash(rel))
		if !dryRun {
			if err := mkdirAll(tgtDir); err != nil {
				failTask("create include anchor", tgtDir, err)
			}
		}
		onePassDir(srcDir, tgtDir, rel, opts, dryRun, remove)
	}
}

func onePassDir(srcDir, tgtDir, relPrefix string, opts *Options, dryRun bool, remove RemoveFunc) {
	for _, name := range unionNames(listdirSafe(srcDir, opts.Platform), listdirSafe(tgtDir, opts.Platform)) {
		rel := joinRel(relPrefix, name)
		if opts.ExcludeSet[rel] {
			continue
		}

		srcPath := filepath.Join(srcDir, name)
		tgtPath := filepath.Join(tgtDir, name)
		if onePassEntry(srcPath, tgtPath, opts, dryRun, remove) {
			srcPath, tgtPath, rel := srcPath, tgtPath, rel
			opts.Pool.AddOrRun(func() {
				onePassDir(srcPath, tgtPath, rel, opts, dryRun, remove)
			})
		}
	}
}

// onePassEntry handles one (src, tgt) pair and reports whether the caller
// should descend into it as a directory.
func onePassEntry(srcPath, tgtPath string, opts *Options, dryRun bool, remove RemoveFunc) bool {
	srcInfo, srcErr := fsutil.NodeStat(srcPath)
	tgtInfo, tgtErr := fsutil.NodeStat(tgtPath)
	srcExists := srcErr == nil
	tgtExists := tgtErr == nil

	if srcExists && fsutil.IsSpecial(srcPath) {
		return false
	}

	if dryRun {
		opts.countNode()
	} else {
		opts.countApplied()
	}

	srcIsDir := srcExists && srcInfo.Mode()&os.ModeSymlink == 0 && srcInfo.IsDir()

	switch {
	case !srcExists && tgtExists:
		if !dryRun {
			if err := remove(tgtPath); err != nil {
				failTask("remove", tgtPath, err)
			}
		}

	case srcExists && !tgtExists:
		if srcIsDir {
			if !dryRun {
				if err := mkdirAll(tgtPath); err != nil {
					failTask("create directory", tgtPath, err)
				}
				if err := fsutil.CopyStat(srcPath, tgtPath, opts.Platform); err != nil {
					failTask("copy stat to", tgtPath, err)
				}
			}
			return true
		}
		if !dryRun {
			if err := fsutil.CopyFile(srcPath, tgtPath, opts.CreateHardLinks, opts.Platform); err != nil {
				failTask("copy to", tgtPath, err)
			}
		}

	case srcExists && tgtExists:
		if !fsutil.SameTypes(srcInfo, tgtInfo) {
			if !dryRun {
				if err := remove(tgtPath); err != nil {
					failTask("remove", tgtPath, err)
				}
			}
			if srcIsDir {
				if !dryRun {
					if err := mkdirAll(tgtPath); err != nil {
						failTask("create directory", tgtPath, err)
					}
					if err := fsutil.CopyStat(srcPath, tgtPath, opts.Platform); err != nil {
						failTask("copy stat to", tgtPath, err)
					}
				}
				return true
			}
			if !dryRun {
				if err := fsutil.CopyFile(srcPath, tgtPath, opts.CreateHardLinks, opts.Platform); err != nil {
					failTask("copy to", tgtPath, err)
				}
			}
			return false
		}

		if srcIsDir {
			if !dryRun && !fsutil.SamePermissions(srcInfo, tgtInfo) {
				if err := fsutil.CopyStat(srcPath, tgtPath, opts.Platform); err != nil {
					failTask("copy stat to", tgtPath, err)
				}
			}
			return true
		}

		if srcInfo.ModTime().Unix() != tgtInfo.ModTime().Unix() {
			if !dryRun {
				if err := fsutil.CopyFile(srcPath, tgtPath, opts.CreateHardLinks, opts.Platform); err != nil {
					failTask("copy to", tgtPath, err)
				}
			}
		} else if !fsutil.SamePermissions(srcInfo, tgtInfo) {
			if !dryRun {
				if err := fsutil.CopyStat(srcPath, tgtPath, opts.Platform); err != nil {
					failTask("copy stat to", tgtPath, err)
				}
			}
		}
	}
	return false
}
