package rmtree

import (
	"os"
	"path/filepath"

	"rsyncbackup/internal/fsutil"
	"rsyncbackup/internal/taskpool"
)

// removeSaveMemory fuses discovery and removal into one recursive walk
// shape run twice: a dry pass that only counts nodes for the phase-1
// indicator, then a real pass that unlinks, without ever building a
// tree. Each pass gets its own scoped pool so the dry pass is fully
// drained before the first unlink happens.
func removeSaveMemory(path string, jobs int, opts *Options) error {
	err := taskpool.Scoped(jobs, defaultMaxRetries, defaultQueueLimit, func(pool *taskpool.Pool) {
		walkSaveMemory(path, path, pool, opts, true)
	})
	if err != nil {
		return err
	}

	opts.beginApply()

	err = taskpool.Scoped(jobs, defaultMaxRetries, defaultQueueLimit, func(pool *taskpool.Pool) {
		walkSaveMemory(path, path, pool, opts, false)
	})
	if err != nil {
		return err
	}
	return fsutil.RemoveEmptyDir(path)
}

func walkSaveMemory(path, root string, pool *taskpool.Pool, opts *Options, dryRun bool) {
	for _, name := range listdirSafe(path, opts.Platform) {
		childPath := filepath.Join(path, name)
		info, err := fsutil.NodeStat(childPath)
		if err != nil {
			continue
		}
		if dryRun {
			opts.countNode()
			if info.IsDir() && info.Mode()&os.ModeSymlink == 0 {
				pool.AddOrRun(func() {
					walkSaveMemory(childPath, root, pool, opts, true)
				})
			}
			continue
		}

		opts.countApplied()
		if info.IsDir() && info.Mode()&os.ModeSymlink == 0 {
			pool.AddOrRun(func() {
				walkSaveMemory(childPath, root, pool, opts, false)
			})
			continue
		}
		_ = fsutil.RemoveFile(childPath, opts.Platform)
	}
	if !dryRun {
		tryRemoveParents(path, root)
	}
}
