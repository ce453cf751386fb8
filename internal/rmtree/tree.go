package rmtree

import (
	"os"
	"path/filepath"

	"rsyncbackup/internal/fsutil"
	"rsyncbackup/internal/taskpool"
)

// node is rmtree's own minimal tagged tree: just enough to remember which
// names under a directory are themselves directories, so the removal
// phase can unlink files before recursing into each child directory. It
// deliberately doesn't reuse syncengine.FileChanges: rmtree has no notion
// of change type, only "is this a directory".
//
// Each node is owned by exactly one task: the parent installs a fresh
// child node, publishes it into its own dirs map, then hands the child
// to a pool task. The tree is complete only after the phase-1 pool has
// been drained.
type node struct {
	dirs  map[string]*node
	files []string
}

func newNode() *node {
	return &node{dirs: make(map[string]*node)}
}

func removeTree(path string, jobs int, opts *Options) error {
	root := newNode()
	err := taskpool.Scoped(jobs, defaultMaxRetries, defaultQueueLimit, func(pool *taskpool.Pool) {
		buildDir(path, root, pool, opts)
	})
	if err != nil {
		return err
	}

	opts.beginApply()

	err = taskpool.Scoped(jobs, defaultMaxRetries, defaultQueueLimit, func(pool *taskpool.Pool) {
		removeDir(path, path, root, pool, opts)
	})
	if err != nil {
		return err
	}
	return fsutil.RemoveEmptyDir(path)
}

func buildDir(path string, n *node, pool *taskpool.Pool, opts *Options) {
	for _, name := range listdirSafe(path, opts.Platform) {
		childPath := filepath.Join(path, name)
		info, err := fsutil.NodeStat(childPath)
		if err != nil {
			continue
		}
		opts.countNode()
		if info.IsDir() && info.Mode()&os.ModeSymlink == 0 {
			child := newNode()
			n.dirs[name] = child
			pool.AddOrRun(func() {
				buildDir(childPath, child, pool, opts)
			})
			continue
		}
		n.files = append(n.files, name)
	}
}

// removeDir unlinks this directory's files, schedules its subdirectories,
// and then opportunistically rmdirs upward: child directories are still
// being drained by other tasks, so the upward walk stops at the first
// non-empty level, and whichever task finishes last clears the chain all
// the way to root.
func removeDir(path, root string, n *node, pool *taskpool.Pool, opts *Options) {
	for _, name := range n.files {
		_ = fsutil.RemoveFile(filepath.Join(path, name), opts.Platform)
		opts.countApplied()
	}
	for name, child := range n.dirs {
		childPath := filepath.Join(path, name)
		child := child
		opts.countApplied()
		pool.AddOrRun(func() {
			removeDir(childPath, root, child, pool, opts)
		})
	}
	tryRemoveParents(path, root)
}

func listdirSafe(path string, plat *fsutil.Platform) []string {
	names, err := fsutil.Listdir(path, plat)
	if err != nil {
		return nil
	}
	return names
}
