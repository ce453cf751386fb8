// Package rmtree implements recursive directory removal with three
// interchangeable strategies, tried in order of preference: an FD-API
// strategy on platforms exposing *at-family syscalls (defeats the
// is_dir/open TOCTOU race), a parallel tree-build-then-remove strategy,
// and a fused save-memory strategy that never materializes a tree.
//
// Removal is two-phase like the sync engine: a discovery phase counts
// nodes for the progress indicator, then a removal phase deletes them.
// Each phase runs in its own scoped task pool so the phase boundary is a
// real barrier.
//
// Grounded in the teacher's worker.go deletion path (delete.go's
// cleanupEmptyDirs walks bottom-up the same way tryRemoveParents does
// here) generalized to remove a whole subtree rather than a single stale
// file.
package rmtree

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"rsyncbackup/internal/atomiccounter"
	"rsyncbackup/internal/fsutil"
)

const (
	defaultMaxRetries = 4
	defaultQueueLimit = 32
)

// Options configures a Remove call. Jobs sizes the scoped pools the tree
// and save-memory strategies spin up per phase; the FD-API strategy is
// always single-threaded by design (it defeats a race that a parallel
// walk would reintroduce). NumNodes and Applied, when non-nil, are
// sampled by an external progress reporter the same way the sync
// engine's counters are, and BeginApply is invoked at the boundary
// between the discovery and removal phases.
type Options struct {
	Jobs       int
	SaveMemory bool
	NumNodes   *atomiccounter.Counter
	Applied    *atomiccounter.Counter
	Platform   *fsutil.Platform
	BeginApply func()
}

func (o *Options) countNode() {
	if o.NumNodes != nil {
		o.NumNodes.Increment(1)
	}
}

func (o *Options) countApplied() {
	if o.Applied != nil {
		o.Applied.Increment(1)
	}
}

func (o *Options) beginApply() {
	if o.BeginApply != nil {
		o.BeginApply()
	}
}

// Remove deletes the node at path, recursively if it is a directory. It is
// not an error for path to already be absent.
func Remove(path string, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}

	info, err := fsutil.NodeStat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 || !info.IsDir() {
		return fsutil.RemoveFile(path, opts.Platform)
	}

	if err := removeFDAPI(path, opts); err != errUnsupported {
		return err
	}

	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}

	if opts.SaveMemory {
		return removeSaveMemory(path, jobs, opts)
	}
	return removeTree(path, jobs, opts)
}

// tryRemoveParents rmdirs path and each of its ancestors up to and
// including root, stopping at the first directory that is still
// non-empty. Every error is swallowed: this is a best-effort cleanup
// racing against sibling tasks, and whichever task drains last walks the
// whole chain up through root.
func tryRemoveParents(path, root string) {
	for {
		if err := os.Remove(path); err != nil {
			return
		}
		if path == root {
			return
		}
		next := filepath.Dir(path)
		if next == path {
			return
		}
		path = next
	}
}
