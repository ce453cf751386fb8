package stagemanager

import (
	"rsyncbackup/internal/atomiccounter"
	"rsyncbackup/internal/fsutil"
	"rsyncbackup/internal/progress"
	"rsyncbackup/internal/rmtree"
	"rsyncbackup/internal/syncengine"
	"rsyncbackup/internal/taskpool"
)

const (
	defaultMaxRetries = 4
	defaultQueueLimit = 32
)

// syncParams bundles everything a single directory-to-directory sync
// needs, independent of whether the source is the real SOURCE_PATH or a
// previous snapshot used as a hard-link seed. reporter is optional; when
// set, it is driven through PhaseDiscover -> PhaseApply for this call.
type syncParams struct {
	jobs            int
	saveMemory      bool
	createHardLinks bool
	includePaths    []string
	excludeSet      map[string]bool
	numNodes        *atomiccounter.Counter
	platform        *fsutil.Platform
	reporter        *progress.Reporter
}

func runSync(srcRoot, tgtRoot string, p syncParams) error {
	jobs := p.jobs
	if jobs < 1 {
		jobs = 1
	}
	includes := p.includePaths
	if len(includes) == 0 {
		includes = []string{""}
	}

	numNodes := p.numNodes
	if numNodes == nil {
		numNodes = &atomiccounter.Counter{}
	}
	numNodes.Set(0)

	var appliedCounter *atomiccounter.Counter
	if p.reporter != nil {
		p.reporter.SetPhase(progress.PhaseDiscover)
		appliedCounter = p.reporter.Applied
	}

	opts := &syncengine.Options{
		CreateHardLinks: p.createHardLinks,
		ExcludeSet:      p.excludeSet,
		NumNodes:        numNodes,
		Applied:         appliedCounter,
		Platform:        p.platform,
	}

	if p.saveMemory {
		return taskpool.Scoped(jobs, defaultMaxRetries, defaultQueueLimit, func(pool *taskpool.Pool) {
			opts.Pool = pool
			syncengine.SyncOnePass(srcRoot, tgtRoot, includes, opts, true)
			pool.Finish()
			if p.reporter != nil {
				p.reporter.BeginApply()
			}
			syncengine.SyncOnePass(srcRoot, tgtRoot, includes, opts, false)
		})
	}

	var trees map[string]syncengine.FileChanges
	err := taskpool.Scoped(jobs, defaultMaxRetries, defaultQueueLimit, func(pool *taskpool.Pool) {
		opts.Pool = pool
		trees = syncengine.SyncTree(srcRoot, tgtRoot, includes, opts)
	})
	if err != nil {
		return err
	}

	if p.reporter != nil {
		p.reporter.BeginApply()
	}

	return taskpool.Scoped(jobs, defaultMaxRetries, defaultQueueLimit, func(pool *taskpool.Pool) {
		opts.Pool = pool
		syncengine.ApplyTree(trees, srcRoot, tgtRoot, opts)
	})
}

func removeSubtree(path string, jobs int, platform *fsutil.Platform) error {
	return rmtree.Remove(path, &rmtree.Options{Jobs: jobs, Platform: platform})
}
