// Package driver implements rsync_backup()'s top-level orchestration: path
// normalization, the .inprogress mutual-exclusion marker, and the
// rotate-then-create run sequence against a stagemanager.Manager, wrapped
// with a live progress reporter.
//
// Grounded in _examples/original_source/rsync_backup.py's rsync_backup()
// function (normalize_and_relpath, remove_shadowed_paths, the
// create_progress_marker context manager, and the log()-driven
// [RUN]/[1/2]/[2/2]/[END]/[ERR] sequence), reworked into Go's defer-based
// resource cleanup and an golang.org/x/sync/errgroup.Group joining the
// terminal progress reporter with the actual sync work, grounded in
// _examples/bobg-bs/store/sync.go's errgroup usage.
package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"rsyncbackup/internal/atomiccounter"
	"rsyncbackup/internal/config"
	"rsyncbackup/internal/fsutil"
	"rsyncbackup/internal/logging"
	"rsyncbackup/internal/progress"
	"rsyncbackup/internal/stagemanager"
)

// RunStats summarizes one completed run for the final log line, mirroring
// the teacher's end-of-run deletedByFolder-style count summary adapted to
// this program's "did a snapshot actually get created" outcome.
type RunStats struct {
	Created      bool
	InitialStage string
	Nodes        int64
	Elapsed      time.Duration
}

// Run executes one full backup cycle against cfg: acquire the mutual
// exclusion marker, rotate every existing snapshot, create a fresh initial
// snapshot, and release the marker. now is the Unix time this run is
// considered to occur at.
func Run(now int64, cfg *config.Config, log *logging.Logger, quiet bool) (RunStats, error) {
	var stats RunStats

	if !fsutil.IsDir(cfg.SourcePath) {
		return stats, fmt.Errorf("source path %q is not a directory", cfg.SourcePath)
	}

	if err := os.MkdirAll(cfg.BackupPath, 0o755); err != nil {
		return stats, fmt.Errorf("create backup path: %w", err)
	}

	warn := func(msg string) { log.Warnf("%s", msg) }

	restricted := len(cfg.IncludePaths) > 0
	includePaths := removeShadowedPaths(normalizeAndRelPath(cfg.SourcePath, cfg.IncludePaths, warn), warn)
	excludePaths := removeShadowedPaths(normalizeAndRelPath(cfg.SourcePath, cfg.ExcludePaths, warn), warn)

	if restricted && len(includePaths) == 0 {
		return stats, fmt.Errorf("malformed include paths")
	}

	if nested, rel := isNestedUnder(cfg.BackupPath, cfg.SourcePath); nested {
		if !contains(excludePaths, rel) {
			log.Warnf("excluding backup path, which is inside the source path")
			excludePaths = append(excludePaths, rel)
		}
	}

	marker, err := AcquireMarker(cfg.BackupPath)
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			log.Logf(0, "[ERR] Backup process already running.\nRemove %s.", filepath.Join(cfg.BackupPath, ".inprogress"))
		} else {
			log.Errorf("%v", err)
		}
		return stats, err
	}
	defer marker.Release()

	start := time.Now()
	log.Logf(0, "[RUN] Starting backup process.")

	platform := fsutil.DetectPlatform()
	mgr := stagemanager.New(cfg.BackupPath, cfg.Stages, cfg.Interval, cfg.Jobs, platform,
		func(indent int, format string, args ...any) {
			log.Logf(1+indent, format, args...)
		})
	names := stagemanager.SnapshotNames(cfg.Stages)
	if len(names) == 0 {
		err := fmt.Errorf("no stages configured")
		log.Errorf("backup process failed with error:\n%v", err)
		return stats, err
	}
	stats.InitialStage = names[0]

	numNodes := &atomiccounter.Counter{}
	running := int32(1)
	reporter := progress.NewReporter("syncing "+cfg.SourcePath, numNodes, &atomiccounter.Counter{}, func() bool {
		return atomic.LoadInt32(&running) == 1
	})

	var g errgroup.Group
	if !quiet {
		g.Go(reporter.Run)
	}

	runErr := func() error {
		log.Logf(0, "[1/2] Rotating stages:")
		if err := mgr.Rotate(now); err != nil {
			return err
		}

		log.Logf(0, "[2/2] Creating new snapshot for initial stage '%s':", stats.InitialStage)
		created, err := mgr.Create(now, stagemanager.CreateParams{
			SourcePath:   cfg.SourcePath,
			IncludePaths: includePaths,
			ExcludePaths: excludePaths,
			SaveMemory:   cfg.SaveMemory,
			NumNodes:     numNodes,
			Reporter:     reporter,
		})
		stats.Created = created
		return err
	}()

	atomic.StoreInt32(&running, 0)
	reporter.SetPhase(progress.PhaseDone)
	_ = g.Wait()

	stats.Nodes = reporter.Total()
	stats.Elapsed = time.Since(start)

	if runErr != nil {
		log.Errorf("Backup process failed with error:\n%v", runErr)
		return stats, runErr
	}

	if stats.Created {
		log.Countf("processed %d nodes in %s", stats.Nodes, stats.Elapsed.Round(time.Millisecond))
	}
	log.Logf(0, "[END] Finished backup process.")
	return stats, nil
}

// isNestedUnder reports whether child is inside parent (but not equal to
// it), returning the slash-separated relative path when true.
func isNestedUnder(child, parent string) (bool, string) {
	rel, err := filepath.Rel(parent, child)
	if err != nil || rel == "." || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, ""
	}
	return true, filepath.ToSlash(rel)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
