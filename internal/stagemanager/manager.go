package stagemanager

import (
	"fmt"
	"os"
	"path/filepath"

	"rsyncbackup/internal/atomiccounter"
	"rsyncbackup/internal/fsutil"
	"rsyncbackup/internal/progress"
	"rsyncbackup/internal/syncengine"
)

// LogFunc is the log(msg, indent) contract the manager reports through.
// A nil LogFunc silences the manager without branching at call sites.
type LogFunc func(indent int, format string, args ...any)

// Manager owns every snapshot directory and stamp file under StagesPath.
// The driver never touches snapshot paths directly; every mutation goes
// through Create or Rotate.
type Manager struct {
	StagesPath   string
	Stages       []Stage
	BaseInterval int64
	Jobs         int
	Platform     *fsutil.Platform
	Log          LogFunc

	intervals      []int64
	recoveryNeeded bool
}

// New constructs a Manager and checks, right away, whether the initial
// snapshot's timestamp is readable. If it is not (missing file, or a
// prior run that crashed before committing it), recoveryNeeded is set and
// the next Create call cleans up any partial state before doing anything
// else.
func New(stagesPath string, stages []Stage, baseInterval int64, jobs int, platform *fsutil.Platform, log LogFunc) *Manager {
	m := &Manager{
		StagesPath:   stagesPath,
		Stages:       stages,
		BaseInterval: baseInterval,
		Jobs:         jobs,
		Platform:     platform,
		Log:          log,
		intervals:    intervals(stages, baseInterval),
	}
	if len(stages) > 0 {
		if _, err := readStamp(stagesPath, m.initialName()); err != nil {
			m.recoveryNeeded = true
		}
	}
	return m
}

func (m *Manager) log(indent int, format string, args ...any) {
	if m.Log != nil {
		m.Log(indent, format, args...)
	}
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.StagesPath, name)
}

func (m *Manager) deletePath() string {
	return filepath.Join(m.StagesPath, ".delete")
}

func (m *Manager) initialName() string {
	return snapshotName(m.Stages, 0, 0)
}

func (m *Manager) has(name string) bool {
	return fsutil.IsDir(m.path(name))
}

// CreateParams carries the knobs Create forwards to the sync engine.
type CreateParams struct {
	SourcePath   string
	IncludePaths []string
	ExcludePaths []string
	SaveMemory   bool
	NumNodes     *atomiccounter.Counter
	Reporter     *progress.Reporter
}

// Create makes sure the initial snapshot reflects SourcePath as of now. It
// returns created=false when the initial snapshot is already up to date
// for this interval tick and no work was done. The timestamp write at the
// end is the commit point: a crash anywhere before it leaves the manager
// in recovery mode for the next run.
func (m *Manager) Create(now int64, p CreateParams) (created bool, err error) {
	if len(m.Stages) == 0 {
		return false, fmt.Errorf("stagemanager: no stages configured")
	}
	initial := m.initialName()

	if m.recoveryNeeded {
		if m.has(initial) {
			m.log(0, "* Removing partial snapshot from interrupted run.")
			if err := m.rm(initial, true); err != nil {
				return false, err
			}
		}
		if fsutil.IsDir(m.deletePath()) {
			m.log(0, "* Cleanup pending removal from interrupted run.")
			if err := removeSubtree(m.deletePath(), m.Jobs, m.Platform); err != nil {
				return false, err
			}
		}
	}

	if m.has(initial) {
		m.log(0, "Stage '%s' still up-to-date, nothing to do.", m.Stages[0].Name)
		return false, nil
	}

	excludeSet := make(map[string]bool, len(p.ExcludePaths))
	for _, e := range p.ExcludePaths {
		excludeSet[syncengine.CleanRelPath(e)] = true
	}
	includes := syncengine.CleanIncludePaths(p.IncludePaths)

	if err := m.seed(initial, includes, excludeSet, p); err != nil {
		return false, err
	}

	if err := os.MkdirAll(m.path(initial), 0o755); err != nil {
		return false, err
	}

	m.log(0, "* Running sync to create the actual backup.")
	if err := runSync(p.SourcePath, m.path(initial), syncParams{
		jobs:            m.Jobs,
		saveMemory:      p.SaveMemory,
		createHardLinks: false,
		includePaths:    includes,
		excludeSet:      excludeSet,
		numNodes:        p.NumNodes,
		platform:        m.Platform,
		reporter:        p.Reporter,
	}); err != nil {
		return false, err
	}

	if err := writeStamp(m.StagesPath, initial, alignDown(now, m.BaseInterval)); err != nil {
		return false, err
	}
	m.recoveryNeeded = false
	return true, nil
}

// seed prepares the initial snapshot directory before the real sync: it
// reuses the .delete scratch tree if present (pruning excluded paths from
// it), then hard-link-syncs the first still-existing snapshot into place
// so the real sync only has to touch what actually changed.
func (m *Manager) seed(initial string, includes []string, excludeSet map[string]bool, p CreateParams) error {
	initialPath := m.path(initial)

	if fsutil.IsDir(m.deletePath()) {
		m.log(0, "* Reusing previously deleted snapshot.")
		if err := os.Rename(m.deletePath(), initialPath); err != nil {
			return err
		}
		for rel := range excludeSet {
			// Tolerate missing paths: there is no guarantee every
			// current exclude existed in whatever older snapshot
			// .delete was recycled from.
			_ = removeSubtree(filepath.Join(initialPath, filepath.FromSlash(rel)), m.Jobs, m.Platform)
		}
		if name, ok := m.firstExisting(initial); ok {
			return m.overlay(name, initial, includes, excludeSet, p)
		}
		return nil
	}

	if name, ok := m.firstExisting(initial); ok {
		m.log(0, "* Creating hard copy from previous backup '%s'.", name)
		return m.overlay(name, initial, includes, excludeSet, p)
	}
	return nil
}

// overlay hard-link-syncs snapshot src into snapshot tgt.
func (m *Manager) overlay(src, tgt string, includes []string, excludeSet map[string]bool, p CreateParams) error {
	return runSync(m.path(src), m.path(tgt), syncParams{
		jobs:            m.Jobs,
		saveMemory:      p.SaveMemory,
		createHardLinks: true,
		includePaths:    includes,
		excludeSet:      excludeSet,
		numNodes:        p.NumNodes,
		platform:        m.Platform,
		reporter:        p.Reporter,
	})
}

// firstExisting returns the first snapshot name, in ascending universe
// order, that currently exists on disk, skipping skip.
func (m *Manager) firstExisting(skip string) (string, bool) {
	for _, name := range SnapshotNames(m.Stages) {
		if name == skip {
			continue
		}
		if m.has(name) {
			return name, true
		}
	}
	return "", false
}

// Rotate ages every existing snapshot forward: for each, next_after
// decides whether it moves to a later stage slot, stays put, or is too
// old and gets removed. Stages are visited last-to-first and slots
// highest-to-lowest within a stage, so a move never collides with a
// still-pending move lower in the same stage.
func (m *Manager) Rotate(now int64) error {
	for i := len(m.Stages) - 1; i >= 0; i-- {
		m.log(0, "* Rotating stage '%s'.", m.Stages[i].Name)
		for num := m.Stages[i].Keep - 1; num >= 0; num-- {
			name := snapshotName(m.Stages, i, num)
			if !m.has(name) {
				continue
			}

			nextStage, nextNum, ok := m.nextAfter(i, num, now)
			if !ok {
				m.log(1, "- Removing %s", name)
				if err := m.rm(name, false); err != nil {
					return err
				}
				continue
			}

			target := snapshotName(m.Stages, nextStage, nextNum)
			if target == name {
				continue
			}

			if !m.has(target) {
				m.log(1, "- Moving %s -> %s", name, target)
				if err := m.mv(name, target); err != nil {
					return err
				}
				continue
			}

			// Target slot was already filled earlier in this same
			// pass; this source copy is now redundant.
			m.log(1, "- Removing %s", name)
			if err := m.rm(name, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// nextAfter computes where the snapshot at (stageIdx, num) should move:
// the first later-or-equal stage whose interval boundary the snapshot's
// elapsed age still fits within, or ok=false if it has aged past every
// stage (or its stamp is unreadable).
func (m *Manager) nextAfter(stageIdx, num int, now int64) (int, int, bool) {
	name := snapshotName(m.Stages, stageIdx, num)
	e, err := elapsed(m.StagesPath, name, now)
	if err != nil {
		return 0, 0, false
	}
	for i := stageIdx; i < len(m.Stages); i++ {
		q := e / m.intervals[i]
		if q >= 0 && int(q) < m.Stages[i].Keep {
			return i, int(q), true
		}
	}
	return 0, 0, false
}

// mv renames snapshot name to target and carries its timestamp along,
// preserving the original creation alignment under the new name.
func (m *Manager) mv(name, target string) error {
	if err := os.Rename(m.path(name), m.path(target)); err != nil {
		return err
	}
	return renameStamp(m.StagesPath, name, target)
}

// rm deletes snapshot name, either eagerly (used during recovery) or, by
// default, by relocating it to .delete so Create's next seed step can
// reuse its content for free via hard links. Whatever .delete already
// held is erased lazily here, right before the rename claims the slot.
func (m *Manager) rm(name string, eager bool) error {
	path := m.path(name)
	if eager {
		if err := removeSubtree(path, m.Jobs, m.Platform); err != nil {
			return err
		}
		return removeStamp(m.StagesPath, name)
	}

	if fsutil.IsDir(m.deletePath()) {
		if err := removeSubtree(m.deletePath(), m.Jobs, m.Platform); err != nil {
			return err
		}
	}
	if err := os.Rename(path, m.deletePath()); err != nil {
		return err
	}
	return removeStamp(m.StagesPath, name)
}
