package syncengine

import (
	"os"
	"path/filepath"

	"rsyncbackup/internal/atomiccounter"
	"rsyncbackup/internal/fsutil"
	"rsyncbackup/internal/taskpool"
)

// Options configures a single sync pass. ExcludeSet holds slash-separated
// paths relative to the sync root (not to whatever subdirectory is
// currently being recorded); an entry whose accumulated relative path is a
// member is skipped outright, along with its entire subtree.
type Options struct {
	CreateHardLinks bool
	ExcludeSet      map[string]bool
	Pool            *taskpool.Pool
	NumNodes        *atomiccounter.Counter
	Applied         *atomiccounter.Counter
	Platform        *fsutil.Platform
	Remove          RemoveFunc
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

func listdirSafe(path string, plat *fsutil.Platform) []string {
	names, err := fsutil.Listdir(path, plat)
	if err != nil {
		return nil
	}
	return names
}

func unionNames(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, n := range a {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, n := range b {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func joinRel(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// RecordChanges builds the FileChanges tree for one sync root: srcDir must
// exist and be a directory; tgtDir is its mirror in the target tree and may
// not exist yet (the caller mkdir -p's include-path anchors, but nested
// directories absent on the target side are discovered here). relPrefix is
// the path already traversed, relative to the overall sync root, used only
// to test entries against ExcludeSet.
//
// The returned tree is complete only after the pool has been drained with
// Finish: subdirectory descent is handed to the pool, with each child task
// owning the fresh sub-map its parent installed before scheduling it.
func RecordChanges(srcDir, tgtDir, relPrefix string, opts *Options) FileChanges {
	out := FileChanges{}
	recordDir(srcDir, tgtDir, relPrefix, out, opts)
	return out
}

func recordDir(srcDir, tgtDir, relPrefix string, out FileChanges, opts *Options) {
	for _, name := range unionNames(listdirSafe(srcDir, opts.Platform), listdirSafe(tgtDir, opts.Platform)) {
		rel := joinRel(relPrefix, name)
		if opts.ExcludeSet[rel] {
			continue
		}

		srcPath := filepath.Join(srcDir, name)
		tgtPath := filepath.Join(tgtDir, name)
		entry, descend := decide(srcPath, tgtPath)
		if entry == nil {
			continue
		}
		out[name] = *entry
		opts.countNode()

		if descend {
			sub := entry.Sub
			srcPath, tgtPath, rel := srcPath, tgtPath, rel
			opts.Pool.AddOrRun(func() {
				recordDir(srcPath, tgtPath, rel, sub, opts)
			})
		}
	}
}

// decide classifies one (src, tgt) node pair per the decision table. It
// returns nil for pairs the sync skips entirely (special source nodes and
// double-absence races), and reports whether the caller should descend
// into the entry's freshly installed sub-map.
func decide(srcPath, tgtPath string) (*Entry, bool) {
	srcInfo, srcErr := fsutil.NodeStat(srcPath)
	tgtInfo, tgtErr := fsutil.NodeStat(tgtPath)
	srcExists := srcErr == nil
	tgtExists := tgtErr == nil

	if srcExists && fsutil.IsSpecial(srcPath) {
		return nil, false
	}

	srcIsDir := srcExists && srcInfo.Mode()&os.ModeSymlink == 0 && srcInfo.IsDir()

	switch {
	case !srcExists && tgtExists:
		e := Leaf(RemoveNode)
		return &e, false

	case srcExists && !tgtExists:
		if srcIsDir {
			e := Dir(UpdateNode, FileChanges{})
			return &e, true
		}
		e := Leaf(UpdateNode)
		return &e, false

	case srcExists && tgtExists:
		if !fsutil.SameTypes(srcInfo, tgtInfo) {
			if srcIsDir {
				e := Dir(CreateNode, FileChanges{})
				return &e, true
			}
			e := Leaf(CreateNode)
			return &e, false
		}

		if srcIsDir {
			var e Entry
			if fsutil.SamePermissions(srcInfo, tgtInfo) {
				e = Dir(NoChange, FileChanges{})
			} else {
				e = Dir(UpdateStat, FileChanges{})
			}
			return &e, true
		}

		if srcInfo.ModTime().Unix() != tgtInfo.ModTime().Unix() {
			e := Leaf(UpdateNode)
			return &e, false
		}
		if !fsutil.SamePermissions(srcInfo, tgtInfo) {
			e := Leaf(UpdateStat)
			return &e, false
		}
		e := Leaf(NoChange)
		return &e, false
	}

	return nil, false
}
