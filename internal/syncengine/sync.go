package syncengine

import (
	"path/filepath"
	"strings"
)

// CleanIncludePaths normalizes a set of paths relative to a sync root into
// the slash-separated, "."-free form ExcludeSet/include traversal expects.
// A bare "." or empty string becomes "".
func CleanIncludePaths(paths []string) []string {
	if len(paths) == 0 {
		return []string{""}
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, cleanRel(p))
	}
	return out
}

func cleanRel(p string) string {
	p = filepath.ToSlash(filepath.Clean(p))
	if p == "." || p == "" {
		return ""
	}
	return strings.TrimPrefix(p, "./")
}

// CleanRelPath normalizes a single path relative to a sync root to the
// same slash-separated, "."-free form RecordChanges compares against
// ExcludeSet.
func CleanRelPath(p string) string {
	return cleanRel(p)
}

// SyncTree runs tree-mode phase 1: for every include path it mkdir-p's the
// target anchor and records the FileChanges tree for that subtree. Callers
// run this inside a scoped task pool that is fully drained (finish then
// shutdown) before phase 2 begins.
func SyncTree(sourceRoot, targetRoot string, includePaths []string, opts *Options) map[string]FileChanges {
	out := make(map[string]FileChanges, len(includePaths))
	for _, rel := range includePaths {
		srcDir := filepath.Join(sourceRoot, filepath.FromSlash(rel))
		tgtDir := filepath.Join(targetRoot, filepath.FromSlash(rel))
		if err := mkdirAll(tgtDir); err != nil {
			failTask("create include anchor", tgtDir, err)
		}
		out[rel] = RecordChanges(srcDir, tgtDir, rel, opts)
	}
	return out
}

// ApplyTree runs tree-mode phase 2 against the trees built by SyncTree,
// inside a separate scoped task pool from phase 1.
func ApplyTree(trees map[string]FileChanges, sourceRoot, targetRoot string, opts *Options) {
	for rel, tree := range trees {
		srcDir := filepath.Join(sourceRoot, filepath.FromSlash(rel))
		tgtDir := filepath.Join(targetRoot, filepath.FromSlash(rel))
		ApplyChanges(tree, srcDir, tgtDir, opts)
	}
}
