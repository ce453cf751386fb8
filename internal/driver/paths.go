package driver

import (
	"fmt"
	"path/filepath"
	"strings"
)

// normalizeAndRelPath resolves each of paths against sourceRoot and returns
// it as a slash-separated path relative to sourceRoot. A path that resolves
// outside sourceRoot is dropped with a warning logged through warn, mirroring
// normalize_and_relpath's "outside of source_path" check.
func normalizeAndRelPath(sourceRoot string, paths []string, warn func(string)) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs := filepath.Join(sourceRoot, p)
		rel, err := filepath.Rel(sourceRoot, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			warn(fmt.Sprintf("path %q is outside the source path", p))
			continue
		}
		if rel == "." {
			rel = ""
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

// removeShadowedPaths collapses any pair of paths where one is an ancestor
// of (or equal to) the other down to their common ancestor, logging a
// warning for the path it drops. It matches remove_shadowed_paths's
// pairwise-then-recurse shape: rather than sort+dedupe, it keeps re-scanning
// the remaining list against a shrinking "first" candidate until no more
// pairs collapse.
func removeShadowedPaths(paths []string, warn func(string)) []string {
	if len(paths) <= 1 {
		return paths
	}
	first, rest := paths[0], append([]string{}, paths[1:]...)
	for i, other := range rest {
		common := commonAncestor(first, other)
		if common == first || common == other {
			shadowed := other
			if common == other {
				shadowed = first
			}
			warn(fmt.Sprintf("path %q is shadowed by %q", shadowed, common))
			rest[i] = common
			return removeShadowedPaths(rest, warn)
		}
	}
	return append([]string{first}, removeShadowedPaths(rest, warn)...)
}

// commonAncestor returns the longest common slash-separated path prefix of
// a and b, as a clean relative path ("" for the sync root itself).
func commonAncestor(a, b string) string {
	as := splitClean(a)
	bs := splitClean(b)
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	i := 0
	for i < n && as[i] == bs[i] {
		i++
	}
	return strings.Join(as[:i], "/")
}

func splitClean(p string) []string {
	p = strings.Trim(filepath.ToSlash(filepath.Clean("/"+p)), "/")
	if p == "" || p == "." {
		return nil
	}
	return strings.Split(p, "/")
}
