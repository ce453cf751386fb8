package driver

import (
	"reflect"
	"testing"
)

func TestNormalizeAndRelPath(t *testing.T) {
	var warnings []string
	warn := func(msg string) { warnings = append(warnings, msg) }

	root := "/srv/data"
	got := normalizeAndRelPath(root, []string{"etc", "../outside", "usr/local"}, warn)

	want := []string{"etc", "usr/local"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %v", warnings)
	}
}

func TestRemoveShadowedPaths(t *testing.T) {
	var warnings []string
	warn := func(msg string) { warnings = append(warnings, msg) }

	got := removeShadowedPaths([]string{"etc", "usr", "usr/local"}, warn)

	want := []string{"etc", "usr"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %v", warnings)
	}
}

func TestRemoveShadowedPathsNoOverlap(t *testing.T) {
	got := removeShadowedPaths([]string{"etc", "usr", "var"}, func(string) {})
	want := []string{"etc", "usr", "var"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCommonAncestor(t *testing.T) {
	cases := []struct{ a, b, want string }{
		{"usr", "usr/local", "usr"},
		{"usr/local", "usr", "usr"},
		{"etc", "usr", ""},
		{"a/b/c", "a/b/d", "a/b"},
	}
	for _, c := range cases {
		if got := commonAncestor(c.a, c.b); got != c.want {
			t.Errorf("commonAncestor(%q, %q) = %q, want %q", c.a, c.b, got, c.want)
		}
	}
}
