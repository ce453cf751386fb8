package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func mustWrite(t *testing.T, path string, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestIsDirIsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	mustWrite(t, file, "hello")

	if !IsDir(dir) {
		t.Errorf("expected %s to be a dir", dir)
	}
	if IsFile(dir) {
		t.Errorf("expected %s to not be a file", dir)
	}
	if !IsFile(file) {
		t.Errorf("expected %s to be a file", file)
	}
	if IsDir(file) {
		t.Errorf("expected %s to not be a dir", file)
	}
}

func TestIsSymlinkNotFollowed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs elevated privileges on windows")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "target.txt")
	mustWrite(t, target, "data")

	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	if !IsSymlink(link) {
		t.Error("expected link to report as symlink")
	}
	if IsFile(link) {
		t.Error("IsFile should not follow symlinks")
	}
}

func TestSameTypes(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "f1")
	f2 := filepath.Join(dir, "f2")
	d1 := filepath.Join(dir, "d1")
	mustWrite(t, f1, "a")
	mustWrite(t, f2, "bb")
	if err := os.Mkdir(d1, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	i1, _ := NodeStat(f1)
	i2, _ := NodeStat(f2)
	id1, _ := NodeStat(d1)

	if !SameTypes(i1, i2) {
		t.Error("two regular files should have the same type")
	}
	if SameTypes(i1, id1) {
		t.Error("a file and a directory should not have the same type")
	}
}

func TestRemoveNode(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	mustWrite(t, file, "x")
	plat := &Platform{}

	if err := RemoveNode(file, plat); err != nil {
		t.Fatalf("remove file: %v", err)
	}
	if Exists(file) {
		t.Error("file should be gone")
	}

	empty := filepath.Join(dir, "empty")
	if err := os.Mkdir(empty, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := RemoveNode(empty, plat); err != nil {
		t.Fatalf("remove empty dir: %v", err)
	}
	if Exists(empty) {
		t.Error("dir should be gone")
	}

	// Removing something already gone is not an error.
	if err := RemoveNode(file, plat); err != nil {
		t.Fatalf("remove already-gone node should be nil, got %v", err)
	}
}

func TestCopyFileContentAndStat(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	mustWrite(t, src, "payload")
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(src, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	dst := filepath.Join(dir, "dst.txt")
	plat := DetectPlatform()
	if err := CopyFile(src, dst, false, plat); err != nil {
		t.Fatalf("copy: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("content mismatch: got %q", data)
	}

	srcInfo, _ := NodeStat(src)
	dstInfo, _ := NodeStat(dst)
	if !srcInfo.ModTime().Truncate(time.Second).Equal(dstInfo.ModTime().Truncate(time.Second)) {
		t.Errorf("mtime not preserved: src=%v dst=%v", srcInfo.ModTime(), dstInfo.ModTime())
	}
}

func TestCopyFileHardLink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("hard link semantics differ on windows")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	mustWrite(t, src, "shared")

	dst := filepath.Join(dir, "dst.txt")
	plat := DetectPlatform()
	if err := CopyFile(src, dst, true, plat); err != nil {
		t.Fatalf("copy with link: %v", err)
	}

	n, err := hardLinkCount(dst)
	if err != nil {
		t.Fatalf("hardLinkCount: %v", err)
	}
	if n < 2 {
		t.Errorf("expected dst to share an inode with src, got link count %d", n)
	}
}

func TestCopyFileSymlinkRecreatesLink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs elevated privileges on windows")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "target.txt")
	mustWrite(t, target, "data")
	link := filepath.Join(dir, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	dst := filepath.Join(dir, "copied-link")
	plat := DetectPlatform()
	if err := CopyFile(link, dst, false, plat); err != nil {
		t.Fatalf("copy symlink: %v", err)
	}
	if !IsSymlink(dst) {
		t.Error("expected copied node to be a symlink, not a resolved file copy")
	}
	got, err := os.Readlink(dst)
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if got != target {
		t.Errorf("symlink target mismatch: got %q want %q", got, target)
	}

	srcInfo, _ := NodeStat(link)
	dstInfo, _ := NodeStat(dst)
	if srcInfo.ModTime().Unix() != dstInfo.ModTime().Unix() {
		t.Errorf("symlink mtime not preserved: src=%v dst=%v", srcInfo.ModTime(), dstInfo.ModTime())
	}
}

func TestCopyFileLinkSharesSymlinkInode(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("hard-linking a symlink itself needs linkat semantics")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "target.txt")
	mustWrite(t, target, "data")
	link := filepath.Join(dir, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	dst := filepath.Join(dir, "linked-link")
	if err := CopyFile(link, dst, true, DetectPlatform()); err != nil {
		t.Fatalf("link symlink: %v", err)
	}
	if !IsSymlink(dst) {
		t.Error("expected hard-linked node to still be a symlink")
	}
	srcInfo, _ := os.Lstat(link)
	dstInfo, _ := os.Lstat(dst)
	if !os.SameFile(srcInfo, dstInfo) {
		t.Error("expected a linked symlink to share its inode with the source")
	}
}

func TestListdir(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a"), "1")
	mustWrite(t, filepath.Join(dir, "b"), "2")

	names, err := Listdir(dir, nil)
	if err != nil {
		t.Fatalf("listdir: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(names), names)
	}
}
