package stagemanager

import (
	"os"
	"path/filepath"
	"testing"

	"rsyncbackup/internal/fsutil"
)

func testStages() []Stage {
	return []Stage{
		{Name: "hourly", Keep: 3},
		{Name: "daily", Keep: 2},
	}
}

func TestSnapshotNamesUniverse(t *testing.T) {
	names := SnapshotNames(testStages())
	want := 3 + 2
	if len(names) != want {
		t.Fatalf("expected %d names, got %d: %v", want, len(names), names)
	}
	seen := map[string]bool{}
	for _, n := range names {
		if seen[n] {
			t.Fatalf("duplicate snapshot name %q", n)
		}
		seen[n] = true
	}
	if names[0] != "hourly.0" {
		t.Errorf("expected first name hourly.0, got %s", names[0])
	}
}

func TestCreateInitialBackup(t *testing.T) {
	src := t.TempDir()
	stagesPath := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m := New(stagesPath, testStages(), 3600, 2, fsutil.DetectPlatform(), nil)
	created, err := m.Create(1_700_000_000, CreateParams{SourcePath: src})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created {
		t.Fatal("expected first Create to report created=true")
	}

	if !fsutil.Exists(filepath.Join(stagesPath, "hourly.0", "a.txt")) {
		t.Error("expected hourly.0/a.txt to exist")
	}
	if !fsutil.Exists(filepath.Join(stagesPath, ".hourly.0.stamp")) {
		t.Error("expected stamp file to be written")
	}
}

func TestCreateSecondCallIsNoop(t *testing.T) {
	src := t.TempDir()
	stagesPath := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m := New(stagesPath, testStages(), 3600, 2, fsutil.DetectPlatform(), nil)
	if _, err := m.Create(1_700_000_000, CreateParams{SourcePath: src}); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	created, err := m.Create(1_700_000_100, CreateParams{SourcePath: src})
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if created {
		t.Error("expected second Create within the same interval to be a no-op")
	}
}

func TestRotatePreservesTimestamps(t *testing.T) {
	stagesPath := t.TempDir()
	m := New(stagesPath, testStages(), 3600, 2, fsutil.DetectPlatform(), nil)

	if err := os.MkdirAll(filepath.Join(stagesPath, "hourly.0"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := writeStamp(stagesPath, "hourly.0", 0); err != nil {
		t.Fatalf("writeStamp: %v", err)
	}

	if err := m.Rotate(3600); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	if !fsutil.Exists(filepath.Join(stagesPath, "hourly.1")) {
		t.Fatal("expected hourly.0 to have rotated into hourly.1")
	}
	got, err := readStamp(stagesPath, "hourly.1")
	if err != nil {
		t.Fatalf("readStamp: %v", err)
	}
	if got != 0 {
		t.Errorf("expected rotated stamp to be preserved as 0, got %d", got)
	}
}

func TestRotateDeletesSnapshotAgedPastLastStage(t *testing.T) {
	stagesPath := t.TempDir()
	m := New(stagesPath, testStages(), 3600, 2, fsutil.DetectPlatform(), nil)

	if err := os.MkdirAll(filepath.Join(stagesPath, "daily.1"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := writeStamp(stagesPath, "daily.1", 0); err != nil {
		t.Fatalf("writeStamp: %v", err)
	}

	// daily interval = 3600 * 3 (hourly.keep) = 10800; daily has keep=2, so
	// q = 2 already falls off the end at age 2*10800.
	if err := m.Rotate(2 * 2 * 10800); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	if fsutil.Exists(filepath.Join(stagesPath, "daily.1")) {
		t.Error("expected daily.1 to be removed after aging past the last stage")
	}
	if !fsutil.Exists(filepath.Join(stagesPath, ".delete")) {
		t.Error("expected removed snapshot to be recycled into .delete")
	}
}

func TestCreateSeedsUnchangedFilesAsHardLinks(t *testing.T) {
	src := t.TempDir()
	stagesPath := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("stable"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m := New(stagesPath, testStages(), 3600, 2, fsutil.DetectPlatform(), nil)
	if _, err := m.Create(1_700_000_000, CreateParams{SourcePath: src}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if err := m.Rotate(1_700_000_000 + 3600); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	created, err := m.Create(1_700_000_000+3600, CreateParams{SourcePath: src})
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if !created {
		t.Fatal("expected a new snapshot after rotation freed hourly.0")
	}

	fi0, err := os.Lstat(filepath.Join(stagesPath, "hourly.0", "a.txt"))
	if err != nil {
		t.Fatalf("lstat hourly.0/a.txt: %v", err)
	}
	fi1, err := os.Lstat(filepath.Join(stagesPath, "hourly.1", "a.txt"))
	if err != nil {
		t.Fatalf("lstat hourly.1/a.txt: %v", err)
	}
	if !os.SameFile(fi0, fi1) {
		t.Error("expected an unchanged file to share an inode across snapshots")
	}
}

func TestCreateRecoversFromInterruptedRun(t *testing.T) {
	src := t.TempDir()
	stagesPath := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Simulate a crash mid snapshot: hourly.0 exists but has no stamp.
	if err := os.MkdirAll(filepath.Join(stagesPath, "hourly.0"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(stagesPath, "hourly.0", "partial"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(stagesPath, ".delete"), 0o755); err != nil {
		t.Fatalf("mkdir .delete: %v", err)
	}

	m := New(stagesPath, testStages(), 3600, 2, fsutil.DetectPlatform(), nil)
	if !m.recoveryNeeded {
		t.Fatal("expected New to detect a missing stamp and flag recovery")
	}

	created, err := m.Create(1_700_000_000, CreateParams{SourcePath: src})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created {
		t.Fatal("expected recovery Create to proceed as a fresh initial backup")
	}
	if fsutil.Exists(filepath.Join(stagesPath, "hourly.0", "partial")) {
		t.Error("expected partial leftover file to be gone after recovery")
	}
	if !fsutil.Exists(filepath.Join(stagesPath, "hourly.0", "a.txt")) {
		t.Error("expected fresh sync content to be present after recovery")
	}
	if fsutil.Exists(filepath.Join(stagesPath, ".delete")) {
		t.Error("expected leftover .delete to be removed during recovery")
	}
}
