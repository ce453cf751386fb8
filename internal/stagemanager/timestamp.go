package stagemanager

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func stampPath(stagesPath, snapshot string) string {
	return filepath.Join(stagesPath, "."+snapshot+".stamp")
}

// readStamp returns the aligned creation epoch seconds stored for
// snapshot, or an error if the stamp file is missing or unparsable. A
// missing stamp is how an interrupted prior run is detected.
func readStamp(stagesPath, snapshot string) (int64, error) {
	data, err := os.ReadFile(stampPath(stagesPath, snapshot))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("stagemanager: malformed stamp for %s: %w", snapshot, err)
	}
	return v, nil
}

// writeStamp stores value for snapshot via a temp-file-then-rename so a
// crash never leaves a half-written stamp behind.
func writeStamp(stagesPath, snapshot string, value int64) error {
	path := stampPath(stagesPath, snapshot)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatInt(value, 10)), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func removeStamp(stagesPath, snapshot string) error {
	err := os.Remove(stampPath(stagesPath, snapshot))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// renameStamp carries a snapshot's timestamp along with a rotation move,
// preserving the original creation alignment under its new name.
func renameStamp(stagesPath, from, to string) error {
	err := os.Rename(stampPath(stagesPath, from), stampPath(stagesPath, to))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// elapsed returns now - readStamp(snapshot), or an error if the stamp
// cannot be read.
func elapsed(stagesPath, snapshot string, now int64) (int64, error) {
	v, err := readStamp(stagesPath, snapshot)
	if err != nil {
		return 0, err
	}
	return now - v, nil
}

// alignDown rounds now down to the most recent multiple of baseInterval.
func alignDown(now, baseInterval int64) int64 {
	if baseInterval <= 0 {
		return now
	}
	return now - (now % baseInterval)
}
