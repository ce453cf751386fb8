package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ErrAlreadyRunning is returned by AcquireMarker when .inprogress already
// exists, meaning another run holds it (or a crashed run left it behind).
var ErrAlreadyRunning = errors.New("backup process already running")

// Marker is the open .inprogress file created_progress_marker guards a run
// with: an exclusive-create sentinel whose content is its own creation
// time, removed only by the process that created it.
type Marker struct {
	path string
}

// AcquireMarker creates backupPath/.inprogress exclusively. If it already
// exists, it returns ErrAlreadyRunning and the caller must not proceed.
func AcquireMarker(backupPath string) (*Marker, error) {
	marker := filepath.Join(backupPath, ".inprogress")

	f, err := os.OpenFile(marker, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: remove %s", ErrAlreadyRunning, marker)
		}
		return nil, fmt.Errorf("create progress marker: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		return nil, fmt.Errorf("write progress marker: %w", err)
	}
	return &Marker{path: marker}, nil
}

// Release removes the marker. Only the process that created it ever calls
// this. A marker left behind by a crashed run is not removed
// automatically: Run refuses to start while it exists and logs the path
// to remove.
func (m *Marker) Release() error {
	return os.Remove(m.path)
}
