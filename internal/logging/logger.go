// Package logging adapts the teacher's mutex-guarded Logger shape to the
// single append-only backup.log spec.md §6 names, with the
// log(msg, indent) contract implemented as Logger.Logf.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Logger is a lightweight, goroutine-safe logger: a single shared
// instance used across the whole run, safe for concurrent writes from
// the stage manager, sync engine tasks, and the progress reporter.
//
// Thread safety model:
//   - All file writes are guarded by mu to prevent log line interleaving.
//   - Console writes from Logf are made under the same lock, so two Logf
//     calls never interleave their lines; other console output (such as
//     the progress reporter's) is not coordinated with it.
type Logger struct {
	// LogPath is the full path to backup.log.
	LogPath string

	// Quiet suppresses console output; the file is still written.
	Quiet bool

	mu sync.Mutex
}

// New creates LogPath's parent directory if needed and returns a Logger
// writing to it.
func New(logPath string, quiet bool) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), os.ModePerm); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &Logger{LogPath: logPath, Quiet: quiet}, nil
}

// Logf prints the indented message to stdout (unless Quiet) and appends
// a timestamped copy of every line of it to backup.log.
func (l *Logger) Logf(indent int, format string, args ...any) {
	msg := strings.Repeat("  ", indent) + fmt.Sprintf(format, args...)
	stamp := time.Now().Format("[2006/01/02 15:04:05]")

	var b strings.Builder
	for _, line := range strings.Split(msg, "\n") {
		b.WriteString(stamp)
		b.WriteString(" ")
		b.WriteString(line)
		b.WriteString("\n")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.Quiet {
		fmt.Println(msg)
	}

	if err := appendLine(l.LogPath, b.String()); err != nil {
		fmt.Printf("error writing to log file: %v\n", err)
	}
}

// Infof, Warnf, Errorf, Successf, and Countf are convenience wrappers
// around Logf at indent 0, kept for call sites that don't care about
// nesting level but do want a level tag in the line itself.
func (l *Logger) Infof(format string, args ...any)    { l.Logf(0, "[INFO] "+format, args...) }
func (l *Logger) Warnf(format string, args ...any)    { l.Logf(0, "[WARN] "+format, args...) }
func (l *Logger) Errorf(format string, args ...any)   { l.Logf(0, "[ERR] "+format, args...) }
func (l *Logger) Successf(format string, args ...any) { l.Logf(0, "[OK] "+format, args...) }
func (l *Logger) Countf(format string, args ...any)   { l.Logf(0, "[COUNT] "+format, args...) }

func appendLine(path string, line string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(line)
	return err
}
