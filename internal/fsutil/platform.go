package fsutil

import (
	"os"
	"runtime"
	"strings"
)

// Platform is the single capability predicate consulted by CopyFile,
// CopyStat, Listdir and RemoveFile for the handful of OS-specific quirks this program needs to
// tolerate: unreliable permission reporting and read-only bits on
// Windows-class filesystems, and the WSL interop mount that occasionally
// returns EACCES on metadata writes that succeed everywhere else. Nothing
// else in the package branches on runtime.GOOS directly.
type Platform struct {
	// Windows is true on Windows-class platforms: read-only bits must be
	// cleared before delete, and copy-metadata failures are swallowed
	// because permission reporting cannot be trusted there.
	Windows bool

	// WSL is true when running inside the Windows Subsystem for Linux,
	// where extended-attribute/metadata writes on the Windows-backed
	// filesystem occasionally fail with EACCES even though the write
	// itself is otherwise harmless.
	WSL bool
}

// DetectPlatform inspects the running OS once at startup.
func DetectPlatform() *Platform {
	p := &Platform{Windows: runtime.GOOS == "windows"}
	if runtime.GOOS == "linux" {
		if b, err := os.ReadFile("/proc/version"); err == nil {
			p.WSL = strings.Contains(strings.ToLower(string(b)), "microsoft")
		}
	}
	return p
}
