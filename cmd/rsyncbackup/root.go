// Package main wires a single Cobra command: create an incremental backup
// snapshot of source_path in backup_path, per rsync_backup's CLI surface.
//
// Grounded in
// _examples/GallagherCommaJack-coworktree/cmd/root.go's single-binary
// rootCmd + PersistentFlags + Execute() shape, reduced to one command since
// this tool has no subcommands.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"rsyncbackup/internal/config"
	"rsyncbackup/internal/driver"
	"rsyncbackup/internal/logging"
)

var (
	configFlag       string
	saveMemoryFlag   bool
	jobsFlag         int
	includePathsFlag []string
	excludePathsFlag []string
	quietFlag        bool
)

var rootCmd = &cobra.Command{
	Use:   "rsyncbackup source_path backup_path",
	Short: "Create an incremental, hard-link-deduplicated backup snapshot",
	Long: `rsyncbackup mirrors source_path into a rotating set of timestamped
snapshots under backup_path, the way rsync --archive --delete with
--link-dest would, without shelling out to rsync.

Example usage:
  - Backup / to /backup
    rsyncbackup / /backup
  - Backup / to /backup, but exclude /mnt and /tmp
    rsyncbackup / /backup -e mnt -e tmp
  - Backup / to /backup, but only include /etc and /usr
    rsyncbackup / /backup -i etc -i usr
  - Backup / to /backup, only include /etc and /usr without /usr/local
    rsyncbackup / /backup -i etc -i usr -e usr/local`,
	Args: cobra.ExactArgs(2),
	RunE: runBackup,
}

func init() {
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "configuration file (default: <backup_path>/config.json)")
	rootCmd.Flags().BoolVarP(&saveMemoryFlag, "save-memory", "s", false, "do not keep the entire file tree in memory (slightly slower)")
	rootCmd.Flags().IntVarP(&jobsFlag, "jobs", "j", runtime.NumCPU(), "number of parallel jobs (default: number of logical cores)")
	rootCmd.Flags().StringArrayVarP(&includePathsFlag, "include-paths", "i", nil, "include path for backup (must be relative to source_path)")
	rootCmd.Flags().StringArrayVarP(&excludePathsFlag, "exclude-paths", "e", nil, "exclude path from backup (must be relative to source_path)")
	rootCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress console output and the live progress bar")
}

// Execute runs the root command; main's only job is to translate its
// returned error into an exit code.
func Execute() error {
	return rootCmd.Execute()
}

func runBackup(cmd *cobra.Command, args []string) error {
	sourcePath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve source_path: %w", err)
	}
	backupPath, err := filepath.Abs(args[1])
	if err != nil {
		return fmt.Errorf("resolve backup_path: %w", err)
	}

	if err := os.MkdirAll(backupPath, 0o755); err != nil {
		return fmt.Errorf("create backup_path: %w", err)
	}

	configPath := configFlag
	if configPath == "" {
		configPath = filepath.Join(backupPath, "config.json")
	}

	fileCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fileCfg.SourcePath = sourcePath
	fileCfg.BackupPath = backupPath
	fileCfg.SaveMemory = saveMemoryFlag
	fileCfg.Jobs = jobsFlag
	fileCfg.IncludePaths = includePathsFlag
	fileCfg.ExcludePaths = excludePathsFlag

	log, err := logging.New(filepath.Join(backupPath, "backup.log"), quietFlag)
	if err != nil {
		return err
	}

	_, err = driver.Run(time.Now().Unix(), fileCfg, log, quietFlag)
	return err
}
