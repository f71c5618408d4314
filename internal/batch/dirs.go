package batch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// dirPerm is the permission for batch-managed directories.
const dirPerm = 0750

// DirConfig holds the watch service directory layout.
type DirConfig struct {
	Inbox  string // incoming case files
	Outbox string // completed outcomes
	State  string // state/{processing,audit} plus the PID lock
}

// DefaultDirConfig returns the layout under ~/.redtape for local use.
func DefaultDirConfig() DirConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".redtape")
	return DirConfig{
		Inbox:  filepath.Join(base, "inbox"),
		Outbox: filepath.Join(base, "outbox"),
		State:  filepath.Join(base, "state"),
	}
}

// ProcessingDir returns the path holding claimed cases while they run.
func (d DirConfig) ProcessingDir() string {
	return filepath.Join(d.State, "processing")
}

// AuditDir returns the path holding per-case audit trails.
func (d DirConfig) AuditDir() string {
	return filepath.Join(d.State, "audit")
}

// EnsureDirs creates all required directories. Idempotent.
func EnsureDirs(cfg DirConfig) error {
	dirs := []string{
		cfg.Inbox,
		cfg.Outbox,
		cfg.ProcessingDir(),
		cfg.AuditDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ValidateSameFilesystem checks that the inbox and the state directory
// share a filesystem so claiming a case by rename stays atomic. Best
// effort: paths that cannot be inspected pass, and moveFile degrades to
// copy+remove across devices anyway.
func ValidateSameFilesystem(cfg DirConfig) error {
	inboxDev, err := deviceID(cfg.Inbox)
	if err != nil {
		return nil
	}
	stateDev, err := deviceID(cfg.State)
	if err != nil {
		return nil
	}
	if inboxDev != stateDev {
		return fmt.Errorf("inbox %s and state %s are on different filesystems; claiming cases will copy instead of rename", cfg.Inbox, cfg.State)
	}
	return nil
}

// moveFile moves src to dst using os.Rename. If rename fails with EXDEV
// (cross-device link, common with systemd ReadWritePaths bind mounts),
// it falls back to copy + remove.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	// Check for EXDEV (cross-device link).
	var errno syscall.Errno
	if !errors.As(err, &errno) || errno != syscall.EXDEV {
		return err
	}
	// Fallback: copy then remove.
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile copies src to dst preserving permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
