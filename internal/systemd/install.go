package systemd

import (
	"fmt"
	"os"
	"path/filepath"
)

// UserUnitPath returns the install path for the watch unit under the
// user's systemd directory.
func UserUnitPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "systemd", "user", UnitName), nil
}

// Installed reports the path of the installed watch unit, or empty when
// none is found.
func Installed() string {
	path, err := UserUnitPath()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
