// Package paths provides XDG-compliant path resolution for the virtual
// display driver tooling.
//
// Resolution order:
// 1. VDD_HOME (portable root) → $VDD_HOME/{config,state,run}
// 2. XDG env vars → $XDG_*_HOME/virtualdisplaydriver
// 3. Platform defaults → ~/.config/virtualdisplaydriver, ~/.local/state/virtualdisplaydriver
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const appDir = "virtualdisplaydriver"

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if home := os.Getenv("VDD_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if home := os.Getenv("VDD_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

func join(base string) string {
	if base == "" {
		return ""
	}
	if os.Getenv("VDD_HOME") != "" {
		return base
	}
	return filepath.Join(base, appDir)
}

// ConfigDir returns the configuration directory.
// Used for vdd.yml and the persisted monitor file.
func ConfigDir() string {
	return join(getConfigHome())
}

// StateDir returns the state directory.
// Used for PID files and logs.
func StateDir() string {
	return join(getStateHome())
}

// RuntimeDir returns the directory holding unix sockets for pipe endpoints.
// Uses XDG_RUNTIME_DIR when available, falls back to StateDir.
func RuntimeDir() string {
	if home := os.Getenv("VDD_HOME"); home != "" {
		return filepath.Join(home, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appDir)
	}
	return StateDir()
}

// SocketPath returns the unix socket path for a pipe name. A name that is
// already an absolute path is returned unchanged.
func SocketPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(RuntimeDir(), sanitize(name)+".sock")
}

// PidFilePath returns the PID file guarding the server for a pipe name.
func PidFilePath(name string) string {
	return filepath.Join(StateDir(), sanitize(name)+".pid")
}

// PersistPath returns the file holding the persisted monitor topology.
func PersistPath() string {
	return filepath.Join(ConfigDir(), "data.json")
}

// LogDir returns the directory for log file sinks.
func LogDir() string {
	return filepath.Join(StateDir(), "logs")
}

// EnsureDirs creates all directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), RuntimeDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func sanitize(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(name)
}
