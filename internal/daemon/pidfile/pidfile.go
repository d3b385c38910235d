// Package pidfile keeps one server per pipe name.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grovetools/vdd/errors"
	"github.com/grovetools/vdd/pkg/paths"
)

// Path returns the PID file location for a pipe name.
func Path(pipe string) string {
	return paths.PidFilePath(pipe)
}

// Acquire writes the current PID to the pipe's file.
// It returns an ALREADY_RUNNING error if another live process holds it.
func Acquire(pipe string) error {
	path := Path(pipe)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}

	if pid, err := readPath(path); err == nil {
		if pid != os.Getpid() && isProcessAlive(pid) {
			return errors.AlreadyRunning(pipe, pid)
		}
		// Process is dead, cleanup stale file
		_ = os.Remove(path)
	}

	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// Release removes the pipe's PID file. A missing file is not an error.
func Release(pipe string) error {
	if err := os.Remove(Path(pipe)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Read returns the PID recorded for the pipe.
func Read(pipe string) (int, error) {
	return readPath(Path(pipe))
}

// IsRunning checks if the server recorded for the pipe is active.
func IsRunning(pipe string) (bool, int, error) {
	pid, err := Read(pipe)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return isProcessAlive(pid), pid, nil
}

func readPath(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(content)))
}
