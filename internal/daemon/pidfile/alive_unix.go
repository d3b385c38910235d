//go:build !windows

package pidfile

import (
	"golang.org/x/sys/unix"
)

// isProcessAlive sends signal 0, which checks for existence without
// delivering anything. EPERM means the process exists under another user.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
