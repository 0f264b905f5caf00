//go:build !windows

package process

import (
	"syscall"
)

// KillTree forcefully terminates the process and everything it spawned.
// The child was started in its own process group (see setupProcessAttributes),
// so SIGKILL to the negative PID reaches the whole tree. If the group signal
// fails the direct PID is killed as a fallback.
func KillTree(pid int) error {
	if err := syscall.Kill(-pid, syscall.SIGKILL); err == nil {
		return nil
	}
	return syscall.Kill(pid, syscall.SIGKILL)
}
