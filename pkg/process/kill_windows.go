//go:build windows

package process

import (
	"fmt"
	"os/exec"
	"strconv"
)

// KillTree forcefully terminates the process and everything it spawned.
// The game server launches helper children, so a plain TerminateProcess on
// the root PID is not enough; taskkill /T walks the tree.
func KillTree(pid int) error {
	cmd := exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid))
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("taskkill PID %d failed: %v: %s", pid, err, output)
	}
	return nil
}
