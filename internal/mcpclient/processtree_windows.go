//go:build windows

package mcpclient

import (
	"fmt"
	"os/exec"
	"strconv"
)

// killProcessTree on Windows delegates to taskkill's own recursive
// process-tree termination (/T), since the parent-reparenting hazard that
// forces a manual leaves-first walk on Unix does not apply the same way
// here. Exit codes indicating the process was already gone are ignored.
func killProcessTree(rootPid int) error {
	cmd := exec.Command("taskkill", "/PID", strconv.Itoa(rootPid), "/T", "/F")
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		// taskkill exits 128 when the process is not found.
		if exitErr.ExitCode() == 128 {
			return nil
		}
	}
	return fmt.Errorf("taskkill pid %d: %w: %s", rootPid, err, out)
}
