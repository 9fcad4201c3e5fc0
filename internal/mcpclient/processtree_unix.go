//go:build !windows

package mcpclient

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const maxProcessTreeDepth = 20

// killProcessTree enumerates the descendants of rootPid (depth-limited to
// maxProcessTreeDepth) and SIGKILLs them leaves-first, then SIGKILLs
// rootPid itself. This matters because killing the parent first reparents
// its descendants to pid 1 on Unix, making them unreachable via the
// parent-of relation afterward — so descendants must be captured and
// killed before the root. "No such process" is not an error: the process
// may have already exited on its own.
func killProcessTree(rootPid int) error {
	levels, err := enumerateDescendantsByLevel(rootPid, maxProcessTreeDepth)
	if err != nil {
		return err
	}

	var lastErr error
	for i := len(levels) - 1; i >= 0; i-- {
		for _, pid := range levels[i] {
			if err := killIgnoreNotExist(pid); err != nil {
				lastErr = err
			}
		}
	}
	if err := killIgnoreNotExist(rootPid); err != nil {
		lastErr = err
	}
	return lastErr
}

func killIgnoreNotExist(pid int) error {
	err := syscall.Kill(pid, syscall.SIGKILL)
	if err == nil || err == syscall.ESRCH {
		return nil
	}
	return fmt.Errorf("kill pid %d: %w", pid, err)
}

// enumerateDescendantsByLevel performs a depth-limited BFS over /proc,
// returning descendant pids grouped by distance from rootPid (level 0 is
// rootPid's direct children, and so on). rootPid itself is not included.
func enumerateDescendantsByLevel(rootPid, maxDepth int) ([][]int, error) {
	childrenOf, err := buildParentChildMap()
	if err != nil {
		return nil, err
	}

	var levels [][]int
	frontier := []int{rootPid}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []int
		for _, pid := range frontier {
			next = append(next, childrenOf[pid]...)
		}
		if len(next) == 0 {
			break
		}
		levels = append(levels, next)
		frontier = next
	}
	return levels, nil
}

func buildParentChildMap() (map[int][]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("mcpclient: reading /proc: %w", err)
	}

	childrenOf := make(map[int][]int)
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		ppid, ok := readPPID(pid)
		if !ok {
			continue
		}
		childrenOf[ppid] = append(childrenOf[ppid], pid)
	}
	return childrenOf, nil
}

// readPPID parses the parent pid out of /proc/<pid>/stat. The comm field
// (2nd field) is parenthesized and may itself contain spaces or
// parentheses, so the fields are located after the last ')'.
func readPPID(pid int) (int, bool) {
	f, err := os.Open(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0, false
	}
	line := scanner.Text()
	closeParen := strings.LastIndexByte(line, ')')
	if closeParen < 0 || closeParen+2 >= len(line) {
		return 0, false
	}
	fields := strings.Fields(line[closeParen+2:])
	// fields[0] = state, fields[1] = ppid
	if len(fields) < 2 {
		return 0, false
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return ppid, true
}
