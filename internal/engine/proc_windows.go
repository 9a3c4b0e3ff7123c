//go:build windows

package engine

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	// FindProcess always succeeds on Windows; Signal(0) probes existence.
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}

// signalFastShutdown has no SIGINT equivalent on Windows; the caller falls
// back to pg_ctl for shutdown there.
func signalFastShutdown(pid int) error {
	return fmt.Errorf("signal-based shutdown unsupported on windows (pid %d)", pid)
}

func detachedAttrs(*exec.Cmd) {}
