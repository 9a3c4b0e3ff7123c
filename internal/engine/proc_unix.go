//go:build !windows

package engine

import (
	"errors"
	"os/exec"
	"syscall"
)

// pidAlive returns true if a process with the given pid exists (or EPERM,
// which still means something is running there).
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// signalFastShutdown asks the postmaster for a fast shutdown (SIGINT in
// postgres terms: abort open transactions, then exit cleanly).
func signalFastShutdown(pid int) error {
	return syscall.Kill(pid, syscall.SIGINT)
}

// detachedAttrs puts the server in its own session so it survives the CLI
// process and never receives the terminal's signals.
func detachedAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
