package engine

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// postmasterPID reads the PID from <dataDir>/postmaster.pid. The file's
// first line is the postmaster's PID; the remaining lines (socket dir,
// listen address, shared memory key) are ignored. Absent or unparsable
// files read as "no postmaster", matching how stale sidecar state is
// treated elsewhere.
func postmasterPID(dataDir string) int {
	b, err := os.ReadFile(filepath.Join(dataDir, "postmaster.pid"))
	if err != nil {
		return 0
	}
	first, _, _ := strings.Cut(string(b), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}

// Initialized reports whether initdb has already run for the data directory.
func Initialized(dataDir string) bool {
	_, err := os.Stat(filepath.Join(dataDir, "postgresql.conf"))
	return err == nil
}
