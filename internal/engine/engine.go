package engine

import (
	"context"

	"github.com/loykin/pgrun/internal/logger"
)

// Status is the engine's own verdict about a data directory. It is derived
// from the postmaster, never from sidecar state, so it stays authoritative
// across unrelated CLI invocations.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// Endpoint is what a successfully started engine listens on.
type Endpoint struct {
	Host     string
	Port     uint16
	Password string
}

// Manager abstracts the engine lifecycle primitives the coordinator consumes.
// Implementations own their internal retry policy; callers never retry.
type Manager interface {
	// Setup prepares binaries and the data directory. Idempotent: a no-op
	// when the data directory is already initialized.
	Setup(ctx context.Context) error
	// Start launches the engine and returns the endpoint it accepts
	// connections on. The engine outlives the calling process.
	Start(ctx context.Context) (Endpoint, error)
	// Stop shuts the engine down. Stopping a stopped engine is not an error.
	Stop(ctx context.Context) error
	// Status reports whether an engine is live for the data directory.
	Status() Status
}

// Config carries everything the postgres engine needs. Port 0 requests an
// OS-allocated port at start time.
type Config struct {
	DataDir  string
	Host     string
	Port     uint16
	Password string
	// BinDir points at the directory holding initdb/postgres/pg_ctl.
	// Empty means discover (PATH, then well-known install locations).
	BinDir string
	// Version pins the accepted postgres major version. Empty skips the check.
	Version   string
	ServerLog logger.ServerLog
	// Detach means the server will outlive this process (daemon mode), so
	// its log must go to an inheritable file instead of a piped writer.
	Detach bool
}
