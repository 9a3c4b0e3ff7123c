package coordinator

import (
	"context"
	"sync"

	"github.com/loykin/pgrun/internal/engine"
	"github.com/loykin/pgrun/internal/history"
)

// Instance is the owned handle to an engine this invocation started.
// Ownership is transferable: Detach releases it so the server outlives the
// process (daemon mode), Shutdown consumes it exactly once. An instance
// that was detached has nothing left to shut down.
type Instance struct {
	coord    *Coordinator
	endpoint engine.Endpoint

	mu       sync.Mutex
	detached bool
	done     bool
}

// Endpoint the engine confirmed at start.
func (i *Instance) Endpoint() engine.Endpoint {
	return i.endpoint
}

// URL is the canonical connection line for this instance.
func (i *Instance) URL() string {
	return engine.ConnURL(i.endpoint)
}

// Detach releases ownership: the server keeps running after this process
// exits and any later Shutdown is a no-op. This is the explicit daemon-mode
// path, not an accidental effect of skipping cleanup.
func (i *Instance) Detach() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.detached = true
}

// Shutdown runs the shutdown sequence at most once and reports whether a
// live engine was actually stopped. Re-entry, a detached instance, or an
// engine that already went away are all clean no-ops.
func (i *Instance) Shutdown(ctx context.Context) (bool, error) {
	i.mu.Lock()
	if i.detached || i.done {
		i.mu.Unlock()
		return false, nil
	}
	i.done = true
	i.mu.Unlock()

	if i.coord.engine.Status() != engine.StatusRunning {
		return false, nil
	}
	if err := i.coord.engine.Stop(ctx); err != nil {
		return false, err
	}
	i.coord.log.Info("postgres stopped", "data_dir", i.coord.dataDir)
	i.coord.record(ctx, history.EventStopped, engine.Endpoint{})
	return true, nil
}
