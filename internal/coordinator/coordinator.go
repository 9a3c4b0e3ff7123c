// Package coordinator orchestrates the lifecycle of one postgres instance
// per data directory across independent CLI invocations. All cross-process
// agreement flows through two sources: the engine's own liveness verdict
// (authoritative) and the sidecar state store (display data only, may be
// stale). The double-start guard always re-queries the engine, never the
// sidecar record.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loykin/pgrun/internal/engine"
	"github.com/loykin/pgrun/internal/history"
	"github.com/loykin/pgrun/internal/state"
)

var (
	ErrAlreadyRunning = errors.New("server already running")
	ErrNotRunning     = errors.New("server not running")
	ErrNoRecord       = errors.New("no endpoint record")
)

const statusPollInterval = 250 * time.Millisecond

type Coordinator struct {
	dataDir string
	engine  engine.Manager
	store   state.Store
	sink    history.Sink
	log     *slog.Logger
}

func New(dataDir string, eng engine.Manager, st state.Store, sink history.Sink, log *slog.Logger) *Coordinator {
	if sink == nil {
		sink = history.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{dataDir: dataDir, engine: eng, store: st, sink: sink, log: log}
}

// ResolveStartPassword picks the credential for a start: the managed
// password file when present, a fresh secret for a brand-new cluster, and a
// hard error for an initialized cluster whose password file went missing
// (we could start it, but nobody could log in).
func ResolveStartPassword(st state.Store, initialized bool) (string, error) {
	pw, err := st.Password()
	if err != nil {
		return "", fmt.Errorf("read managed password file: %w", err)
	}
	if pw != "" {
		return pw, nil
	}
	if initialized {
		return "", fmt.Errorf(
			"missing managed password file for initialized data directory; reset the postgres password and write it to %s",
			st.PasswordPath())
	}
	return uuid.NewString(), nil
}

// Start runs the full sequence: double-start guard, setup, engine start,
// then endpoint persistence. The record hits disk strictly after the engine
// confirms it is up, so no other invocation can ever read an endpoint that
// was never live. The returned Instance owns the running engine until
// Detach or Shutdown.
func (c *Coordinator) Start(ctx context.Context) (*Instance, error) {
	if c.engine.Status() == engine.StatusRunning {
		return nil, fmt.Errorf("%w for %s", ErrAlreadyRunning, c.dataDir)
	}
	if err := c.engine.Setup(ctx); err != nil {
		return nil, fmt.Errorf("setup postgres: %w", err)
	}
	ep, err := c.engine.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}
	c.log.Info("postgres started", "data_dir", c.dataDir, "host", ep.Host, "port", ep.Port)

	if err := c.store.Save(state.Record{Host: ep.Host, Port: ep.Port, Password: ep.Password}); err != nil {
		return nil, fmt.Errorf("persist endpoint: %w", err)
	}
	if err := c.store.SavePassword(ep.Password); err != nil {
		return nil, fmt.Errorf("persist password: %w", err)
	}
	c.record(ctx, history.EventStarted, ep)

	return &Instance{coord: c, endpoint: ep}, nil
}

// RunState is derived on demand, never cached: the engine answers
// running/not-running, the sidecar record fills in endpoint detail when it
// exists. Record may be nil for a running engine (degraded, not an error).
type RunState struct {
	Running bool
	Record  *state.Record
}

func (c *Coordinator) Status() (RunState, error) {
	if c.engine.Status() != engine.StatusRunning {
		// A leftover record from a previous run is expected here and does
		// not make the verdict "running".
		return RunState{}, nil
	}
	rec, err := c.store.Load()
	if err != nil {
		return RunState{}, fmt.Errorf("read endpoint record: %w", err)
	}
	return RunState{Running: true, Record: rec}, nil
}

// URL returns the canonical connection line for a running instance.
func (c *Coordinator) URL() (string, error) {
	st, err := c.Status()
	if err != nil {
		return "", err
	}
	if !st.Running {
		return "", fmt.Errorf("%w for %s", ErrNotRunning, c.dataDir)
	}
	if st.Record == nil {
		return "", fmt.Errorf("%w for %s", ErrNoRecord, c.dataDir)
	}
	return engine.ConnURL(engine.Endpoint{
		Host:     st.Record.Host,
		Port:     st.Record.Port,
		Password: st.Record.Password,
	}), nil
}

// Stop shuts the engine down if it is running. Stopping a stopped instance
// succeeds as a no-op; the sidecar record is retained either way, because a
// record never implies running by itself. Returns whether a stop happened.
func (c *Coordinator) Stop(ctx context.Context) (bool, error) {
	if c.engine.Status() != engine.StatusRunning {
		return false, nil
	}
	if err := c.engine.Stop(ctx); err != nil {
		return false, fmt.Errorf("stop postgres: %w", err)
	}
	c.log.Info("postgres stopped", "data_dir", c.dataDir)
	c.record(ctx, history.EventStopped, engine.Endpoint{})
	return true, nil
}

// WaitOutcome says why a foreground wait returned.
type WaitOutcome int

const (
	// OutcomeSignal: a termination signal arrived; run the shutdown sequence.
	OutcomeSignal WaitOutcome = iota
	// OutcomeEngineStopped: the server went away on its own; nothing to stop.
	OutcomeEngineStopped
)

// Wait blocks a foreground start until the shutdown channel fires or the
// engine stops by itself. The 250ms liveness poll keeps a foreground pgrun
// from outliving a server that was stopped from elsewhere.
func (c *Coordinator) Wait(ctx context.Context, shutdown <-chan struct{}) WaitOutcome {
	tick := time.NewTicker(statusPollInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return OutcomeSignal
		case <-shutdown:
			return OutcomeSignal
		case <-tick.C:
			if c.engine.Status() != engine.StatusRunning {
				return OutcomeEngineStopped
			}
		}
	}
}

// record appends a history event. History is advisory; failures are logged
// and swallowed so they can never fail a lifecycle operation.
func (c *Coordinator) record(ctx context.Context, typ history.EventType, ep engine.Endpoint) {
	e := history.Event{
		Type:       typ,
		OccurredAt: time.Now(),
		DataDir:    c.dataDir,
		Host:       ep.Host,
		Port:       ep.Port,
	}
	if err := c.sink.Send(ctx, e); err != nil {
		c.log.Warn("history event not recorded", "event", string(typ), "error", err)
	}
}
