package pgrun

import (
	"context"

	"github.com/loykin/pgrun/internal/coordinator"
	"github.com/loykin/pgrun/internal/engine"
	"github.com/loykin/pgrun/internal/history"
	"github.com/loykin/pgrun/internal/logger"
	"github.com/loykin/pgrun/internal/state"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Endpoint = engine.Endpoint

type Record = state.Record

type RunState = coordinator.RunState

type Instance = coordinator.Instance

type ServerLog = logger.ServerLog

type HistorySink = history.Sink

var (
	ErrAlreadyRunning = coordinator.ErrAlreadyRunning
	ErrNotRunning     = coordinator.ErrNotRunning
	ErrNoRecord       = coordinator.ErrNoRecord
)

// Options configures a managed postgres bound to one data directory.
// Zero values mean: localhost, OS-picked port, pinned version, binaries
// from PATH, no captured server log, no history.
type Options struct {
	DataDir   string
	Host      string
	Port      uint16
	BinDir    string
	Version   string
	ServerLog ServerLog
	History   HistorySink
}

// Server is a thin facade over the lifecycle coordinator for embedding.
// Every method derives running/not-running from the engine itself, so
// separate Server values in separate processes agree on the same instance.
type Server struct {
	opts  Options
	store state.Store
}

func Open(opts Options) *Server {
	return &Server{opts: opts, store: state.New(opts.DataDir)}
}

// Start initializes (when needed) and starts the server, persisting the
// endpoint for other processes. The returned Instance owns the running
// server; call Detach to let it outlive this process.
func (s *Server) Start(ctx context.Context) (*Instance, error) {
	pw, err := coordinator.ResolveStartPassword(s.store, engine.Initialized(s.opts.DataDir))
	if err != nil {
		return nil, err
	}
	return s.coordinator(pw).Start(ctx)
}

// Stop shuts the server down; a stopped server is a no-op. Reports whether
// a stop actually happened.
func (s *Server) Stop(ctx context.Context) (bool, error) {
	return s.coordinator("").Stop(ctx)
}

// Status derives the current run state from the engine and the persisted
// endpoint record.
func (s *Server) Status() (RunState, error) {
	return s.coordinator("").Status()
}

// URL returns the canonical connection line of a running server.
func (s *Server) URL() (string, error) {
	return s.coordinator("").URL()
}

// Wait blocks until the shutdown channel fires or the server stops on its
// own; see coordinator.WaitOutcome.
func (s *Server) Wait(ctx context.Context, shutdown <-chan struct{}) coordinator.WaitOutcome {
	return s.coordinator("").Wait(ctx, shutdown)
}

func (s *Server) coordinator(password string) *coordinator.Coordinator {
	eng := engine.NewPostgres(engine.Config{
		DataDir:   s.opts.DataDir,
		Host:      s.opts.Host,
		Port:      s.opts.Port,
		Password:  password,
		BinDir:    s.opts.BinDir,
		Version:   s.opts.Version,
		ServerLog: s.opts.ServerLog,
	})
	return coordinator.New(s.opts.DataDir, eng, s.store, s.opts.History, nil)
}
