package main

import (
	"context"
	"fmt"
	"io"

	"github.com/loykin/pgrun/internal/config"
	"github.com/loykin/pgrun/internal/coordinator"
	"github.com/loykin/pgrun/internal/engine"
	"github.com/loykin/pgrun/internal/history"
	"github.com/loykin/pgrun/internal/logger"
	"github.com/loykin/pgrun/internal/sigwatch"
	"github.com/loykin/pgrun/internal/state"
)

// command binds the handlers to an output stream so tests can capture what
// the user sees on stdout.
type command struct {
	out io.Writer
}

// invocation is everything one subcommand run needs, assembled from config,
// environment and flags.
type invocation struct {
	coord *coordinator.Coordinator
	sink  history.Sink
}

func (r *invocation) close() {
	_ = r.sink.Close()
}

// setup resolves the identity (env beats flag beats config file) and wires
// engine, store, history and logging together. Only a start needs the
// credential resolved; status/url/stop must keep working when the password
// file of an initialized cluster went missing.
func (c *command) setup(configPath, dataDirFlag string, forStart bool, tune func(*engine.Config)) (*invocation, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	dataDir, err := cfg.ResolveDataDir(dataDirFlag)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel)
	st := state.New(dataDir)

	engCfg := engine.Config{
		DataDir: dataDir,
		Host:    cfg.Host,
		Port:    cfg.Port,
		BinDir:  cfg.PgBin,
		Version: cfg.Version,
	}
	if forStart {
		pw, err := coordinator.ResolveStartPassword(st, engine.Initialized(dataDir))
		if err != nil {
			return nil, err
		}
		engCfg.Password = pw
		logPath := cfg.Log.Path
		if logPath == "" {
			logPath = st.ServerLogPath()
		}
		engCfg.ServerLog = logger.ServerLog{
			Path:       logPath,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		}
	}
	if tune != nil {
		tune(&engCfg)
	}

	var sink history.Sink = history.Nop{}
	if cfg.History.Enabled {
		dsn := cfg.History.DSN
		if dsn == "" {
			dsn = st.HistoryPath()
		}
		if s, err := history.NewSQLite(dsn); err != nil {
			log.Warn("history disabled", "error", err)
		} else {
			sink = s
		}
	}

	eng := engine.NewPostgres(engCfg)
	return &invocation{
		coord: coordinator.New(dataDir, eng, st, sink, log),
		sink:  sink,
	}, nil
}

// Start brings the engine up, prints the endpoint line, and either returns
// immediately (daemon) or blocks until a signal or the server's own exit.
func (c *command) Start(ctx context.Context, f StartFlags) error {
	rt, err := c.setup(f.ConfigPath, f.DataDir, true, func(ec *engine.Config) {
		if f.Host != "" {
			ec.Host = f.Host
		}
		if f.Port != 0 {
			ec.Port = f.Port
		}
		ec.Detach = f.Daemon
	})
	if err != nil {
		return err
	}
	defer rt.close()

	inst, err := rt.coord.Start(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, inst.URL())

	if f.Daemon {
		// Ownership is released on purpose: the server must outlive this
		// process, so no cleanup path may run.
		inst.Detach()
		return nil
	}

	w := sigwatch.New()
	defer w.Stop()
	outcome := rt.coord.Wait(ctx, w.Done())

	if outcome == coordinator.OutcomeSignal {
		stopped, err := inst.Shutdown(ctx)
		if err != nil {
			return err
		}
		if stopped {
			_, _ = fmt.Fprintln(c.out, "PostgreSQL stopped cleanly.")
			return nil
		}
	}
	_, _ = fmt.Fprintln(c.out, "PostgreSQL is no longer running.")
	return nil
}

// Status never fails for the not-running case; its exit code only reflects
// real faults (unreadable config, unreadable record).
func (c *command) Status(f DataDirFlags) error {
	rt, err := c.setup(f.ConfigPath, f.DataDir, false, nil)
	if err != nil {
		return err
	}
	defer rt.close()

	rs, err := rt.coord.Status()
	if err != nil {
		return err
	}
	if !rs.Running {
		_, _ = fmt.Fprintln(c.out, "not running")
		return nil
	}
	_, _ = fmt.Fprintln(c.out, "running")
	if rs.Record == nil {
		_, _ = fmt.Fprintln(c.out, "connection details unavailable (missing endpoint record)")
		return nil
	}
	_, _ = fmt.Fprintln(c.out, engine.ConnURL(engine.Endpoint{
		Host:     rs.Record.Host,
		Port:     rs.Record.Port,
		Password: rs.Record.Password,
	}))
	return nil
}

// URL prints the endpoint line only, failing when the engine is down or the
// record is missing.
func (c *command) URL(f DataDirFlags) error {
	rt, err := c.setup(f.ConfigPath, f.DataDir, false, nil)
	if err != nil {
		return err
	}
	defer rt.close()

	url, err := rt.coord.URL()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, url)
	return nil
}

// Stop is idempotent: stopping an already-stopped identity reports and
// exits zero.
func (c *command) Stop(ctx context.Context, f DataDirFlags) error {
	rt, err := c.setup(f.ConfigPath, f.DataDir, false, nil)
	if err != nil {
		return err
	}
	defer rt.close()

	stopped, err := rt.coord.Stop(ctx)
	if err != nil {
		return err
	}
	if stopped {
		_, _ = fmt.Fprintln(c.out, "stopped")
	} else {
		_, _ = fmt.Fprintln(c.out, "not running")
	}
	return nil
}
