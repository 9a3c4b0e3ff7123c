package engine

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	// PinnedVersion is the postgres major version pgrun manages.
	PinnedVersion = "18"

	readyPollInterval = 250 * time.Millisecond
	readyTimeout      = 30 * time.Second
	stopPollInterval  = 100 * time.Millisecond
)

// Postgres drives a local PostgreSQL installation through its own binaries.
// The postmaster is launched in its own session, so it keeps running after
// the CLI process exits; later invocations find it again through
// postmaster.pid in the data directory.
type Postgres struct {
	cfg Config
}

var _ Manager = (*Postgres)(nil)

func NewPostgres(cfg Config) *Postgres {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	return &Postgres{cfg: cfg}
}

// Setup locates the binaries, verifies the pinned version, and runs initdb
// when the data directory has not been initialized yet. Safe to call on
// every start.
func (p *Postgres) Setup(ctx context.Context) error {
	bin, err := p.binDir()
	if err != nil {
		return err
	}
	if p.cfg.Version != "" {
		if err := checkVersion(ctx, filepath.Join(bin, "postgres"), p.cfg.Version); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(p.cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if Initialized(p.cfg.DataDir) {
		return nil
	}

	pwfile, err := os.CreateTemp("", "pgrun-pw-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(pwfile.Name()) }()
	if _, err := pwfile.WriteString(p.cfg.Password + "\n"); err != nil {
		_ = pwfile.Close()
		return err
	}
	if err := pwfile.Close(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, filepath.Join(bin, "initdb"),
		"-D", p.cfg.DataDir,
		"-U", "postgres",
		"--auth=scram-sha-256",
		"--pwfile", pwfile.Name(),
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("initdb: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Start launches the postmaster detached from this process and waits until
// it accepts connections on the resolved endpoint.
func (p *Postgres) Start(ctx context.Context) (Endpoint, error) {
	bin, err := p.binDir()
	if err != nil {
		return Endpoint{}, err
	}
	port := p.cfg.Port
	if port == 0 {
		port, err = freePort()
		if err != nil {
			return Endpoint{}, err
		}
	}

	// The socket lives in the data dir: the compiled-in default often needs
	// root, and TCP is the advertised endpoint anyway.
	cmd := exec.Command(filepath.Join(bin, "postgres"),
		"-D", p.cfg.DataDir,
		"-p", strconv.Itoa(int(port)),
		"-c", "listen_addresses="+p.cfg.Host,
		"-c", "unix_socket_directories="+p.cfg.DataDir,
	)
	detachedAttrs(cmd)
	cmd.Stdin = nil
	var logSink io.Closer
	if p.cfg.Detach {
		f, err := p.cfg.ServerLog.File()
		if err != nil {
			return Endpoint{}, fmt.Errorf("open server log: %w", err)
		}
		if f != nil {
			defer func() { _ = f.Close() }()
			cmd.Stdout = f
			cmd.Stderr = f
		}
	} else if w := p.cfg.ServerLog.Writer(); w != nil {
		cmd.Stdout = w
		cmd.Stderr = w
		logSink = w
	}
	if err := cmd.Start(); err != nil {
		if logSink != nil {
			_ = logSink.Close()
		}
		return Endpoint{}, fmt.Errorf("spawn postmaster: %w", err)
	}
	// Reap the child if it exits while this invocation is still alive.
	done := make(chan error, 1)
	go reap(cmd, logSink, done)

	ep := Endpoint{Host: p.cfg.Host, Port: port, Password: p.cfg.Password}
	if err := p.waitReady(ctx, ep, done); err != nil {
		return Endpoint{}, err
	}
	return ep, nil
}

// reap collects the postmaster's exit status and closes the captured log
// writer once no more output can arrive, so the rotating log flushes before
// this invocation exits.
func reap(cmd *exec.Cmd, logSink io.Closer, done chan<- error) {
	err := cmd.Wait()
	if logSink != nil {
		_ = logSink.Close()
	}
	done <- err
}

// waitReady polls a real connection until the server answers, the postmaster
// exits, or the timeout passes. A refused connection during startup is
// expected; anything after postmaster death is fatal.
func (p *Postgres) waitReady(ctx context.Context, ep Endpoint, exited <-chan error) error {
	deadline := time.NewTimer(readyTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(readyPollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-exited:
			if err == nil {
				err = fmt.Errorf("exited during startup")
			}
			return fmt.Errorf("postmaster %w", err)
		case <-deadline.C:
			return fmt.Errorf("postgres not ready after %s", readyTimeout)
		case <-tick.C:
			if pingOnce(ctx, ep) == nil {
				return nil
			}
		}
	}
}

func pingOnce(ctx context.Context, ep Endpoint) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	conn, err := pgx.Connect(ctx, ConnURL(ep))
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(ctx) }()
	return conn.Ping(ctx)
}

// Stop asks the postmaster for a fast shutdown and waits for it to go away.
// A stopped engine is a no-op.
func (p *Postgres) Stop(ctx context.Context) error {
	pid := postmasterPID(p.cfg.DataDir)
	if !pidAlive(pid) {
		return nil
	}
	if err := signalFastShutdown(pid); err != nil {
		// No signal path on this platform; let pg_ctl do it.
		return p.stopViaPgCtl(ctx)
	}
	tick := time.NewTicker(stopPollInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			if !pidAlive(pid) {
				return nil
			}
		}
	}
}

func (p *Postgres) stopViaPgCtl(ctx context.Context) error {
	bin, err := p.binDir()
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, filepath.Join(bin, "pg_ctl"),
		"stop", "-D", p.cfg.DataDir, "-m", "fast", "-w")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pg_ctl stop: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Status probes the postmaster recorded in the data directory. This is the
// single source of truth for running/not-running; sidecar records are never
// consulted.
func (p *Postgres) Status() Status {
	if pidAlive(postmasterPID(p.cfg.DataDir)) {
		return StatusRunning
	}
	return StatusStopped
}

// ConnURL renders the canonical connection line for an endpoint. The managed
// superuser and default database are both "postgres".
func ConnURL(ep Endpoint) string {
	return fmt.Sprintf("postgresql://postgres:%s@%s:%d/postgres", ep.Password, ep.Host, ep.Port)
}

// binDir resolves the directory holding the postgres binaries: explicit
// config first, then PATH, then well-known install locations for the pinned
// major version.
func (p *Postgres) binDir() (string, error) {
	if p.cfg.BinDir != "" {
		if _, err := os.Stat(filepath.Join(p.cfg.BinDir, exeName("postgres"))); err != nil {
			return "", fmt.Errorf("postgres not found in %s: %w", p.cfg.BinDir, err)
		}
		return p.cfg.BinDir, nil
	}
	if path, err := exec.LookPath(exeName("postgres")); err == nil {
		return filepath.Dir(path), nil
	}
	version := p.cfg.Version
	if version == "" {
		version = PinnedVersion
	}
	for _, dir := range []string{
		"/usr/lib/postgresql/" + version + "/bin",
		"/usr/pgsql-" + version + "/bin",
		"/opt/homebrew/opt/postgresql@" + version + "/bin",
		"/usr/local/opt/postgresql@" + version + "/bin",
	} {
		if _, err := os.Stat(filepath.Join(dir, exeName("postgres"))); err == nil {
			return dir, nil
		}
	}
	return "", fmt.Errorf("postgres %s binaries not found (set pg_bin or PGRUN_PG_BIN)", version)
}

func exeName(name string) string {
	if os.PathSeparator == '\\' {
		return name + ".exe"
	}
	return name
}

// checkVersion rejects an installation whose major version differs from the
// pinned one, so a data directory never gets initialized or started by a
// mismatched server.
func checkVersion(ctx context.Context, postgres, want string) error {
	out, err := exec.CommandContext(ctx, postgres, "--version").Output()
	if err != nil {
		return fmt.Errorf("postgres --version: %w", err)
	}
	major := majorVersion(string(out))
	if major == "" {
		return fmt.Errorf("cannot parse postgres version from %q", strings.TrimSpace(string(out)))
	}
	if major != want {
		return fmt.Errorf("postgres %s found, want %s", major, want)
	}
	return nil
}

// majorVersion extracts the major version from "postgres (PostgreSQL) 18.1"
// style output. Returns empty when nothing parses.
func majorVersion(out string) string {
	fields := strings.Fields(out)
	for i := len(fields) - 1; i >= 0; i-- {
		f := fields[i]
		num := f
		if j := strings.IndexByte(f, '.'); j >= 0 {
			num = f[:j]
		}
		if _, err := strconv.Atoi(num); err == nil {
			return num
		}
	}
	return ""
}

func freePort() (uint16, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return uint16(l.Addr().(*net.TCPAddr).Port), nil
}
