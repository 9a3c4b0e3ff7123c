package history

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLite writes lifecycle events to a sqlite database. DSN accepts a plain
// path, ":memory:", or a "sqlite://" prefixed form of either.
type SQLite struct {
	db *sql.DB
}

var _ Sink = (*SQLite)(nil)

func NewSQLite(dsn string) (*SQLite, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty sqlite DSN")
	}
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = dsn[len("sqlite://"):]
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLite{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) ensureSchema(ctx context.Context) error {
	// Audit table only; no primary key, rows are never updated.
	stmt := `CREATE TABLE IF NOT EXISTS lifecycle_history(
		timestamp TIMESTAMP NOT NULL DEFAULT (CURRENT_TIMESTAMP),
		data_dir TEXT NOT NULL,
		event TEXT NOT NULL,
		host TEXT,
		port INTEGER
	);`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *SQLite) Send(ctx context.Context, e Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lifecycle_history(timestamp, data_dir, event, host, port)
		VALUES(?, ?, ?, ?, ?);`,
		e.OccurredAt.UTC(), e.DataDir, string(e.Type), e.Host, int(e.Port))
	return err
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
