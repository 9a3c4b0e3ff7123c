package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Record is the endpoint persisted for a running instance. It is written
// only after the engine reports itself started, and is fully overwritten on
// every restart; partial-field updates never happen.
type Record struct {
	Host     string `json:"host"`
	Port     uint16 `json:"port"`
	Password string `json:"password"`
}

// Store persists the endpoint record and the managed password as sidecar
// files next to (never inside) the data directory. The data directory itself
// must stay untouched before initdb runs.
type Store struct {
	dataDir string
}

func New(dataDir string) Store {
	return Store{dataDir: dataDir}
}

// RecordPath returns <parent>/<base>.pgrun-state.json for the data directory.
func (s Store) RecordPath() string {
	return s.sidecarPath("pgrun-state.json")
}

// PasswordPath returns <parent>/<base>.pgrun-password for the data directory.
func (s Store) PasswordPath() string {
	return s.sidecarPath("pgrun-password")
}

// ServerLogPath is the default location for the captured server log.
func (s Store) ServerLogPath() string {
	return s.sidecarPath("pgrun-server.log")
}

// HistoryPath is the default location for the lifecycle history database.
func (s Store) HistoryPath() string {
	return s.sidecarPath("pgrun-history.db")
}

func (s Store) sidecarPath(suffix string) string {
	dir := filepath.Clean(s.dataDir)
	base := filepath.Base(dir)
	if base == "." || base == string(filepath.Separator) {
		base = "pgrun-data"
	}
	return filepath.Join(filepath.Dir(dir), base+"."+suffix)
}

// Save atomically replaces the record file. The write goes to a temp file in
// the same directory followed by a rename, so readers observe either the old
// record or the new one, never a torn write.
func (s Store) Save(rec Record) error {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	path := s.RecordPath()
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pgrun-state-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Load returns the persisted record, or nil when no record exists. A record
// that cannot be parsed (crash mid-write on filesystems without atomic
// rename) is treated the same as an absent one.
func (s Store) Load() (*Record, error) {
	b, err := os.ReadFile(s.RecordPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, nil
	}
	return &rec, nil
}

// SavePassword writes the managed password file with owner-only permissions
// where the platform supports them.
func (s Store) SavePassword(secret string) error {
	path := s.PasswordPath()
	if err := os.WriteFile(path, []byte(secret+"\n"), 0o600); err != nil {
		return err
	}
	return restrictOwnerOnly(path)
}

// Password returns the managed password, or empty when the file is absent or
// blank.
func (s Store) Password() (string, error) {
	b, err := os.ReadFile(s.PasswordPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
