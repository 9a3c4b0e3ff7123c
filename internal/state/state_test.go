package state

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestSidecarPathsAreSiblingsOfDataDir(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "cluster")
	s := New(data)
	if got, want := s.RecordPath(), filepath.Join(dir, "cluster.pgrun-state.json"); got != want {
		t.Fatalf("record path: got %s want %s", got, want)
	}
	if got, want := s.PasswordPath(), filepath.Join(dir, "cluster.pgrun-password"); got != want {
		t.Fatalf("password path: got %s want %s", got, want)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "data"))
	rec := Record{Host: "localhost", Port: 54321, Password: "secret"}
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || *got != rec {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadAbsentReturnsNil(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "data"))
	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestLoadTornRecordReadsAsAbsent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "data"))
	if err := os.WriteFile(s.RecordPath(), []byte(`{"host":"lo`), 0o600); err != nil {
		t.Fatalf("write torn record: %v", err)
	}
	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec != nil {
		t.Fatalf("torn record should read as absent, got %+v", rec)
	}
}

func TestSaveOverwritesWholeRecord(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "data"))
	if err := s.Save(Record{Host: "localhost", Port: 5001, Password: "old"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(Record{Host: "127.0.0.1", Port: 5002, Password: "new"}); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.Host != "127.0.0.1" || rec.Port != 5002 || rec.Password != "new" {
		t.Fatalf("overwrite not complete: %+v", rec)
	}
}

func TestPasswordRoundTripTrimsWhitespace(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "data"))
	if err := s.SavePassword("hunter2"); err != nil {
		t.Fatalf("SavePassword: %v", err)
	}
	got, err := s.Password()
	if err != nil {
		t.Fatalf("Password: %v", err)
	}
	if got != "hunter2" {
		t.Fatalf("password mismatch: %q", got)
	}
}

func TestPasswordAbsentOrBlankIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "data"))
	if got, err := s.Password(); err != nil || got != "" {
		t.Fatalf("absent password: got %q err %v", got, err)
	}
	if err := os.WriteFile(s.PasswordPath(), []byte("  \n"), 0o600); err != nil {
		t.Fatalf("write blank password: %v", err)
	}
	if got, err := s.Password(); err != nil || got != "" {
		t.Fatalf("blank password: got %q err %v", got, err)
	}
}

func TestPasswordFileIsOwnerOnly(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are unix-only")
	}
	s := New(filepath.Join(t.TempDir(), "data"))
	if err := s.SavePassword("secret"); err != nil {
		t.Fatalf("SavePassword: %v", err)
	}
	info, err := os.Stat(s.PasswordPath())
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("password file mode: got %o want 600", perm)
	}
}

func TestRootishDataDirFallsBackToDefaultBase(t *testing.T) {
	s := New(string(filepath.Separator))
	if !strings.Contains(s.RecordPath(), "pgrun-data.") {
		t.Fatalf("expected fallback base name, got %s", s.RecordPath())
	}
}
