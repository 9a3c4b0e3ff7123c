//go:build !windows

package sigwatch

import (
	"syscall"
	"testing"
	"time"
)

func TestFirstSignalClosesDone(t *testing.T) {
	w := New()
	defer w.Stop()

	select {
	case <-w.Done():
		t.Fatalf("done closed before any signal")
	case <-time.After(50 * time.Millisecond):
	}

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("self-signal: %v", err)
	}
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("done not closed after SIGTERM")
	}
}

func TestSecondSignalIsAbsorbed(t *testing.T) {
	w := New()
	defer w.Stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("self-signal: %v", err)
	}
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("done not closed after first signal")
	}
	// A second signal must neither panic (double close) nor terminate the
	// test process; the watcher is still registered and drains it.
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("second self-signal: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	select {
	case <-w.Done():
	default:
		t.Fatalf("done unexpectedly reopened")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w := New()
	w.Stop()
	w.Stop()
}
