// Package sigwatch turns OS termination signals into a single consumable
// shutdown event. The first SIGINT or SIGTERM closes Done(); anything after
// that is absorbed, so a second Ctrl-C during shutdown cannot re-enter it.
package sigwatch

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

type Watcher struct {
	done chan struct{}
	sigs chan os.Signal
	once sync.Once
	stop sync.Once
}

// New starts watching for interrupt and terminate.
func New() *Watcher {
	w := &Watcher{
		done: make(chan struct{}),
		sigs: make(chan os.Signal, 1),
	}
	signal.Notify(w.sigs, os.Interrupt, syscall.SIGTERM)
	go w.watch()
	return w
}

func (w *Watcher) watch() {
	for range w.sigs {
		w.once.Do(func() { close(w.done) })
		// Keep draining so late signals never pile up or kill the process
		// with the default disposition re-armed.
	}
}

// Done is closed when the first signal arrives. It never reopens.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Stop unregisters the watcher and restores default signal handling. It must
// only run after the caller is done waiting on Done(): once the default
// disposition is back, a stray SIGTERM terminates the process instead of
// feeding the shutdown sequence.
func (w *Watcher) Stop() {
	w.stop.Do(func() {
		signal.Stop(w.sigs)
		close(w.sigs)
	})
}
