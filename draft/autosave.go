package draft

import (
	"context"
	"sync"
	"time"
)

const DefaultInterval = 30 * time.Second

// Autosaver runs Draft.Autosave on a fixed interval until stopped. It is
// owned by the view that fills the form and must be stopped with it.
type Autosaver struct {
	draft    *Draft
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAutosaver(d *Draft, interval time.Duration) *Autosaver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Autosaver{draft: d, interval: interval}
}

// Start launches the ticker. Calling Start on a running Autosaver is a no-op.
func (a *Autosaver) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})
	go a.run(ctx, a.done)
}

func (a *Autosaver) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if a.draft.State() == StateSubmitted {
				return
			}
			a.draft.Autosave(ctx)
		}
	}
}

// Stop cancels the ticker and any push in flight, and waits for the loop to
// exit.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
