package sync

import (
	"context"
	"sync"
	"time"

	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/models"
)

// Remote is the outbound half of the mirror protocol, satisfied by
// *Client.
type Remote interface {
	Push(ctx context.Context, data models.AppData) error
}

// Push status values surfaced to the sync indicator.
const (
	StatusIdle    = "idle"
	StatusSyncing = "syncing"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Pusher debounces full-dataset snapshots toward the remote mirror:
// a trailing-edge quiet period coalesces rapid mutations, a single
// in-flight slot keeps pushes sequential, and a latest-pending-snapshot
// pointer guarantees the final state always goes out. Because each push
// carries the full dataset, dropping intermediate snapshots loses
// nothing.
type Pusher struct {
	remote      Remote
	debounce    time.Duration
	pushTimeout time.Duration

	mu         sync.Mutex
	pending    *models.AppData
	timer      *time.Timer
	inFlight   bool
	lastStatus string
	lastSyncAt time.Time
	done       sync.WaitGroup
}

func NewPusher(remote Remote, debounce, pushTimeout time.Duration) *Pusher {
	return &Pusher{
		remote:      remote,
		debounce:    debounce,
		pushTimeout: pushTimeout,
		lastStatus:  StatusIdle,
	}
}

// Enqueue records the snapshot as the latest pending state and
// (re)starts the quiet-period timer. Callers never wait on the push.
func (p *Pusher) Enqueue(data models.AppData) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = &data
	if p.timer == nil {
		p.timer = time.AfterFunc(p.debounce, p.fire)
		return
	}
	p.timer.Reset(p.debounce)
}

// fire runs when the quiet period elapses. If a push is already in
// flight the pending snapshot stays queued and the completion handler
// fires again immediately.
func (p *Pusher) fire() {
	p.mu.Lock()
	if p.inFlight || p.pending == nil {
		p.mu.Unlock()
		return
	}
	data := *p.pending
	p.pending = nil
	p.inFlight = true
	p.lastStatus = StatusSyncing
	p.done.Add(1)
	p.mu.Unlock()

	go p.push(data)
}

func (p *Pusher) push(data models.AppData) {
	defer p.done.Done()
	ctx, cancel := context.WithTimeout(context.Background(), p.pushTimeout)
	err := p.remote.Push(ctx, data)
	cancel()

	p.mu.Lock()
	p.inFlight = false
	p.lastSyncAt = time.Now()
	if err != nil {
		p.lastStatus = StatusError
		logger.L.Warn("Remote sync push failed", "error", err,
			"purchases", len(data.Purchases), "sales", len(data.Sales))
	} else {
		p.lastStatus = StatusSuccess
		logger.L.Info("Remote sync push completed",
			"purchases", len(data.Purchases), "sales", len(data.Sales))
	}
	refire := p.pending != nil
	p.mu.Unlock()

	if refire {
		p.fire()
	}
}

// Flush pushes the latest pending snapshot (or the given one when
// nothing is pending) synchronously. Used by the explicit "upload now"
// action.
func (p *Pusher) Flush(ctx context.Context, fallback models.AppData) error {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
	}
	data := fallback
	if p.pending != nil {
		data = *p.pending
		p.pending = nil
	}
	p.lastStatus = StatusSyncing
	p.mu.Unlock()

	err := p.remote.Push(ctx, data)

	p.mu.Lock()
	p.lastSyncAt = time.Now()
	if err != nil {
		p.lastStatus = StatusError
	} else {
		p.lastStatus = StatusSuccess
	}
	p.mu.Unlock()
	return err
}

// Status reports the last push outcome and when it happened.
func (p *Pusher) Status() (status string, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastStatus, p.lastSyncAt
}

// Wait blocks until in-flight pushes finish. Test helper and shutdown
// hook.
func (p *Pusher) Wait() {
	p.done.Wait()
}
