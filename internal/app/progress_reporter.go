package app

import (
	"math/rand"
	"sync"
	"time"

	"gopherai-notebook/internal/model"
)

const (
	defaultTickInterval = 300 * time.Millisecond
	defaultProgressCap  = 90
	progressDone        = 100
)

type ProgressOption func(*ProgressReporter)

func WithTickInterval(d time.Duration) ProgressOption {
	return func(p *ProgressReporter) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithProgressCap sets the ceiling simulated ticks can reach. It is kept
// strictly below 100 so only Complete can finish the bar.
func WithProgressCap(limit int) ProgressOption {
	return func(p *ProgressReporter) {
		if limit > 0 && limit < progressDone {
			p.limit = limit
		}
	}
}

// WithIncrement replaces the pseudo-random step added on every tick.
func WithIncrement(fn func() int) ProgressOption {
	return func(p *ProgressReporter) {
		if fn != nil {
			p.increment = fn
		}
	}
}

// ProgressReporter simulates progress while a submission is running. Ticks
// never reach 100 on their own; only Complete does.
type ProgressReporter struct {
	interval  time.Duration
	limit     int
	increment func() int

	mu        sync.Mutex
	phase     model.ProgressPhase
	value     int
	stop      chan struct{}
	listeners []func(model.ProgressState)
}

func NewProgressReporter(opts ...ProgressOption) *ProgressReporter {
	p := &ProgressReporter{
		interval:  defaultTickInterval,
		limit:     defaultProgressCap,
		increment: func() int { return rand.Intn(10) + 1 },
		phase:     model.ProgressIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe registers fn to be called after every state change.
func (p *ProgressReporter) Subscribe(fn func(model.ProgressState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Start resets the value to 0 and begins ticking. Starting while already
// running is a no-op.
func (p *ProgressReporter) Start() {
	p.mu.Lock()
	if p.phase == model.ProgressRunning && p.stop != nil {
		p.mu.Unlock()
		return
	}
	p.cancelLocked()
	token := make(chan struct{})
	p.stop = token
	p.phase = model.ProgressRunning
	p.value = 0
	state, listeners := p.snapshotLocked()
	p.mu.Unlock()

	notify(listeners, state)
	go p.run(token)
}

// Stop cancels ticking and keeps the last value. Safe to call at any time.
func (p *ProgressReporter) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
	if p.phase == model.ProgressRunning {
		p.phase = model.ProgressIdle
	}
}

// Complete stops ticking and snaps the value to 100.
func (p *ProgressReporter) Complete() {
	p.mu.Lock()
	p.cancelLocked()
	p.phase = model.ProgressCompleted
	p.value = progressDone
	state, listeners := p.snapshotLocked()
	p.mu.Unlock()

	notify(listeners, state)
}

func (p *ProgressReporter) State() model.ProgressState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return model.ProgressState{Phase: p.phase, Value: p.value}
}

func (p *ProgressReporter) run(token chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-token:
			return
		case <-ticker.C:
			p.advance(token)
		}
	}
}

// advance applies one tick if token is still the active one.
func (p *ProgressReporter) advance(token chan struct{}) {
	p.mu.Lock()
	if p.stop != token || p.phase != model.ProgressRunning {
		p.mu.Unlock()
		return
	}
	step := p.increment()
	if step < 0 {
		step = 0
	}
	next := p.value + step
	if next > p.limit {
		next = p.limit
	}
	if next == p.value {
		p.mu.Unlock()
		return
	}
	p.value = next
	state, listeners := p.snapshotLocked()
	p.mu.Unlock()

	notify(listeners, state)
}

func (p *ProgressReporter) cancelLocked() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}

func (p *ProgressReporter) snapshotLocked() (model.ProgressState, []func(model.ProgressState)) {
	listeners := make([]func(model.ProgressState), len(p.listeners))
	copy(listeners, p.listeners)
	return model.ProgressState{Phase: p.phase, Value: p.value}, listeners
}

func notify(listeners []func(model.ProgressState), state model.ProgressState) {
	for _, fn := range listeners {
		fn(state)
	}
}
