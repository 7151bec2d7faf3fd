// Package monitor polls the session guard and reports when the local session
// has been taken over by a newer login.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	DefaultInitialDelay = 5 * time.Second
	DefaultInterval     = 30 * time.Second
)

// ErrRunning is returned by Start when the monitor is already running.
var ErrRunning = errors.New("monitor: already running")

// Checker asks the server whether sessionID still holds the active slot.
type Checker interface {
	Validate(ctx context.Context, sessionID string) (bool, error)
}

// Registrar claims the active slot for sessionID.
type Registrar interface {
	Register(ctx context.Context, sessionID string) error
}

// Options configures a Monitor.
type Options struct {
	Checker Checker
	Store   LocalStore
	// OnKicked is called with the stale session id, once per mismatch.
	OnKicked func(sessionID string)

	InitialDelay time.Duration
	Interval     time.Duration

	// Registrar is only needed by Reclaim.
	Registrar Registrar
	// TestClock replaces the wall clock in tests.
	TestClock clock.Clock
	Logger    *zap.Logger
}

// Monitor runs one check per interval. Checks never overlap: the next one is
// scheduled only after the previous one returned.
type Monitor struct {
	checker   Checker
	registrar Registrar
	store     LocalStore
	onKicked  func(string)
	delay     time.Duration
	interval  time.Duration
	clock     clock.Clock
	logger    *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	kickedFor string
	// inCallback is the done channel of the loop currently running OnKicked.
	inCallback chan struct{}
}

// New builds a Monitor. Zero durations fall back to the defaults.
func New(opts Options) *Monitor {
	m := &Monitor{
		checker:   opts.Checker,
		registrar: opts.Registrar,
		store:     opts.Store,
		onKicked:  opts.OnKicked,
		delay:     opts.InitialDelay,
		interval:  opts.Interval,
		clock:     clock.New(),
		logger:    opts.Logger,
	}
	if opts.TestClock != nil {
		m.clock = opts.TestClock
	}
	if m.delay <= 0 {
		m.delay = DefaultInitialDelay
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.store == nil {
		m.store = NewMemoryLocalStore("")
	}
	if m.onKicked == nil {
		m.onKicked = func(string) {}
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// Start schedules the first check after the initial delay. The monitor stops
// when ctx is done or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	timer := m.clock.Timer(m.delay)

	go m.run(ctx, timer, m.done)
	return nil
}

// Stop cancels both pending timers and any in-flight check, and waits for the
// loop to exit. No check starts after Stop returns.
//
// Stop may be called from OnKicked. It then returns without waiting and the
// loop exits once the callback returns.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	fromCallback := done != nil && m.inCallback == done
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if fromCallback {
		return
	}
	<-done
}

// Reclaim re-registers the local session id, taking the slot back from the
// other device, and re-arms the kicked callback.
func (m *Monitor) Reclaim(ctx context.Context) error {
	if m.registrar == nil {
		return errors.New("monitor: no registrar configured")
	}
	sid := m.store.SessionID()
	if sid == "" {
		return errors.New("monitor: no local session id")
	}
	if err := m.registrar.Register(ctx, sid); err != nil {
		return err
	}
	m.mu.Lock()
	m.kickedFor = ""
	m.mu.Unlock()
	return nil
}

func (m *Monitor) run(ctx context.Context, timer *clock.Timer, done chan struct{}) {
	defer close(done)
	defer m.release(done)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}
		m.check(ctx, done)
		timer.Reset(m.interval)
	}
}

// release clears the running state when the loop exits on its own, so a
// cancelled parent context does not block the next Start.
func (m *Monitor) release(done chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != done {
		return
	}
	m.cancel()
	m.cancel, m.done = nil, nil
}

func (m *Monitor) check(ctx context.Context, done chan struct{}) {
	sid := m.store.SessionID()
	if sid == "" {
		return
	}

	valid, err := m.checker.Validate(ctx, sid)
	if err != nil {
		// Connectivity problems never log the user out.
		m.logger.Debug("session check failed", zap.Error(err))
		return
	}

	m.mu.Lock()
	if valid {
		m.kickedFor = ""
		m.mu.Unlock()
		return
	}
	if m.kickedFor == sid || ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	m.kickedFor = sid
	m.inCallback = done
	m.mu.Unlock()

	m.logger.Info("session taken over by another login")
	defer func() {
		m.mu.Lock()
		m.inCallback = nil
		m.mu.Unlock()
	}()
	m.onKicked(sid)
}
