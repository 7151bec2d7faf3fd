package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	mu       sync.Mutex
	valid    bool
	err      error
	calls    int
	seen     []string
	inflight int32
	maxIn    int32
	block    chan struct{}
}

func (f *fakeChecker) Validate(ctx context.Context, sid string) (bool, error) {
	n := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		peak := atomic.LoadInt32(&f.maxIn)
		if n <= peak || atomic.CompareAndSwapInt32(&f.maxIn, peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls++
	f.seen = append(f.seen, sid)
	block := f.block
	valid, err := f.valid, f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return valid, err
}

func (f *fakeChecker) set(valid bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valid, f.err = valid, err
}

func (f *fakeChecker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type kickRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (k *kickRecorder) kicked(sid string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ids = append(k.ids, sid)
}

func (k *kickRecorder) count() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.ids)
}

type fakeRegistrar struct {
	mu  sync.Mutex
	ids []string
}

func (r *fakeRegistrar) Register(_ context.Context, sid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, sid)
	return nil
}

const (
	testDelay    = 5 * time.Second
	testInterval = 30 * time.Second
)

func newTestMonitor(t *testing.T, checker *fakeChecker, store LocalStore, kicks *kickRecorder) (*Monitor, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	m := New(Options{
		Checker:      checker,
		Store:        store,
		OnKicked:     kicks.kicked,
		InitialDelay: testDelay,
		Interval:     testInterval,
		Registrar:    &fakeRegistrar{},
		TestClock:    mock,
	})
	t.Cleanup(m.Stop)
	return m, mock
}

// waitForCalls advances the mock clock until the checker has been called n times.
func waitForCalls(t *testing.T, mock *clock.Mock, checker *fakeChecker, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		mock.Add(testInterval)
		return checker.callCount() >= n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestMonitor_WaitsForInitialDelay(t *testing.T) {
	checker := &fakeChecker{valid: true}
	m, mock := newTestMonitor(t, checker, NewMemoryLocalStore("S1"), &kickRecorder{})
	require.NoError(t, m.Start(context.Background()))

	mock.Add(testDelay - time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, checker.callCount())

	mock.Add(time.Millisecond)
	require.Eventually(t, func() bool { return checker.callCount() == 1 }, time.Second, time.Millisecond)
}

func TestMonitor_KickedOncePerMismatch(t *testing.T) {
	checker := &fakeChecker{valid: false}
	kicks := &kickRecorder{}
	m, mock := newTestMonitor(t, checker, NewMemoryLocalStore("S1"), kicks)
	require.NoError(t, m.Start(context.Background()))

	waitForCalls(t, mock, checker, 4)
	assert.Equal(t, 1, kicks.count())
	assert.Equal(t, []string{"S1"}, kicks.ids)
}

func TestMonitor_ReclaimRearmsKick(t *testing.T) {
	checker := &fakeChecker{valid: false}
	kicks := &kickRecorder{}
	store := NewMemoryLocalStore("S1")
	m, mock := newTestMonitor(t, checker, store, kicks)
	require.NoError(t, m.Start(context.Background()))

	waitForCalls(t, mock, checker, 2)
	require.Equal(t, 1, kicks.count())

	require.NoError(t, m.Reclaim(context.Background()))
	registrar := m.registrar.(*fakeRegistrar)
	assert.Equal(t, []string{"S1"}, registrar.ids)

	waitForCalls(t, mock, checker, checker.callCount()+2)
	assert.Equal(t, 2, kicks.count())
}

func TestMonitor_SkipsWithoutLocalSessionID(t *testing.T) {
	checker := &fakeChecker{valid: false}
	kicks := &kickRecorder{}
	store := NewMemoryLocalStore("")
	m, mock := newTestMonitor(t, checker, store, kicks)
	require.NoError(t, m.Start(context.Background()))

	for i := 0; i < 5; i++ {
		mock.Add(testInterval)
	}
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, checker.callCount())

	store.SetSessionID("S1")
	waitForCalls(t, mock, checker, 1)
	require.Eventually(t, func() bool { return kicks.count() == 1 }, time.Second, time.Millisecond)
}

func TestMonitor_TransportErrorsNeverKick(t *testing.T) {
	checker := &fakeChecker{err: errors.New("connection refused")}
	kicks := &kickRecorder{}
	m, mock := newTestMonitor(t, checker, NewMemoryLocalStore("S1"), kicks)
	require.NoError(t, m.Start(context.Background()))

	waitForCalls(t, mock, checker, 3)
	assert.Equal(t, 0, kicks.count())

	checker.set(false, nil)
	waitForCalls(t, mock, checker, checker.callCount()+1)
	require.Eventually(t, func() bool { return kicks.count() == 1 }, time.Second, time.Millisecond)
}

func TestMonitor_NoCallsAfterStop(t *testing.T) {
	checker := &fakeChecker{valid: true}
	m, mock := newTestMonitor(t, checker, NewMemoryLocalStore("S1"), &kickRecorder{})

	require.NoError(t, m.Start(context.Background()))
	m.Stop()
	mock.Add(time.Hour)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, checker.callCount())

	require.NoError(t, m.Start(context.Background()))
	waitForCalls(t, mock, checker, 1)
	m.Stop()
	before := checker.callCount()
	mock.Add(time.Hour)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, before, checker.callCount())
}

func TestMonitor_StopsWithContext(t *testing.T) {
	checker := &fakeChecker{valid: true}
	m, mock := newTestMonitor(t, checker, NewMemoryLocalStore("S1"), &kickRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx))
	cancel()
	time.Sleep(10 * time.Millisecond)
	mock.Add(time.Hour)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, checker.callCount())
}

func TestMonitor_RestartsAfterContextCancel(t *testing.T) {
	checker := &fakeChecker{valid: true}
	m, mock := newTestMonitor(t, checker, NewMemoryLocalStore("S1"), &kickRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx))
	cancel()

	require.Eventually(t, func() bool {
		return m.Start(context.Background()) == nil
	}, time.Second, time.Millisecond)
	waitForCalls(t, mock, checker, 1)
}

func TestMonitor_StopFromKickedCallback(t *testing.T) {
	checker := &fakeChecker{valid: false}
	mock := clock.NewMock()
	returned := make(chan struct{})

	var m *Monitor
	m = New(Options{
		Checker: checker,
		Store:   NewMemoryLocalStore("S1"),
		OnKicked: func(string) {
			m.Stop()
			close(returned)
		},
		InitialDelay: testDelay,
		Interval:     testInterval,
		TestClock:    mock,
	})
	t.Cleanup(m.Stop)
	require.NoError(t, m.Start(context.Background()))

	mock.Add(testDelay)
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop inside OnKicked did not return")
	}

	// The loop is gone: no further checks and a fresh Start works.
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.inCallback == nil
	}, time.Second, time.Millisecond)
	mock.Add(time.Hour)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, checker.callCount())
	require.NoError(t, m.Start(context.Background()))
}

func TestMonitor_ChecksNeverOverlap(t *testing.T) {
	checker := &fakeChecker{valid: true, block: make(chan struct{})}
	m, mock := newTestMonitor(t, checker, NewMemoryLocalStore("S1"), &kickRecorder{})
	require.NoError(t, m.Start(context.Background()))

	waitForCalls(t, mock, checker, 1)
	for i := 0; i < 5; i++ {
		mock.Add(testInterval)
	}
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, checker.callCount())

	// Stop cancels the in-flight check.
	m.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&checker.maxIn))
}

func TestMonitor_StartTwice(t *testing.T) {
	m, _ := newTestMonitor(t, &fakeChecker{valid: true}, NewMemoryLocalStore("S1"), &kickRecorder{})
	require.NoError(t, m.Start(context.Background()))
	require.ErrorIs(t, m.Start(context.Background()), ErrRunning)
}

func TestNewSessionID(t *testing.T) {
	a, err := NewSessionID()
	require.NoError(t, err)
	b, err := NewSessionID()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}
