package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/DarkRoom/internal/core"
	"github.com/dkeye/DarkRoom/internal/protocol"
	"github.com/dkeye/DarkRoom/internal/store"
)

// fakeSignal records frames; capacity < 0 means unbounded.
type fakeSignal struct {
	mu       sync.Mutex
	frames   []core.Frame
	capacity int
	closed   bool
}

func newFakeSignal() *fakeSignal { return &fakeSignal{capacity: -1} }

func (f *fakeSignal) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	if f.capacity >= 0 && len(f.frames) >= f.capacity {
		return errors.New("full")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeSignal) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeSignal) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// freeze caps the queue at what it already holds.
func (f *fakeSignal) freeze() {
	f.mu.Lock()
	f.capacity = len(f.frames)
	f.mu.Unlock()
}

func (f *fakeSignal) reset() {
	f.mu.Lock()
	f.frames = nil
	f.mu.Unlock()
}

func (f *fakeSignal) events(t *testing.T) []protocol.Event {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Event, 0, len(f.frames))
	for _, fr := range f.frames {
		ev, err := protocol.Decode(fr)
		require.NoError(t, err)
		out = append(out, ev)
	}
	return out
}

func ofType[T protocol.Event](evs []protocol.Event) []T {
	var out []T
	for _, ev := range evs {
		if v, ok := ev.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// keepPolicy never kicks.
type keepPolicy struct{}

func (keepPolicy) OnBackPressure(core.RoomService, core.ConnID) BackpressureAction { return NoAction }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

// fakeTimers captures afterFunc callbacks so tests decide when they run.
type fakeTimers struct {
	mu    sync.Mutex
	armed []*fakeTimer
}

func (ft *fakeTimers) afterFunc(d time.Duration, f func()) stopper {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	ft.armed = append(ft.armed, t)
	return t
}

func (ft *fakeTimers) all() []*fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return append([]*fakeTimer(nil), ft.armed...)
}

// fireAll runs every timer that was neither stopped nor fired.
func (ft *fakeTimers) fireAll() int {
	n := 0
	for _, t := range ft.all() {
		if t.stopped || t.fired {
			continue
		}
		t.fired = true
		t.f()
		n++
	}
	return n
}

type harness struct {
	store     *store.MemoryStore
	clock     *fakeClock
	timers    *fakeTimers
	rooms     *RoomManager
	presence  *Presence
	broker    *Broker
	lifecycle *Lifecycle
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, store.NewMemoryStore(), nil)
}

// newHarnessWith builds the app layer over rooms; schedule defaults to rooms.
func newHarnessWith(t *testing.T, rooms *store.MemoryStore, schedule store.ScheduleStore) *harness {
	t.Helper()
	if schedule == nil {
		schedule = rooms
	}
	h := &harness{store: rooms, clock: newFakeClock(), timers: &fakeTimers{}}
	h.rooms = NewRoomManager(rooms, 0)
	h.rooms.now = h.clock.Now
	h.presence = NewPresence(h.rooms, SimplePolicy{})
	h.presence.now = h.clock.Now
	h.broker = NewBroker(h.rooms, h.presence)
	h.broker.now = h.clock.Now
	h.lifecycle = NewLifecycle(h.rooms, h.presence, schedule, 0)
	h.lifecycle.now = h.clock.Now
	h.lifecycle.afterFunc = h.timers.afterFunc
	return h
}

type boundConn struct {
	sid      core.ConnID
	sig      *fakeSignal
	canceled *bool
}

func (h *harness) bind(sid string) boundConn {
	sig := newFakeSignal()
	canceled := false
	h.presence.Bind(core.ConnID(sid), sig, func() { canceled = true })
	return boundConn{sid: core.ConnID(sid), sig: sig, canceled: &canceled}
}

func (h *harness) createRoom(t *testing.T, name, creator string) core.RoomService {
	t.Helper()
	room, err := h.rooms.Create(context.Background(), name, "", creator)
	require.NoError(t, err)
	svc, ok := h.rooms.Lookup(room.ID)
	require.True(t, ok)
	return svc
}
