package core_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/DarkRoom/internal/core"
	"github.com/dkeye/DarkRoom/internal/protocol"
)

var errFull = errors.New("full")

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
		return errFull
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
