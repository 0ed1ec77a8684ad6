package orch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/DarkRoom/internal/app/orch"
	"github.com/dkeye/DarkRoom/internal/core"
	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/protocol"
	"github.com/dkeye/DarkRoom/internal/store"
)

type recorder struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (r *recorder) TrySend(f core.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("closed")
	}
	r.frames = append(r.frames, f)
	return nil
}

func (r *recorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *recorder) types(t *testing.T) []protocol.Type {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.Type, 0, len(r.frames))
	for _, f := range r.frames {
		ev, err := protocol.Decode(f)
		require.NoError(t, err)
		out = append(out, ev.Type())
	}
	return out
}

func newOrch(t *testing.T) *orch.Orchestrator {
	t.Helper()
	o := orch.New(store.NewMemoryStore(), orch.Options{})
	require.NoError(t, o.Start(context.Background()))
	t.Cleanup(o.Lifecycle.Close)
	return o
}

func bind(o *orch.Orchestrator, sid string) *recorder {
	r := &recorder{}
	o.Presence.Bind(core.ConnID(sid), r, func() {})
	return r
}

func TestCreateRoomAnnouncesToEveryConnection(t *testing.T) {
	o := newOrch(t)
	browsing := bind(o, "browsing")

	room, err := o.CreateRoom(context.Background(), "lobby", "", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomID("ren-1"), room.ID)
	assert.Equal(t, []protocol.Type{protocol.TypeRoomCreated}, browsing.types(t))

	_, err = o.CreateRoom(context.Background(), "", "", "alice")
	assert.ErrorIs(t, err, domain.ErrRoomNameEmpty)
	assert.Len(t, browsing.types(t), 1)
}

func TestJoinSendLeave(t *testing.T) {
	o := newOrch(t)
	room, err := o.CreateRoom(context.Background(), "lobby", "", "alice")
	require.NoError(t, err)
	alice := bind(o, "alice")
	bob := bind(o, "bob")

	_, err = o.Join("alice", room.ID, " ")
	assert.ErrorIs(t, err, domain.ErrAliasEmpty)

	_, err = o.Join("alice", room.ID, "alice")
	require.NoError(t, err)
	res, err := o.Join("bob", room.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	msg, err := o.Send("bob", room.ID, domain.Draft{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, domain.Alias("bob"), msg.Alias)
	assert.Contains(t, alice.types(t), protocol.TypeReceiveMessage)

	assert.False(t, o.Leave("bob", "ren-42"))
	assert.True(t, o.Leave("bob", room.ID))
	assert.False(t, o.Leave("bob", room.ID))

	_, err = o.Send("bob", room.ID, domain.Draft{Content: "gone"})
	assert.ErrorIs(t, err, domain.ErrNotPresent)

	// Nothing reaches bob after leaving.
	assert.Equal(t, []protocol.Type{
		protocol.TypeRoomHistory,
		protocol.TypeUserCountUpdate,
		protocol.TypeReceiveMessage,
	}, bob.types(t))
}

func TestDeleteByCreatorOnly(t *testing.T) {
	o := newOrch(t)
	ctx := context.Background()
	room, err := o.CreateRoom(ctx, "lobby", "", "alice")
	require.NoError(t, err)

	_, err = o.Delete(ctx, room.ID, "mallory")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	snap, err := o.Delete(ctx, room.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomSoftDeleted, snap.State)
	assert.Equal(t, 1, o.Lifecycle.Pending())
}

func TestRunSweepsDeadConnections(t *testing.T) {
	o := newOrch(t)
	room, err := o.CreateRoom(context.Background(), "lobby", "", "alice")
	require.NoError(t, err)
	dead := bind(o, "dead")
	_, err = o.Join("dead", room.ID, "ghost")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Run(ctx, 10*time.Millisecond, time.Minute)
		close(done)
	}()

	dead.Close()
	require.Eventually(t, func() bool {
		r, err := o.Rooms.Get(room.ID)
		return err == nil && r.MemberCount == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestStartRestoresFromStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	first := orch.New(s, orch.Options{})
	require.NoError(t, first.Start(ctx))
	room, err := first.CreateRoom(ctx, "lobby", "", "alice")
	require.NoError(t, err)
	_, err = first.Delete(ctx, room.ID, "alice")
	require.NoError(t, err)
	first.Lifecycle.Close()

	second := orch.New(s, orch.Options{GracePeriod: time.Hour})
	require.NoError(t, second.Start(ctx))
	t.Cleanup(second.Lifecycle.Close)

	got, err := second.Rooms.Get(room.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomSoftDeleted, got.State)
	assert.Equal(t, 1, second.Lifecycle.Pending())
}

func TestRedisRestartKeepsIDsAndDeadlines(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	open := func() store.Store {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		return store.NewRedisStoreFromClient(rdb)
	}

	first := orch.New(open(), orch.Options{})
	require.NoError(t, first.Start(ctx))
	kept, err := first.CreateRoom(ctx, "kept", "", "alice")
	require.NoError(t, err)
	doomed, err := first.CreateRoom(ctx, "doomed", "", "alice")
	require.NoError(t, err)
	_, err = first.Delete(ctx, doomed.ID, "alice")
	require.NoError(t, err)
	first.Lifecycle.Close()

	second := orch.New(open(), orch.Options{})
	require.NoError(t, second.Start(ctx))
	t.Cleanup(second.Lifecycle.Close)

	assert.Len(t, second.Rooms.List(), 2)
	assert.Equal(t, 1, second.Lifecycle.Pending())
	fresh, err := second.CreateRoom(ctx, "fresh", "", "bob")
	require.NoError(t, err)
	assert.NotContains(t, []domain.RoomID{kept.ID, doomed.ID}, fresh.ID)
	assert.Equal(t, domain.RoomID("ren-3"), fresh.ID)
}

func TestCreateRoomKicksConnectionThatMissesAnnouncement(t *testing.T) {
	o := newOrch(t)
	browsing := bind(o, "browsing")
	dead := &recorder{closed: true}
	canceled := false
	o.Presence.Bind("dead", dead, func() { canceled = true })

	room, err := o.CreateRoom(context.Background(), "lobby", "", "alice")
	require.NoError(t, err)

	assert.Equal(t, []protocol.Type{protocol.TypeRoomCreated}, browsing.types(t))
	assert.True(t, canceled)
	_, err = o.Join("dead", room.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrUnknownConnection)
}
