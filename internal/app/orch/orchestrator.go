package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/DarkRoom/internal/app"
	"github.com/dkeye/DarkRoom/internal/core"
	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/protocol"
	"github.com/dkeye/DarkRoom/internal/store"
)

type Options struct {
	HistoryLimit int
	GracePeriod  time.Duration
	Policy       app.Policy
}

// Orchestrator is what the transport adapters talk to.
type Orchestrator struct {
	Store     store.Store
	Rooms     *app.RoomManager
	Presence  *app.Presence
	Broker    *app.Broker
	Lifecycle *app.Lifecycle
}

// New wires the registry, presence, broker and lifecycle over one store.
func New(s store.Store, opts Options) *Orchestrator {
	if opts.Policy == nil {
		opts.Policy = app.SimplePolicy{}
	}
	rooms := app.NewRoomManager(s, opts.HistoryLimit)
	presence := app.NewPresence(rooms, opts.Policy)
	return &Orchestrator{
		Store:     s,
		Rooms:     rooms,
		Presence:  presence,
		Broker:    app.NewBroker(rooms, presence),
		Lifecycle: app.NewLifecycle(rooms, presence, s, opts.GracePeriod),
	}
}

// Start restores persisted rooms and re-arms pending disbands.
func (o *Orchestrator) Start(ctx context.Context) error {
	if _, err := o.Rooms.Restore(ctx); err != nil {
		return err
	}
	return o.Lifecycle.Recover(ctx)
}

// CreateRoom registers a room and announces it to every connection.
func (o *Orchestrator) CreateRoom(ctx context.Context, name, description, createdBy string) (domain.Room, error) {
	room, err := o.Rooms.Create(ctx, name, description, createdBy)
	if err != nil {
		return domain.Room{}, err
	}
	res := o.Presence.Broadcast(protocol.MustEncode(protocol.RoomCreated{Room: room}))
	log.Debug().Str("module", "orch").Str("room", string(room.ID)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("room announced")
	if svc, ok := o.Rooms.Lookup(room.ID); ok {
		o.Presence.HandleDropped(svc, res.Dropped)
	}
	return room, nil
}

func (o *Orchestrator) Join(sid core.ConnID, roomID domain.RoomID, alias string) (core.JoinResult, error) {
	a, err := domain.NewAlias(alias)
	if err != nil {
		return core.JoinResult{}, err
	}
	from, _, moved := o.Presence.RoomOf(sid)
	res, err := o.Presence.Join(sid, roomID, a)
	if err != nil {
		return core.JoinResult{}, err
	}
	if moved && from != roomID {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_room", string(from)).Str("room", string(roomID)).Msg("moved to room")
	} else {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("added to room")
	}
	return res, nil
}

// Leave leaves the current room. A roomID naming some other room is ignored.
func (o *Orchestrator) Leave(sid core.ConnID, roomID domain.RoomID) bool {
	if cur, _, ok := o.Presence.RoomOf(sid); !ok || (roomID != "" && cur != roomID) {
		return false
	}
	_, ok := o.Presence.Leave(sid)
	return ok
}

func (o *Orchestrator) Send(sid core.ConnID, roomID domain.RoomID, draft domain.Draft) (domain.Message, error) {
	return o.Broker.Send(sid, roomID, draft)
}

func (o *Orchestrator) Delete(ctx context.Context, roomID domain.RoomID, deletedBy string) (domain.Room, error) {
	return o.Lifecycle.RequestDelete(ctx, roomID, deletedBy)
}

// Ping reports whether the backing store is reachable.
func (o *Orchestrator) Ping(ctx context.Context) error {
	return o.Store.Ping(ctx)
}

func (o *Orchestrator) OnDisconnect(sid core.ConnID) {
	o.Presence.OnDisconnect(sid)
}

// Run sweeps presence every interval until ctx ends. Push events stay the
// primary update path; the sweep only repairs drift.
func (o *Orchestrator) Run(ctx context.Context, interval, staleAfter time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "orch").Msg("sweeper stopped")
			return
		case <-ticker.C:
			rep := o.Presence.Sweep(staleAfter)
			if rep.Stale > 0 || rep.Orphans > 0 {
				log.Warn().Str("module", "orch").Int("stale", rep.Stale).Int("orphans", rep.Orphans).Int("rooms", len(rep.Corrected)).Msg("presence corrected")
			}
		}
	}
}
