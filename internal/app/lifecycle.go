package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/DarkRoom/internal/core"
	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/metrics"
	"github.com/dkeye/DarkRoom/internal/store"
)

const DefaultGracePeriod = 2 * time.Minute

// Evictor clears presence for a room while disbanding it.
type Evictor interface {
	Backpressure
	EvictRoom(room core.RoomService) []core.ConnID
}

// stopper is the part of *time.Timer the controller needs.
type stopper interface {
	Stop() bool
}

// Lifecycle drives Active -> SoftDeleted -> Disbanded. Disband deadlines are
// written to the schedule store so a restart can re-arm them.
type Lifecycle struct {
	rooms    *RoomManager
	presence Evictor
	schedule store.ScheduleStore
	grace    time.Duration

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) stopper

	mu     sync.Mutex
	timers map[domain.RoomID]stopper
	closed bool
}

func NewLifecycle(rooms *RoomManager, presence Evictor, schedule store.ScheduleStore, grace time.Duration) *Lifecycle {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Lifecycle{
		rooms:    rooms,
		presence: presence,
		schedule: schedule,
		grace:    grace,
		now:      time.Now,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		timers: make(map[domain.RoomID]stopper),
	}
}

// RequestDelete starts the grace period. Only the creator alias may call it
// and there is no way back.
func (l *Lifecycle) RequestDelete(ctx context.Context, roomID domain.RoomID, requester string) (domain.Room, error) {
	room, ok := l.rooms.Lookup(roomID)
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	snap, res, err := room.SoftDelete(domain.Alias(strings.TrimSpace(requester)), l.now(), l.grace)
	if err != nil {
		log.Info().Str("module", "app.lifecycle").Str("room", string(roomID)).Str("requester", requester).Err(err).Msg("delete rejected")
		return domain.Room{}, err
	}
	metrics.RoomsSoftDeleted.Inc()
	l.presence.HandleDropped(room, res.Dropped)

	// The in-memory transition already happened; store failures only cost
	// durability across restarts.
	if err := l.rooms.Persist(ctx, roomID); err != nil {
		log.Error().Str("module", "app.lifecycle").Str("room", string(roomID)).Err(err).Msg("persist soft delete")
	}
	if err := l.schedule.ScheduleDisband(ctx, roomID, *snap.DisbandAt); err != nil {
		log.Error().Str("module", "app.lifecycle").Str("room", string(roomID)).Err(err).Msg("persist disband schedule")
	}
	l.arm(roomID, *snap.DisbandAt)
	return snap, nil
}

// Recover re-arms deadlines after a restart. Call it after RoomManager.Restore.
func (l *Lifecycle) Recover(ctx context.Context) error {
	pending, err := l.schedule.PendingDisbands(ctx)
	if err != nil {
		return err
	}
	armed := make(map[domain.RoomID]bool, len(pending))
	for _, d := range pending {
		room, ok := l.rooms.Lookup(d.RoomID)
		if !ok || room.State() != domain.RoomSoftDeleted {
			if err := l.schedule.RemoveDisband(ctx, d.RoomID); err != nil {
				log.Error().Str("module", "app.lifecycle").Str("room", string(d.RoomID)).Err(err).Msg("drop stale schedule")
			}
			continue
		}
		l.arm(d.RoomID, d.At)
		armed[d.RoomID] = true
	}
	for _, room := range l.rooms.All() {
		r := room.Room()
		if r.State != domain.RoomSoftDeleted || armed[r.ID] || r.DisbandAt == nil {
			continue
		}
		if err := l.schedule.ScheduleDisband(ctx, r.ID, *r.DisbandAt); err != nil {
			log.Error().Str("module", "app.lifecycle").Str("room", string(r.ID)).Err(err).Msg("persist disband schedule")
		}
		l.arm(r.ID, *r.DisbandAt)
		armed[r.ID] = true
	}
	log.Info().Str("module", "app.lifecycle").Int("armed", len(armed)).Msg("disband schedule recovered")
	return nil
}

// Pending reports armed deadlines.
func (l *Lifecycle) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// Close stops all timers. The schedule stays in the store.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	for id, t := range l.timers {
		t.Stop()
		delete(l.timers, id)
	}
}

func (l *Lifecycle) arm(id domain.RoomID, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if _, ok := l.timers[id]; ok {
		return
	}
	d := max(at.Sub(l.now()), 0)
	l.timers[id] = l.afterFunc(d, func() { l.disband(id) })
	log.Info().Str("module", "app.lifecycle").Str("room", string(id)).Dur("in", d).Msg("disband armed")
}

func (l *Lifecycle) disband(id domain.RoomID) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	delete(l.timers, id)
	l.mu.Unlock()

	ctx := context.Background()
	if room, ok := l.rooms.Lookup(id); ok {
		evicted := l.presence.EvictRoom(room)
		metrics.RoomsDisbanded.Inc()
		log.Info().Str("module", "app.lifecycle").Str("room", string(id)).Int("evicted", len(evicted)).Msg("room disbanded")
	}
	if err := l.rooms.Remove(ctx, id); err != nil {
		log.Error().Str("module", "app.lifecycle").Str("room", string(id)).Err(err).Msg("remove room")
	}
	if err := l.schedule.RemoveDisband(ctx, id); err != nil {
		log.Error().Str("module", "app.lifecycle").Str("room", string(id)).Err(err).Msg("remove schedule")
	}
}
