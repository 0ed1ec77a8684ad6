package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/DarkRoom/internal/core"
	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/metrics"
)

type sessionEntry struct {
	RoomID   domain.RoomID
	Alias    domain.Alias
	Signal   core.SignalConnection
	Cancel   context.CancelFunc
	LastSeen time.Time
}

// Presence tracks which room each connection is in. Its lock is always taken
// before a room's lock. Connections a fan-out could not reach are handed to
// the backpressure policy.
type Presence struct {
	mu       sync.RWMutex
	sessions map[core.ConnID]*sessionEntry
	rooms    RoomLookup
	policy   Policy
	now      func() time.Time
}

func NewPresence(rooms RoomLookup, policy Policy) *Presence {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Presence{
		sessions: make(map[core.ConnID]*sessionEntry),
		rooms:    rooms,
		policy:   policy,
		now:      time.Now,
	}
}

// Bind registers a fresh connection that is not in any room yet.
func (p *Presence) Bind(sid core.ConnID, sig core.SignalConnection, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[sid] = &sessionEntry{Signal: sig, Cancel: cancel, LastSeen: p.now()}
	metrics.Connections.Set(float64(len(p.sessions)))
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Msg("bound signal")
}

// Touch records that the connection is alive.
func (p *Presence) Touch(sid core.ConnID) {
	p.mu.Lock()
	if e, ok := p.sessions[sid]; ok {
		e.LastSeen = p.now()
	}
	p.mu.Unlock()
}

// Join moves sid into roomID. The old room, if any, loses the member first.
func (p *Presence) Join(sid core.ConnID, roomID domain.RoomID, alias domain.Alias) (core.JoinResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.sessions[sid]
	if !ok {
		return core.JoinResult{}, domain.ErrUnknownConnection
	}
	room, ok := p.rooms.Lookup(roomID)
	if !ok {
		return core.JoinResult{}, domain.ErrRoomNotFound
	}

	var old core.RoomService
	var oldDropped []core.ConnID
	if e.RoomID != "" && e.RoomID != roomID {
		if r, ok := p.rooms.Lookup(e.RoomID); ok {
			left, _ := r.RemoveMember(sid)
			old, oldDropped = r, left.Dropped
		}
		log.Info().Str("module", "app.presence").Str("sid", string(sid)).Str("from_room", string(e.RoomID)).Msg("left previous room")
		e.RoomID = ""
	}
	defer p.handleDroppedLocked(old, oldDropped)

	res, err := room.AddMember(sid, core.NewMemberSession(domain.NewMember(alias, p.now()), e.Signal))
	if err != nil {
		return core.JoinResult{}, err
	}
	e.RoomID = roomID
	e.Alias = alias
	e.LastSeen = p.now()
	p.handleDroppedLocked(room, res.Dropped)
	return res, nil
}

// Leave is idempotent; it reports the room that was left.
func (p *Presence) Leave(sid core.ConnID) (domain.RoomID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leaveLocked(sid)
}

func (p *Presence) leaveLocked(sid core.ConnID) (domain.RoomID, bool) {
	e, ok := p.sessions[sid]
	if !ok {
		return "", false
	}
	return p.leaveEntryLocked(sid, e)
}

func (p *Presence) leaveEntryLocked(sid core.ConnID, e *sessionEntry) (domain.RoomID, bool) {
	if e.RoomID == "" {
		return "", false
	}
	left := e.RoomID
	e.RoomID = ""
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Str("room", string(left)).Msg("removed room association")
	if room, ok := p.rooms.Lookup(left); ok {
		res, _ := room.RemoveMember(sid)
		p.handleDroppedLocked(room, res.Dropped)
	}
	return left, true
}

// OnDisconnect leaves, forgets the connection and cancels its context.
func (p *Presence) OnDisconnect(sid core.ConnID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropLocked(sid)
}

// dropLocked forgets sid before leaving its room, so a kick triggered by the
// leave never reaches sid again.
func (p *Presence) dropLocked(sid core.ConnID) {
	e, ok := p.sessions[sid]
	if !ok {
		return
	}
	delete(p.sessions, sid)
	if e.Cancel != nil {
		e.Cancel()
	}
	metrics.Connections.Set(float64(len(p.sessions)))
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Msg("unbind session")
	p.leaveEntryLocked(sid, e)
}

// HandleDropped applies the backpressure policy to connections that a
// fan-out in room could not reach.
func (p *Presence) HandleDropped(room core.RoomService, dropped []core.ConnID) {
	if len(dropped) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handleDroppedLocked(room, dropped)
}

func (p *Presence) handleDroppedLocked(room core.RoomService, dropped []core.ConnID) {
	if len(dropped) == 0 {
		return
	}
	metrics.FanoutDropped.Add(float64(len(dropped)))
	for _, sid := range dropped {
		if _, ok := p.sessions[sid]; !ok {
			continue
		}
		switch p.policy.OnBackPressure(room, sid) {
		case KickMember:
			log.Warn().Str("module", "app.presence").Str("sid", string(sid)).Msg("kicking slow connection")
			p.dropLocked(sid)
		case NoAction:
		}
	}
}

func (p *Presence) RoomOf(sid core.ConnID) (domain.RoomID, domain.Alias, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.sessions[sid]
	if !ok || e.RoomID == "" {
		return "", "", false
	}
	return e.RoomID, e.Alias, true
}

// CountOf counts presence entries pointing at id.
func (p *Presence) CountOf(id domain.RoomID) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, e := range p.sessions {
		if e.RoomID == id {
			n++
		}
	}
	return n
}

func (p *Presence) MembersOfRoom(id domain.RoomID) []core.ConnID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []core.ConnID
	for sid, e := range p.sessions {
		if e.RoomID == id {
			out = append(out, sid)
		}
	}
	return out
}

// Broadcast sends data to every bound connection, in a room or not.
func (p *Presence) Broadcast(data core.Frame) core.PublishResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	res := core.PublishResult{}
	for sid, e := range p.sessions {
		if err := e.Signal.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, sid)
			continue
		}
		res.SendTo++
	}
	return res
}

// EvictRoom disbands room and clears every presence entry that pointed at it.
// Connections that missed the eviction event are closed whatever the policy,
// since nothing else would tell them the room is gone.
func (p *Presence) EvictRoom(room core.RoomService) []core.ConnID {
	p.mu.Lock()
	defer p.mu.Unlock()
	evicted, res := room.Disband()
	id := room.ID()
	for _, e := range p.sessions {
		if e.RoomID == id {
			e.RoomID = ""
		}
	}
	if len(res.Dropped) > 0 {
		metrics.FanoutDropped.Add(float64(len(res.Dropped)))
	}
	for _, sid := range res.Dropped {
		log.Warn().Str("module", "app.presence").Str("sid", string(sid)).Str("room", string(id)).Msg("closing connection that missed eviction")
		p.dropLocked(sid)
	}
	return evicted
}

// SweepReport says what a reconciliation pass fixed.
type SweepReport struct {
	Stale     int
	Orphans   int
	Corrected []domain.RoomID
}

// Sweep recomputes membership from live connections. A connection is live if
// its transport is open and it was seen within staleAfter.
func (p *Presence) Sweep(staleAfter time.Duration) SweepReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	var rep SweepReport
	now := p.now()

	for sid, e := range p.sessions {
		if e.Signal.Closed() || now.Sub(e.LastSeen) > staleAfter {
			log.Warn().Str("module", "app.presence").Str("sid", string(sid)).Dur("silent", now.Sub(e.LastSeen)).Msg("dropping stale connection")
			p.dropLocked(sid)
			rep.Stale++
		}
	}

	for _, room := range p.rooms.All() {
		id := room.ID()
		removed, res := room.Retain(func(sid core.ConnID) bool {
			e, ok := p.sessions[sid]
			return ok && e.RoomID == id
		})
		if len(removed) > 0 {
			rep.Orphans += len(removed)
			rep.Corrected = append(rep.Corrected, id)
		}
		p.handleDroppedLocked(room, res.Dropped)
	}

	// Entries that point at a room which does not hold them.
	for sid, e := range p.sessions {
		if e.RoomID == "" {
			continue
		}
		room, ok := p.rooms.Lookup(e.RoomID)
		if !ok || !room.HasMember(sid) {
			e.RoomID = ""
			rep.Orphans++
		}
	}

	metrics.PresenceCorrections.WithLabelValues("stale").Add(float64(rep.Stale))
	metrics.PresenceCorrections.WithLabelValues("orphan").Add(float64(rep.Orphans))
	return rep
}
