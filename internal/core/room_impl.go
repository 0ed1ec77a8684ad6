package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/protocol"
)

const DefaultHistoryLimit = 200

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	mu      sync.RWMutex
	room    domain.Room
	bySID   map[ConnID]MemberSession
	log     []domain.Message
	lastID  domain.MessageID
	histCap int
}

// NewRoomService wraps room. historyLimit bounds the in-memory log; ids keep
// increasing after old messages are dropped.
func NewRoomService(room domain.Room, historyLimit int) RoomService {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	room.MemberCount = 0
	return &roomImpl{
		room:    room,
		bySID:   make(map[ConnID]MemberSession),
		histCap: historyLimit,
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.room.ID }

func (r *roomImpl) Room() domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := r.room
	snap.MemberCount = len(r.bySID)
	return snap
}

func (r *roomImpl) State() domain.RoomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.room.State
}

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySID)
}

func (r *roomImpl) HasMember(sid ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bySID[sid]
	return ok
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.bySID))
	for sid, ms := range r.bySID {
		out = append(out, MemberDTO{Conn: sid, Alias: ms.Meta().Alias})
	}
	return out
}

// AddMember sends the joiner its history snapshot, then the new count to
// everyone. A second add for the same sid replaces the session without
// changing the count.
func (r *roomImpl) AddMember(sid ConnID, ms MemberSession) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.room.State == domain.RoomDisbanded {
		return JoinResult{}, domain.ErrRoomNotFound
	}
	r.bySID[sid] = ms

	history := r.historyLocked()
	var res PublishResult
	if err := ms.Signal().TrySend(protocol.MustEncode(protocol.RoomHistory{RoomID: r.room.ID, Messages: history})); err != nil {
		// A joiner without its snapshot gets no count either.
		res = r.broadcastCountLocked(sid)
		res.Dropped = append(res.Dropped, sid)
	} else {
		res = r.broadcastCountLocked("")
	}

	snap := r.room
	snap.MemberCount = len(r.bySID)
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(sid)).Str("alias", string(ms.Meta().Alias)).Int("count", snap.MemberCount).Msg("member added")
	return JoinResult{Room: snap, History: history, Count: snap.MemberCount, Dropped: res.Dropped}, nil
}

func (r *roomImpl) RemoveMember(sid ConnID) (PublishResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[sid]; !ok {
		return PublishResult{}, false
	}
	delete(r.bySID, sid)
	res := r.broadcastCountLocked("")
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(sid)).Int("count", len(r.bySID)).Msg("member removed")
	return res, true
}

// Retain drops every member for which keep returns false and reports them.
func (r *roomImpl) Retain(keep func(ConnID) bool) ([]ConnID, PublishResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []ConnID
	for sid := range r.bySID {
		if !keep(sid) {
			delete(r.bySID, sid)
			removed = append(removed, sid)
		}
	}
	if len(removed) == 0 {
		return nil, PublishResult{}
	}
	res := r.broadcastCountLocked("")
	log.Warn().Str("module", "core.room").Str("room", string(r.room.ID)).Int("removed", len(removed)).Int("count", len(r.bySID)).Msg("members corrected")
	return removed, res
}

// Publish orders draft after every earlier message and fans it out to all
// members, the sender included.
func (r *roomImpl) Publish(from ConnID, draft domain.Draft, at time.Time) (domain.Message, PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.room.State == domain.RoomDisbanded {
		return domain.Message{}, PublishResult{}, domain.ErrRoomNotFound
	}
	sender, ok := r.bySID[from]
	if !ok {
		return domain.Message{}, PublishResult{}, domain.ErrNotPresent
	}
	if r.room.State != domain.RoomActive {
		return domain.Message{}, PublishResult{}, domain.ErrRoomNotActive
	}

	r.lastID++
	msg := domain.Message{
		ID:         r.lastID,
		RoomID:     r.room.ID,
		Alias:      sender.Meta().Alias,
		Content:    draft.Content,
		ServerTime: at,
		ClientTime: draft.ClientTime,
		ClientRef:  draft.ClientRef,
	}
	r.log = append(r.log, msg)
	if over := len(r.log) - r.histCap; over > 0 {
		r.log = append(r.log[:0:0], r.log[over:]...)
	}

	res := r.fanoutLocked("", protocol.MustEncode(protocol.ReceiveMessage{Message: msg}))
	log.Debug().Str("module", "core.room").Str("room", string(r.room.ID)).Uint64("msg", uint64(msg.ID)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return msg, res, nil
}

func (r *roomImpl) History() []domain.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.historyLocked()
}

func (r *roomImpl) Broadcast(from ConnID, data Frame) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fanoutLocked(from, data)
}

// SoftDelete moves an Active room into its grace period. Only the creator
// alias may do so.
func (r *roomImpl) SoftDelete(requester domain.Alias, at time.Time, grace time.Duration) (domain.Room, PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.room.State {
	case domain.RoomDisbanded:
		return domain.Room{}, PublishResult{}, domain.ErrRoomNotFound
	case domain.RoomSoftDeleted:
		return domain.Room{}, PublishResult{}, domain.ErrRoomNotActive
	}
	if requester != r.room.CreatedBy {
		return domain.Room{}, PublishResult{}, domain.ErrUnauthorized
	}

	deletedAt := at
	disbandAt := at.Add(grace)
	r.room.State = domain.RoomSoftDeleted
	r.room.DeletedAt = &deletedAt
	r.room.DisbandAt = &disbandAt

	res := r.fanoutLocked("", protocol.MustEncode(protocol.RoomSoftDeleted{RoomID: r.room.ID, DisbandAt: disbandAt}))
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Time("disband_at", disbandAt).Int("dropped", len(res.Dropped)).Msg("room soft-deleted")

	snap := r.room
	snap.MemberCount = len(r.bySID)
	return snap, res, nil
}

// Disband is terminal: members get the eviction event, the membership set
// and message log are released, and the evicted sids are returned along
// with those that missed the event.
func (r *roomImpl) Disband() ([]ConnID, PublishResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.room.State == domain.RoomDisbanded {
		return nil, PublishResult{}
	}
	r.room.State = domain.RoomDisbanded
	res := r.fanoutLocked("", protocol.MustEncode(protocol.RoomDisbanded{RoomID: r.room.ID}))

	evicted := make([]ConnID, 0, len(r.bySID))
	for sid := range r.bySID {
		evicted = append(evicted, sid)
	}
	clear(r.bySID)
	r.log = nil
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Int("evicted", len(evicted)).Int("dropped", len(res.Dropped)).Msg("room disbanded")
	return evicted, res
}

func (r *roomImpl) historyLocked() []domain.Message {
	out := make([]domain.Message, len(r.log))
	copy(out, r.log)
	return out
}

func (r *roomImpl) broadcastCountLocked(skip ConnID) PublishResult {
	return r.fanoutLocked(skip, protocol.MustEncode(protocol.UserCountUpdate{RoomID: r.room.ID, Count: len(r.bySID)}))
}

func (r *roomImpl) fanoutLocked(from ConnID, data Frame) PublishResult {
	res := PublishResult{}
	for sid, m := range r.bySID {
		if sid == from {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, sid)
			continue
		}
		res.SendTo++
	}
	return res
}
