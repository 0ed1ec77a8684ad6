package signal

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/metrics"
	"github.com/dkeye/DarkRoom/internal/protocol"
)

// handleJoin replies through the room itself: history first, then counts.
func (ctl *SignalWSController) handleJoin(p *peer, e protocol.JoinRoom) {
	if !domain.ValidRoomID(string(e.RoomID)) {
		ctl.reject(p, protocol.TypeJoinRoom, domain.ErrInvalidID)
		return
	}
	alias := aliasOr(e.Alias, p.alias)
	res, err := ctl.Orch.Join(p.sid, e.RoomID, alias)
	if err != nil {
		ctl.reject(p, protocol.TypeJoinRoom, err)
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(p.sid)).Str("room", string(e.RoomID)).Str("alias", alias).Int("count", res.Count).Msg("join")
}

// handleLeave keeps the connection open.
func (ctl *SignalWSController) handleLeave(p *peer, e protocol.LeaveRoom) {
	if ctl.Orch.Leave(p.sid, e.RoomID) {
		log.Info().Str("module", "signal").Str("conn", string(p.sid)).Str("room", string(e.RoomID)).Msg("leave")
	}
}

func (ctl *SignalWSController) handleSend(p *peer, e protocol.SendMessage) {
	if !ctl.Limiter.Allow(p.sid) {
		ctl.reject(p, protocol.TypeSendMessage, domain.ErrRateLimited)
		return
	}
	draft := domain.Draft{Content: e.Content, ClientRef: e.ClientRef}
	if e.ClientTime > 0 {
		draft.ClientTime = time.UnixMilli(e.ClientTime).UTC()
	}
	if _, err := ctl.Orch.Send(p.sid, e.RoomID, draft); err != nil {
		ctl.reject(p, protocol.TypeSendMessage, err)
	}
}

// handleCreate relies on the discovery broadcast to answer the creator too.
func (ctl *SignalWSController) handleCreate(p *peer, e protocol.CreateRoom) {
	room, err := ctl.Orch.CreateRoom(p.ctx, e.Name, e.Description, aliasOr(e.CreatedBy, p.alias))
	if err != nil {
		ctl.reject(p, protocol.TypeCreateRoom, err)
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(p.sid)).Str("room", string(room.ID)).Msg("create")
}

func (ctl *SignalWSController) handleDelete(p *peer, e protocol.DeleteRoom) {
	if !domain.ValidRoomID(string(e.RoomID)) {
		ctl.reject(p, protocol.TypeDeleteRoom, domain.ErrInvalidID)
		return
	}
	snap, err := ctl.Orch.Delete(p.ctx, e.RoomID, aliasOr(e.DeletedBy, p.alias))
	if err != nil {
		ctl.reject(p, protocol.TypeDeleteRoom, err)
		return
	}
	// Members already got the notice under the room lock.
	if cur, _, ok := ctl.Orch.Presence.RoomOf(p.sid); !ok || cur != e.RoomID {
		ctl.send(p, protocol.RoomSoftDeleted{RoomID: snap.ID, DisbandAt: *snap.DisbandAt})
	}
}

// reject answers only the initiating connection.
func (ctl *SignalWSController) reject(p *peer, op protocol.Type, err error) {
	ctl.sendError(p, protocol.NewError(op, err))
}

func (ctl *SignalWSController) sendError(p *peer, e protocol.Error) {
	metrics.RejectedOps.WithLabelValues(string(e.Op), string(e.Code)).Inc()
	log.Warn().Str("module", "signal").Str("conn", string(p.sid)).Str("op", string(e.Op)).Str("code", string(e.Code)).Msg(e.Message)
	ctl.send(p, e)
}
