package app

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/DarkRoom/internal/core"
	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/metrics"
)

// Backpressure deals with connections a fan-out could not reach; Presence
// implements it.
type Backpressure interface {
	HandleDropped(room core.RoomService, dropped []core.ConnID)
}

// Broker orders and delivers messages. Ordering comes from the room's own
// lock, so two rooms never wait on each other.
type Broker struct {
	Rooms RoomLookup
	Drops Backpressure
	now   func() time.Time
}

func NewBroker(rooms RoomLookup, drops Backpressure) *Broker {
	return &Broker{Rooms: rooms, Drops: drops, now: time.Now}
}

// Send validates content and publishes it into roomID on behalf of sid.
func (b *Broker) Send(sid core.ConnID, roomID domain.RoomID, draft domain.Draft) (domain.Message, error) {
	room, ok := b.Rooms.Lookup(roomID)
	if !ok {
		return domain.Message{}, domain.ErrRoomNotFound
	}
	content, err := domain.NormalizeContent(draft.Content)
	if err != nil {
		return domain.Message{}, err
	}
	draft.Content = content

	msg, res, err := room.Publish(sid, draft, b.now())
	if err != nil {
		return domain.Message{}, err
	}
	metrics.MessagesSent.Inc()
	if len(res.Dropped) > 0 && b.Drops != nil {
		log.Debug().Str("module", "app.broker").Str("room", string(roomID)).Int("dropped", len(res.Dropped)).Msg("fan-out dropped")
		b.Drops.HandleDropped(room, res.Dropped)
	}
	return msg, nil
}

// History is the ordered snapshot handed to joiners.
func (b *Broker) History(roomID domain.RoomID) ([]domain.Message, error) {
	room, ok := b.Rooms.Lookup(roomID)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room.History(), nil
}
