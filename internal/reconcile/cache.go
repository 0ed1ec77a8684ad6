package reconcile

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/protocol"
)

// Cache is a client's local view: room metadata seeded from the registry and
// kept current by push events, plus one reconciled timeline per room.
type Cache struct {
	mu       sync.RWMutex
	window   time.Duration
	rooms    map[domain.RoomID]domain.Room
	timeline map[domain.RoomID][]Entry
}

func NewCache(window time.Duration) *Cache {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Cache{
		window:   window,
		rooms:    make(map[domain.RoomID]domain.Room),
		timeline: make(map[domain.RoomID][]Entry),
	}
}

// AddPending records an optimistic send. The returned entry carries the
// client reference to put on the wire.
func (c *Cache) AddPending(roomID domain.RoomID, alias domain.Alias, content string, now time.Time) Entry {
	e := Entry{
		Message: domain.Message{
			RoomID:     roomID,
			Alias:      alias,
			Content:    content,
			ClientTime: now,
			ClientRef:  uuid.NewString(),
		},
		LocalID: uuid.NewString(),
		Pending: true,
		SentAt:  now,
	}
	c.mu.Lock()
	c.timeline[roomID] = append(c.timeline[roomID], e)
	c.mu.Unlock()
	return e
}

// DropPending forgets an optimistic send the server rejected.
func (c *Cache) DropPending(roomID domain.RoomID, localID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.timeline[roomID]
	for i, e := range entries {
		if e.Pending && e.LocalID == localID {
			c.timeline[roomID] = append(entries[:i:i], entries[i+1:]...)
			return true
		}
	}
	return false
}

// Apply folds one server event into the cache. Events the cache has no use
// for are ignored.
func (c *Cache) Apply(ev protocol.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e := ev.(type) {
	case protocol.RoomHistory:
		c.timeline[e.RoomID] = Merge(c.timeline[e.RoomID], e.Messages, c.window)
	case protocol.ReceiveMessage:
		c.timeline[e.RoomID] = Merge(c.timeline[e.RoomID], []domain.Message{e.Message}, c.window)
	case protocol.UserCountUpdate:
		if r, ok := c.rooms[e.RoomID]; ok {
			r.MemberCount = e.Count
			c.rooms[e.RoomID] = r
		}
	case protocol.RoomCreated:
		c.rooms[e.ID] = e.Room
	case protocol.RoomSoftDeleted:
		if r, ok := c.rooms[e.RoomID]; ok {
			at := e.DisbandAt
			r.State = domain.RoomSoftDeleted
			r.DisbandAt = &at
			c.rooms[e.RoomID] = r
		}
	case protocol.RoomDisbanded:
		delete(c.rooms, e.RoomID)
		delete(c.timeline, e.RoomID)
	}
}

// SeedRooms replaces room metadata with a fresh registry listing.
func (c *Cache) SeedRooms(rooms []domain.Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.rooms)
	for _, r := range rooms {
		if r.State == domain.RoomDisbanded {
			continue
		}
		c.rooms[r.ID] = r
	}
}

// Room returns one cached room.
func (c *Cache) Room(id domain.RoomID) (domain.Room, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rooms[id]
	return r, ok
}

// Rooms lists cached rooms in registry order.
func (c *Cache) Rooms() []domain.Room {
	c.mu.RLock()
	out := make([]domain.Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		out = append(out, r)
	}
	c.mu.RUnlock()
	domain.SortRooms(out)
	return out
}

// Messages is the reconciled timeline of a room.
func (c *Cache) Messages(roomID domain.RoomID) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Entry(nil), c.timeline[roomID]...)
}
