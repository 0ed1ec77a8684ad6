package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/DarkRoom/internal/core"
	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/metrics"
	"github.com/dkeye/DarkRoom/internal/store"
)

// RoomLookup resolves live (non-disbanded) rooms.
type RoomLookup interface {
	Lookup(id domain.RoomID) (core.RoomService, bool)
	All() []core.RoomService
}

// RoomManager is the room registry: the only authority on which rooms exist.
type RoomManager struct {
	mu           sync.RWMutex
	rooms        map[domain.RoomID]core.RoomService
	store        store.RoomStore
	historyLimit int
	now          func() time.Time
}

func NewRoomManager(s store.RoomStore, historyLimit int) *RoomManager {
	return &RoomManager{
		rooms:        make(map[domain.RoomID]core.RoomService),
		store:        s,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// Create validates input, allocates a fresh id and persists the room.
func (m *RoomManager) Create(ctx context.Context, name, description, creator string) (domain.Room, error) {
	alias, err := domain.NewAlias(creator)
	if err != nil {
		return domain.Room{}, err
	}
	// Validate before spending a sequence number.
	if _, err := domain.NewRoom(domain.FormatRoomID(1), name, description, alias, m.now()); err != nil {
		return domain.Room{}, err
	}
	seq, err := m.store.NextRoomSeq(ctx)
	if err != nil {
		return domain.Room{}, fmt.Errorf("allocate room id: %w", err)
	}
	room, err := domain.NewRoom(domain.FormatRoomID(seq), name, description, alias, m.now())
	if err != nil {
		return domain.Room{}, err
	}
	if err := m.store.SaveRoom(ctx, *room); err != nil {
		return domain.Room{}, fmt.Errorf("persist room: %w", err)
	}

	svc := core.NewRoomService(*room, m.historyLimit)
	m.mu.Lock()
	m.rooms[room.ID] = svc
	m.mu.Unlock()

	metrics.RoomsCreated.Inc()
	log.Info().Str("module", "app.rooms").Str("room", string(room.ID)).Str("name", room.Name).Str("created_by", string(alias)).Msg("room created")
	return svc.Room(), nil
}

func (m *RoomManager) Get(id domain.RoomID) (domain.Room, error) {
	svc, ok := m.Lookup(id)
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return svc.Room(), nil
}

func (m *RoomManager) Lookup(id domain.RoomID) (core.RoomService, bool) {
	m.mu.RLock()
	svc, ok := m.rooms[id]
	m.mu.RUnlock()
	if !ok || svc.State() == domain.RoomDisbanded {
		return nil, false
	}
	return svc, true
}

func (m *RoomManager) All() []core.RoomService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.RoomService, 0, len(m.rooms))
	for _, svc := range m.rooms {
		out = append(out, svc)
	}
	return out
}

// List orders rooms for discovery: busiest first, then newest.
func (m *RoomManager) List() []domain.Room {
	m.mu.RLock()
	out := make([]domain.Room, 0, len(m.rooms))
	for _, svc := range m.rooms {
		if r := svc.Room(); r.State != domain.RoomDisbanded {
			out = append(out, r)
		}
	}
	m.mu.RUnlock()
	domain.SortRooms(out)
	return out
}

// Persist writes the current metadata of a room back to the store.
func (m *RoomManager) Persist(ctx context.Context, id domain.RoomID) error {
	svc, ok := m.Lookup(id)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if err := m.store.SaveRoom(ctx, svc.Room()); err != nil {
		return fmt.Errorf("persist room: %w", err)
	}
	return nil
}

// Remove forgets a room for good. Its id is never handed out again.
func (m *RoomManager) Remove(ctx context.Context, id domain.RoomID) error {
	m.mu.Lock()
	delete(m.rooms, id)
	m.mu.Unlock()
	if err := m.store.DeleteRoom(ctx, id); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room removed")
	return nil
}

// Restore loads persisted rooms after a restart. Message logs start empty.
func (m *RoomManager) Restore(ctx context.Context) (int, error) {
	rooms, err := m.store.LoadRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore rooms: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range rooms {
		if r.State == domain.RoomDisbanded {
			continue
		}
		if _, ok := m.rooms[r.ID]; ok {
			continue
		}
		m.rooms[r.ID] = core.NewRoomService(r, m.historyLimit)
		n++
	}
	log.Info().Str("module", "app.rooms").Int("restored", n).Msg("rooms restored")
	return n, nil
}
