package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/DarkRoom/internal/domain"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is the default single-process store. Nothing survives a
// restart, but ids are still never reused within the process.
type MemoryStore struct {
	mu       sync.Mutex
	seq      int64
	rooms    map[domain.RoomID]domain.Room
	disbands map[domain.RoomID]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    make(map[domain.RoomID]domain.Room),
		disbands: make(map[domain.RoomID]time.Time),
	}
}

func (s *MemoryStore) NextRoomSeq(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

func (s *MemoryStore) SaveRoom(_ context.Context, room domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room.MemberCount = 0
	s.rooms[room.ID] = room
	return nil
}

func (s *MemoryStore) DeleteRoom(_ context.Context, id domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	return nil
}

func (s *MemoryStore) LoadRooms(context.Context) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ScheduleDisband(_ context.Context, id domain.RoomID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disbands[id] = at
	return nil
}

func (s *MemoryStore) RemoveDisband(_ context.Context, id domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.disbands, id)
	return nil
}

func (s *MemoryStore) PendingDisbands(context.Context) ([]Disband, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Disband, 0, len(s.disbands))
	for id, at := range s.disbands {
		out = append(out, Disband{RoomID: id, At: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Close() error               { return nil }
