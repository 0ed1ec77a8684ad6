// Package store keeps the state that must survive a restart: room metadata,
// the room id sequence and pending disband deadlines. Messages are never
// stored.
package store

//go:generate mockgen -destination=mocks/mock_schedule.go -package=mocks github.com/dkeye/DarkRoom/internal/store ScheduleStore

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/DarkRoom/internal/domain"
)

var ErrNotFound = errors.New("not found")

type RoomStore interface {
	// NextRoomSeq returns a number never returned before.
	NextRoomSeq(ctx context.Context) (int64, error)
	SaveRoom(ctx context.Context, room domain.Room) error
	DeleteRoom(ctx context.Context, id domain.RoomID) error
	LoadRooms(ctx context.Context) ([]domain.Room, error)
}

// Disband is a persisted deadline for one soft-deleted room.
type Disband struct {
	RoomID domain.RoomID
	At     time.Time
}

type ScheduleStore interface {
	ScheduleDisband(ctx context.Context, id domain.RoomID, at time.Time) error
	RemoveDisband(ctx context.Context, id domain.RoomID) error
	PendingDisbands(ctx context.Context) ([]Disband, error)
}

type Store interface {
	RoomStore
	ScheduleStore
	Ping(ctx context.Context) error
	Close() error
}
