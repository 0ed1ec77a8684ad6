package core

import (
	"time"

	"github.com/dkeye/DarkRoom/internal/domain"
)

// Frame is an encoded protocol envelope.
type Frame []byte

// ConnID identifies one transport connection. A browser tab with two sockets
// has two ConnIDs.
type ConnID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
	Closed() bool
}

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []ConnID
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	Conn  ConnID       `json:"conn"`
	Alias domain.Alias `json:"alias"`
}

// JoinResult is what a joiner sees at the moment it was added. Dropped lists
// connections, the joiner included, that missed a frame of the join.
type JoinResult struct {
	Room    domain.Room
	History []domain.Message
	Count   int
	Dropped []ConnID
}

// RoomService is the core-facing API of a room.
// All mutations of one room are serialized; every frame a mutation produces
// is enqueued before the next mutation starts. Every mutation that fans out
// reports the connections it could not reach.
type RoomService interface {
	ID() domain.RoomID
	Room() domain.Room
	State() domain.RoomState
	MemberCount() int
	HasMember(sid ConnID) bool
	MembersSnapshot() []MemberDTO

	AddMember(sid ConnID, ms MemberSession) (JoinResult, error)
	RemoveMember(sid ConnID) (PublishResult, bool)
	Retain(keep func(ConnID) bool) ([]ConnID, PublishResult)

	Publish(from ConnID, draft domain.Draft, at time.Time) (domain.Message, PublishResult, error)
	History() []domain.Message
	Broadcast(from ConnID, data Frame) PublishResult

	SoftDelete(requester domain.Alias, at time.Time, grace time.Duration) (domain.Room, PublishResult, error)
	Disband() ([]ConnID, PublishResult)
}
