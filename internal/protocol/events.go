// Package protocol defines the real-time event set exchanged over the signal
// channel. The set is closed: every frame decodes into one of the types below.
package protocol

import (
	"time"

	"github.com/dkeye/DarkRoom/internal/domain"
)

type Type string

const (
	TypeJoinRoom        Type = "join-room"
	TypeRoomHistory     Type = "room-history"
	TypeSendMessage     Type = "send-message"
	TypeReceiveMessage  Type = "receive-message"
	TypeLeaveRoom       Type = "leave-room"
	TypeUserCountUpdate Type = "user-count-update"
	TypeCreateRoom      Type = "create-room"
	TypeRoomCreated     Type = "room-created"
	TypeDeleteRoom      Type = "delete-room"
	TypeRoomSoftDeleted Type = "room-soft-deleted"
	TypeRoomDisbanded   Type = "room-disbanded"
	TypePing            Type = "ping"
	TypePong            Type = "pong"
	TypeError           Type = "error"
)

// Event is implemented only by the types in this file.
type Event interface {
	Type() Type
	event()
}

// Client -> server.

type JoinRoom struct {
	RoomID domain.RoomID `json:"roomId"`
	Alias  string        `json:"alias"`
}

type SendMessage struct {
	RoomID     domain.RoomID `json:"roomId"`
	Alias      string        `json:"alias"`
	Content    string        `json:"content"`
	ClientTime int64         `json:"clientTime"` // unix millis
	ClientRef  string        `json:"clientRef,omitempty"`
}

type LeaveRoom struct {
	RoomID domain.RoomID `json:"roomId"`
}

type CreateRoom struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedBy   string `json:"createdBy"`
}

type DeleteRoom struct {
	RoomID    domain.RoomID `json:"roomId"`
	DeletedBy string        `json:"deletedBy"`
}

type Ping struct{}

// Server -> client.

type RoomHistory struct {
	RoomID   domain.RoomID    `json:"roomId"`
	Messages []domain.Message `json:"messages"`
}

type ReceiveMessage struct {
	domain.Message
}

type UserCountUpdate struct {
	RoomID domain.RoomID `json:"roomId"`
	Count  int           `json:"count"`
}

type RoomCreated struct {
	domain.Room
}

type RoomSoftDeleted struct {
	RoomID    domain.RoomID `json:"roomId"`
	DisbandAt time.Time     `json:"disbandAt"`
}

type RoomDisbanded struct {
	RoomID domain.RoomID `json:"roomId"`
}

type Pong struct{}

type Error struct {
	Op      Type        `json:"op,omitempty"`
	Code    domain.Code `json:"code"`
	Message string      `json:"message"`
}

func (JoinRoom) Type() Type        { return TypeJoinRoom }
func (SendMessage) Type() Type     { return TypeSendMessage }
func (LeaveRoom) Type() Type       { return TypeLeaveRoom }
func (CreateRoom) Type() Type      { return TypeCreateRoom }
func (DeleteRoom) Type() Type      { return TypeDeleteRoom }
func (Ping) Type() Type            { return TypePing }
func (RoomHistory) Type() Type     { return TypeRoomHistory }
func (ReceiveMessage) Type() Type  { return TypeReceiveMessage }
func (UserCountUpdate) Type() Type { return TypeUserCountUpdate }
func (RoomCreated) Type() Type     { return TypeRoomCreated }
func (RoomSoftDeleted) Type() Type { return TypeRoomSoftDeleted }
func (RoomDisbanded) Type() Type   { return TypeRoomDisbanded }
func (Pong) Type() Type            { return TypePong }
func (Error) Type() Type           { return TypeError }

func (JoinRoom) event()        {}
func (SendMessage) event()     {}
func (LeaveRoom) event()       {}
func (CreateRoom) event()      {}
func (DeleteRoom) event()      {}
func (Ping) event()            {}
func (RoomHistory) event()     {}
func (ReceiveMessage) event()  {}
func (UserCountUpdate) event() {}
func (RoomCreated) event()     {}
func (RoomSoftDeleted) event() {}
func (RoomDisbanded) event()   {}
func (Pong) event()            {}
func (Error) event()           {}

// NewError builds an error reply for op from err.
func NewError(op Type, err error) Error {
	return Error{Op: op, Code: domain.CodeOf(err), Message: err.Error()}
}
