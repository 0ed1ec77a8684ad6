package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrBadEnvelope  = errors.New("bad envelope")
)

type envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode renders ev as a typed envelope.
func Encode(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Type(), err)
	}
	return json.Marshal(envelope{Type: ev.Type(), Payload: payload})
}

// MustEncode is for server-built events whose fields always marshal.
func MustEncode(ev Event) []byte {
	b, err := Encode(ev)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode parses an envelope into its concrete event.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}

	switch env.Type {
	case TypeJoinRoom:
		return decodeInto[JoinRoom](env)
	case TypeSendMessage:
		return decodeInto[SendMessage](env)
	case TypeLeaveRoom:
		return decodeInto[LeaveRoom](env)
	case TypeCreateRoom:
		return decodeInto[CreateRoom](env)
	case TypeDeleteRoom:
		return decodeInto[DeleteRoom](env)
	case TypePing:
		return Ping{}, nil
	case TypeRoomHistory:
		return decodeInto[RoomHistory](env)
	case TypeReceiveMessage:
		return decodeInto[ReceiveMessage](env)
	case TypeUserCountUpdate:
		return decodeInto[UserCountUpdate](env)
	case TypeRoomCreated:
		return decodeInto[RoomCreated](env)
	case TypeRoomSoftDeleted:
		return decodeInto[RoomSoftDeleted](env)
	case TypeRoomDisbanded:
		return decodeInto[RoomDisbanded](env)
	case TypePong:
		return Pong{}, nil
	case TypeError:
		return decodeInto[Error](env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

func decodeInto[T Event](env envelope) (Event, error) {
	var v T
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("%w: %s without payload", ErrBadEnvelope, env.Type)
	}
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadEnvelope, env.Type, err)
	}
	return v, nil
}
