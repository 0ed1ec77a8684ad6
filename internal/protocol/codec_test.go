package protocol_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/protocol"
)

func TestEncodeEnvelopeShape(t *testing.T) {
	b, err := protocol.Encode(protocol.UserCountUpdate{RoomID: "ren-3", Count: 2})
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.JSONEq(t, `"user-count-update"`, string(raw["type"]))
	assert.JSONEq(t, `{"roomId":"ren-3","count":2}`, string(raw["payload"]))
}

func TestReceiveMessageIsFlat(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b := protocol.MustEncode(protocol.ReceiveMessage{Message: domain.Message{
		ID: 7, RoomID: "ren-1", Alias: "alice", Content: "hello", ServerTime: at, ClientRef: "r1",
	}})
	assert.JSONEq(t,
		`{"type":"receive-message","payload":{"id":7,"roomId":"ren-1","alias":"alice","content":"hello","serverTime":"2026-01-02T03:04:05Z","clientRef":"r1"}}`,
		string(b))

	ev, err := protocol.Decode(b)
	require.NoError(t, err)
	got, ok := ev.(protocol.ReceiveMessage)
	require.True(t, ok)
	assert.Equal(t, domain.MessageID(7), got.ID)
	assert.True(t, at.Equal(got.ServerTime))
}

func TestDecodeClientEvents(t *testing.T) {
	ev, err := protocol.Decode([]byte(`{"type":"send-message","payload":{"roomId":"ren-1","alias":"bob","content":"hi","clientTime":1700000000000}}`))
	require.NoError(t, err)
	assert.Equal(t, protocol.SendMessage{RoomID: "ren-1", Alias: "bob", Content: "hi", ClientTime: 1700000000000}, ev)

	ev, err = protocol.Decode([]byte(`{"type":"delete-room","payload":{"roomId":"ren-9","deletedBy":"alice"}}`))
	require.NoError(t, err)
	assert.Equal(t, protocol.DeleteRoom{RoomID: "ren-9", DeletedBy: "alice"}, ev)

	ev, err = protocol.Decode([]byte(`{"type":"ping"}`))
	require.NoError(t, err)
	assert.Equal(t, protocol.Ping{}, ev)
}

func TestDecodeRejects(t *testing.T) {
	_, err := protocol.Decode([]byte(`not json`))
	assert.ErrorIs(t, err, protocol.ErrBadEnvelope)

	_, err = protocol.Decode([]byte(`{"type":"teleport","payload":{}}`))
	assert.ErrorIs(t, err, protocol.ErrUnknownEvent)

	_, err = protocol.Decode([]byte(`{"type":"join-room"}`))
	assert.ErrorIs(t, err, protocol.ErrBadEnvelope)

	_, err = protocol.Decode([]byte(`{"type":"join-room","payload":{"roomId":5}}`))
	assert.ErrorIs(t, err, protocol.ErrBadEnvelope)
}

func TestRoundTripServerEvents(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	events := []protocol.Event{
		protocol.RoomHistory{RoomID: "ren-1", Messages: []domain.Message{{ID: 1, RoomID: "ren-1", Alias: "a", Content: "x", ServerTime: at}}},
		protocol.RoomSoftDeleted{RoomID: "ren-1", DisbandAt: at},
		protocol.RoomDisbanded{RoomID: "ren-1"},
		protocol.RoomCreated{Room: domain.Room{ID: "ren-2", Name: "n", CreatedBy: "a", CreatedAt: at, State: domain.RoomActive}},
		protocol.NewError(protocol.TypeSendMessage, domain.ErrNotPresent),
		protocol.Pong{},
	}
	for _, want := range events {
		got, err := protocol.Decode(protocol.MustEncode(want))
		require.NoError(t, err, want.Type())
		assert.Equal(t, want, got, want.Type())
	}
}

func TestNewErrorCarriesCode(t *testing.T) {
	e := protocol.NewError(protocol.TypeDeleteRoom, domain.ErrUnauthorized)
	assert.Equal(t, domain.CodeUnauthorized, e.Code)
	assert.Equal(t, protocol.TypeDeleteRoom, e.Op)
}
