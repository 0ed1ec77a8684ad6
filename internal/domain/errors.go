package domain

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomNotActive = errors.New("room not active")
	ErrNotPresent    = errors.New("not present in room")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidID     = errors.New("invalid room id")

	ErrRoomNameEmpty      = errors.New("room name empty")
	ErrRoomNameTooLong    = errors.New("room name too long")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrAliasEmpty         = errors.New("alias empty")
	ErrAliasTooLong       = errors.New("alias too long")
	ErrEmptyMessage       = errors.New("message empty")
	ErrMessageTooLong     = errors.New("message too long")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnknownConnection  = errors.New("unknown connection")
)

// Code is the failure code surfaced to the calling layer.
type Code string

const (
	CodeRoomNotFound   Code = "RoomNotFound"
	CodeRoomNotActive  Code = "RoomNotActive"
	CodeNotPresent     Code = "NotPresent"
	CodeUnauthorized   Code = "Unauthorized"
	CodeInvalidID      Code = "InvalidId"
	CodeInvalidName    Code = "InvalidName"
	CodeInvalidAlias   Code = "InvalidAlias"
	CodeEmptyMessage   Code = "EmptyMessage"
	CodeMessageTooLong Code = "MessageTooLong"
	CodeRateLimited    Code = "RateLimited"
	CodeBadPayload     Code = "BadPayload"
	CodeInternal       Code = "Internal"
)

var codes = []struct {
	err  error
	code Code
}{
	{ErrRoomNotFound, CodeRoomNotFound},
	{ErrRoomNotActive, CodeRoomNotActive},
	{ErrNotPresent, CodeNotPresent},
	{ErrUnknownConnection, CodeNotPresent},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrInvalidID, CodeInvalidID},
	{ErrRoomNameEmpty, CodeInvalidName},
	{ErrRoomNameTooLong, CodeInvalidName},
	{ErrDescriptionTooLong, CodeInvalidName},
	{ErrAliasEmpty, CodeInvalidAlias},
	{ErrAliasTooLong, CodeInvalidAlias},
	{ErrEmptyMessage, CodeEmptyMessage},
	{ErrMessageTooLong, CodeMessageTooLong},
	{ErrRateLimited, CodeRateLimited},
}

// CodeOf classifies err; anything unknown is Internal.
func CodeOf(err error) Code {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// ErrorFor maps a code received from the server back to its sentinel. Codes
// without one yield nil.
func ErrorFor(code Code) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
