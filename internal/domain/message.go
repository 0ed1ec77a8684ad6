package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const MaxContentLen = 2000

type MessageID uint64

// Message is immutable once the broker has assigned its ID.
type Message struct {
	ID         MessageID `json:"id"`
	RoomID     RoomID    `json:"roomId"`
	Alias      Alias     `json:"alias"`
	Content    string    `json:"content"`
	ServerTime time.Time `json:"serverTime"`
	ClientTime time.Time `json:"clientTime,omitzero"`
	ClientRef  string    `json:"clientRef,omitempty"`
}

// Draft is what a sender submits before ordering.
type Draft struct {
	Content    string
	ClientTime time.Time
	ClientRef  string
}

// NormalizeContent trims and length-checks message content.
func NormalizeContent(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(s) > MaxContentLen {
		return "", ErrMessageTooLong
	}
	return s, nil
}
