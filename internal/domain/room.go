package domain

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	RoomIDPrefix      = "ren-"
	MaxRoomNameLen    = 64
	MaxDescriptionLen = 280
)

var roomIDPattern = regexp.MustCompile(`^ren-[1-9][0-9]*$`)

type RoomID string

// FormatRoomID renders a sequence number in the canonical id shape.
func FormatRoomID(seq int64) RoomID {
	return RoomID(RoomIDPrefix + strconv.FormatInt(seq, 10))
}

// ValidRoomID is a pure syntactic check, safe to call before any round-trip.
func ValidRoomID(id string) bool {
	return roomIDPattern.MatchString(id)
}

// Seq is the numeric part of a canonical id, or 0 for anything else.
func (id RoomID) Seq() int64 {
	if !ValidRoomID(string(id)) {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(string(id), RoomIDPrefix), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

type RoomState string

const (
	RoomActive      RoomState = "Active"
	RoomSoftDeleted RoomState = "SoftDeleted"
	RoomDisbanded   RoomState = "Disbanded"
)

// Room is a point-in-time view. MemberCount is filled from live presence
// whenever a snapshot is taken and is never persisted.
type Room struct {
	ID          RoomID     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatedBy   Alias      `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	State       RoomState  `json:"state"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	DisbandAt   *time.Time `json:"disbandAt,omitempty"`
	MemberCount int        `json:"memberCount"`
}

// NewRoom validates user input and returns an Active room.
func NewRoom(id RoomID, name, description string, creator Alias, at time.Time) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRoomNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxRoomNameLen {
		return nil, ErrRoomNameTooLong
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > MaxDescriptionLen {
		return nil, ErrDescriptionTooLong
	}
	if _, err := NewAlias(string(creator)); err != nil {
		return nil, err
	}
	return &Room{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedBy:   creator,
		CreatedAt:   at,
		State:       RoomActive,
	}, nil
}

// SortRooms applies the discovery order in place: busiest first, then
// newest, then highest id.
func SortRooms(rooms []Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		a, b := rooms[i], rooms[j]
		if a.MemberCount != b.MemberCount {
			return a.MemberCount > b.MemberCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.Seq() > b.ID.Seq()
	})
}
