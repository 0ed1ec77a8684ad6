package domain

import "time"

// Member represents a connection's participation in a room.
// No transport or lifecycle logic here.
type Member struct {
	Alias    Alias
	JoinedAt time.Time
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(alias Alias, at time.Time) *Member {
	return &Member{Alias: alias, JoinedAt: at}
}
