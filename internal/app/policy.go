package app

import "github.com/dkeye/DarkRoom/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a member whose outbound queue was full
// during a fan-out.
type Policy interface {
	OnBackPressure(room core.RoomService, sid core.ConnID) BackpressureAction
}

// SimplePolicy kicks; the member resyncs from history on rejoin.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.RoomService, core.ConnID) BackpressureAction {
	return KickMember
}
