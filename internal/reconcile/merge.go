// Package reconcile merges a client's optimistic sends with what the server
// confirms. Nothing here touches the network.
package reconcile

import (
	"cmp"
	"slices"
	"time"

	"github.com/dkeye/DarkRoom/internal/domain"
)

// DefaultWindow bounds how far apart a pending send and its confirmation may
// be when matched by content.
const DefaultWindow = 5 * time.Second

// Entry is one line of a room's local timeline. Pending entries have no
// server id yet.
type Entry struct {
	domain.Message
	LocalID string
	Pending bool
	SentAt  time.Time
}

// Confirmed wraps a server message.
func Confirmed(m domain.Message) Entry {
	return Entry{Message: m}
}

// Merge folds incoming server messages into existing. Confirmed entries come
// out unique by id and sorted; pending entries that nothing confirmed follow
// in their original order.
func Merge(existing []Entry, incoming []domain.Message, window time.Duration) []Entry {
	if window <= 0 {
		window = DefaultWindow
	}
	confirmed := make(map[domain.MessageID]Entry, len(existing)+len(incoming))
	var pending []Entry
	for _, e := range existing {
		if e.Pending {
			pending = append(pending, e)
			continue
		}
		confirmed[e.ID] = e
	}

	for _, m := range incoming {
		// A re-delivered id has already consumed its pending twin.
		if prev, ok := confirmed[m.ID]; ok {
			confirmed[m.ID] = Entry{Message: m, LocalID: prev.LocalID}
			continue
		}
		if i := matchPending(pending, m, window); i >= 0 {
			p := pending[i]
			pending = slices.Delete(pending, i, i+1)
			confirmed[m.ID] = Entry{Message: m, LocalID: p.LocalID}
			continue
		}
		confirmed[m.ID] = Confirmed(m)
	}

	out := make([]Entry, 0, len(confirmed)+len(pending))
	for _, e := range confirmed {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return cmp.Compare(a.ID, b.ID) })
	return append(out, pending...)
}

// matchPending prefers an exact client reference, then the oldest pending
// entry with the same alias and content sent within window.
func matchPending(pending []Entry, m domain.Message, window time.Duration) int {
	if m.ClientRef != "" {
		for i, p := range pending {
			if p.ClientRef == m.ClientRef {
				return i
			}
		}
	}
	for i, p := range pending {
		if p.ClientRef != "" && m.ClientRef != "" {
			continue
		}
		if p.Alias != m.Alias || p.Content != m.Content {
			continue
		}
		if absDur(sentTime(m).Sub(p.SentAt)) <= window {
			return i
		}
	}
	return -1
}

// sentTime is the sender's own clock when present, else the server's.
func sentTime(m domain.Message) time.Time {
	if !m.ClientTime.IsZero() {
		return m.ClientTime
	}
	return m.ServerTime
}

func absDur(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
