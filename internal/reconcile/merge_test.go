package reconcile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/reconcile"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(id domain.MessageID, alias, content string, at time.Time) domain.Message {
	return domain.Message{ID: id, RoomID: "ren-1", Alias: domain.Alias(alias), Content: content, ServerTime: at, ClientTime: at}
}

func pending(local, alias, content, ref string, at time.Time) reconcile.Entry {
	return reconcile.Entry{
		Message: domain.Message{RoomID: "ren-1", Alias: domain.Alias(alias), Content: content, ClientRef: ref, ClientTime: at},
		LocalID: local,
		Pending: true,
		SentAt:  at,
	}
}

func contents(entries []reconcile.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Content
	}
	return out
}

func TestMerge_SortsAndDeduplicatesByID(t *testing.T) {
	existing := []reconcile.Entry{
		reconcile.Confirmed(msg(2, "bob", "two", t0)),
	}
	incoming := []domain.Message{
		msg(3, "bob", "three", t0),
		msg(1, "alice", "one", t0),
		msg(2, "bob", "two", t0),
		msg(3, "bob", "three", t0),
	}

	got := reconcile.Merge(existing, incoming, 0)
	assert.Equal(t, []string{"one", "two", "three"}, contents(got))
	for _, e := range got {
		assert.False(t, e.Pending)
	}
}

func TestMerge_ClientRefPromotesPending(t *testing.T) {
	existing := []reconcile.Entry{pending("l1", "alice", "hello", "ref-1", t0)}
	echo := msg(7, "alice", "hello", t0.Add(time.Minute))
	echo.ClientRef = "ref-1"

	got := reconcile.Merge(existing, []domain.Message{echo}, time.Second)
	require.Len(t, got, 1)
	assert.False(t, got[0].Pending)
	assert.Equal(t, domain.MessageID(7), got[0].ID)
	assert.Equal(t, "l1", got[0].LocalID)
}

func TestMerge_ContentWindowFallback(t *testing.T) {
	existing := []reconcile.Entry{pending("l1", "alice", "hello", "", t0)}

	inside := reconcile.Merge(existing, []domain.Message{msg(1, "alice", "hello", t0.Add(2*time.Second))}, 5*time.Second)
	require.Len(t, inside, 1)
	assert.False(t, inside[0].Pending)

	outside := reconcile.Merge(existing, []domain.Message{msg(1, "alice", "hello", t0.Add(10*time.Second))}, 5*time.Second)
	require.Len(t, outside, 2)
	assert.False(t, outside[0].Pending)
	assert.True(t, outside[1].Pending)

	otherAlias := reconcile.Merge(existing, []domain.Message{msg(1, "bob", "hello", t0)}, 5*time.Second)
	assert.Len(t, otherAlias, 2)
}

func TestMerge_DifferentRefsNeverMatch(t *testing.T) {
	existing := []reconcile.Entry{pending("l1", "alice", "hi", "mine", t0)}
	other := msg(1, "alice", "hi", t0)
	other.ClientRef = "someone-else"

	got := reconcile.Merge(existing, []domain.Message{other}, time.Minute)
	require.Len(t, got, 2)
	assert.True(t, got[1].Pending)
}

func TestMerge_HistoryKeepsNewPendingAfterServerOrder(t *testing.T) {
	existing := []reconcile.Entry{
		pending("l1", "alice", "first draft", "r1", t0),
		pending("l2", "alice", "second draft", "r2", t0.Add(time.Second)),
	}
	history := []domain.Message{
		msg(1, "bob", "earlier", t0.Add(-time.Minute)),
		msg(2, "bob", "earlier too", t0.Add(-time.Minute)),
	}

	got := reconcile.Merge(existing, history, 0)
	assert.Equal(t, []string{"earlier", "earlier too", "first draft", "second draft"}, contents(got))
	assert.True(t, got[2].Pending)
	assert.True(t, got[3].Pending)
}

func TestMerge_RedeliveryDoesNotConsumeLaterPending(t *testing.T) {
	first := msg(1, "alice", "again", t0)
	existing := []reconcile.Entry{
		reconcile.Confirmed(first),
		pending("l2", "alice", "again", "", t0.Add(time.Second)),
	}

	got := reconcile.Merge(existing, []domain.Message{first}, time.Minute)
	require.Len(t, got, 2)
	assert.True(t, got[1].Pending)
}

func TestMerge_IsPure(t *testing.T) {
	existing := []reconcile.Entry{pending("l1", "alice", "hello", "r1", t0)}
	echo := msg(1, "alice", "hello", t0)
	echo.ClientRef = "r1"

	_ = reconcile.Merge(existing, []domain.Message{echo}, 0)
	assert.True(t, existing[0].Pending)
	assert.Zero(t, existing[0].ID)
}
