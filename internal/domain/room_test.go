package domain_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/DarkRoom/internal/domain"
)

func TestValidRoomID(t *testing.T) {
	valid := []string{"ren-1", "ren-42", "ren-9000000000"}
	for _, id := range valid {
		assert.True(t, domain.ValidRoomID(id), id)
	}
	invalid := []string{"garbage", "", "ren-", "ren-0", "ren-01", "REN-1", "ren-1 ", " ren-1", "ren-1a", "ren-1700000000000x", "room-1"}
	for _, id := range invalid {
		assert.False(t, domain.ValidRoomID(id), id)
	}
}

func TestFormatRoomIDMatchesPattern(t *testing.T) {
	for _, seq := range []int64{1, 7, 123456789} {
		id := domain.FormatRoomID(seq)
		assert.Equal(t, fmt.Sprintf("ren-%d", seq), string(id))
		assert.True(t, domain.ValidRoomID(string(id)))
	}
}

func TestNewRoomTrimsAndValidates(t *testing.T) {
	at := time.Unix(1700000000, 0)
	r, err := domain.NewRoom("ren-1", "  late night  ", "  quiet  ", "alice", at)
	require.NoError(t, err)
	assert.Equal(t, "late night", r.Name)
	assert.Equal(t, "quiet", r.Description)
	assert.Equal(t, domain.RoomActive, r.State)
	assert.Nil(t, r.DeletedAt)
	assert.Nil(t, r.DisbandAt)
	assert.Zero(t, r.MemberCount)

	_, err = domain.NewRoom("ren-2", " \t\n", "", "alice", at)
	assert.ErrorIs(t, err, domain.ErrRoomNameEmpty)

	_, err = domain.NewRoom("ren-3", strings.Repeat("x", domain.MaxRoomNameLen+1), "", "alice", at)
	assert.ErrorIs(t, err, domain.ErrRoomNameTooLong)

	_, err = domain.NewRoom("ren-4", "ok", "", "  ", at)
	assert.ErrorIs(t, err, domain.ErrAliasEmpty)
}

func TestNewRoomAllowsEmptyDescription(t *testing.T) {
	r, err := domain.NewRoom("ren-1", "name", "", "bob", time.Now())
	require.NoError(t, err)
	assert.Empty(t, r.Description)
}

func TestCodeOf(t *testing.T) {
	cases := map[error]domain.Code{
		domain.ErrRoomNotFound:                          domain.CodeRoomNotFound,
		fmt.Errorf("lookup: %w", domain.ErrRoomNotFound): domain.CodeRoomNotFound,
		domain.ErrRoomNotActive:                         domain.CodeRoomNotActive,
		domain.ErrNotPresent:                            domain.CodeNotPresent,
		domain.ErrUnauthorized:                          domain.CodeUnauthorized,
		domain.ErrInvalidID:                             domain.CodeInvalidID,
		domain.ErrRoomNameEmpty:                         domain.CodeInvalidName,
		domain.ErrAliasTooLong:                          domain.CodeInvalidAlias,
		domain.ErrRateLimited:                           domain.CodeRateLimited,
		fmt.Errorf("boom"):                              domain.CodeInternal,
	}
	for err, want := range cases {
		assert.Equal(t, want, domain.CodeOf(err), err.Error())
	}
}

func TestRoomIDSeq(t *testing.T) {
	assert.Equal(t, int64(10), domain.RoomID("ren-10").Seq())
	assert.Greater(t, domain.RoomID("ren-10").Seq(), domain.RoomID("ren-9").Seq())
	assert.Zero(t, domain.RoomID("garbage").Seq())
	assert.Zero(t, domain.RoomID("ren-01").Seq())
}

func TestSortRoomsTieBreaksOnID(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rooms := []domain.Room{
		{ID: "ren-9", CreatedAt: at},
		{ID: "ren-10", CreatedAt: at},
		{ID: "ren-2", CreatedAt: at},
	}
	domain.SortRooms(rooms)
	assert.Equal(t, []domain.RoomID{"ren-10", "ren-9", "ren-2"}, roomIDs(rooms))
}

func roomIDs(rooms []domain.Room) []domain.RoomID {
	out := make([]domain.RoomID, len(rooms))
	for i, r := range rooms {
		out[i] = r.ID
	}
	return out
}

func TestErrorForRoundTrips(t *testing.T) {
	for _, err := range []error{domain.ErrRoomNotFound, domain.ErrInvalidID, domain.ErrUnauthorized, domain.ErrRateLimited} {
		assert.ErrorIs(t, domain.ErrorFor(domain.CodeOf(err)), err)
	}
	assert.Nil(t, domain.ErrorFor(domain.CodeInternal))
}
