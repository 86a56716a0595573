// internal/lobby/lobby_store_test.go
package lobby

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltgames/arena/internal/zone"
)

// stubZones is a ZoneSelector with fixed availability.
type stubZones struct {
	sel zone.Selection
	ok  bool
}

func (s *stubZones) SelectZone() (zone.Selection, bool) {
	return s.sel, s.ok
}

func availableZones() *stubZones {
	return &stubZones{
		sel: zone.Selection{ZoneID: "zone-1", TransportURL: "ws://zone-1:9000"},
		ok:  true,
	}
}

func TestCreateLobby(t *testing.T) {
	store := NewStore(availableZones())
	owner := uuid.New()

	l := store.Create(owner, 4)
	require.NotEqual(t, uuid.Nil, l.ID)
	assert.Equal(t, owner, l.OwnerPlayerID)
	assert.Equal(t, []uuid.UUID{owner}, l.PlayerIDs)
	assert.Equal(t, StatusOpen, l.Status)
	assert.Equal(t, 4, l.MaxPlayers)
}

func TestJoinRespectsCapacity(t *testing.T) {
	store := NewStore(availableZones())
	owner, p2, p3 := uuid.New(), uuid.New(), uuid.New()
	l := store.Create(owner, 2)

	joined, err := store.Join(l.ID, p2)
	require.NoError(t, err)
	assert.Len(t, joined.PlayerIDs, 2)
	assert.LessOrEqual(t, len(joined.PlayerIDs), joined.MaxPlayers)

	_, err = store.Join(l.ID, p3)
	assert.ErrorIs(t, err, ErrLobbyFull)
}

func TestJoinIsIdempotent(t *testing.T) {
	store := NewStore(availableZones())
	owner, p2 := uuid.New(), uuid.New()
	l := store.Create(owner, 3)

	_, err := store.Join(l.ID, p2)
	require.NoError(t, err)
	again, err := store.Join(l.ID, p2)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{owner, p2}, again.PlayerIDs, "duplicate join must not add a second entry")
}

func TestJoinUnknownLobby(t *testing.T) {
	store := NewStore(availableZones())
	_, err := store.Join(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestOwnerCannotLeave(t *testing.T) {
	store := NewStore(availableZones())
	owner := uuid.New()
	l := store.Create(owner, 2)

	_, err := store.Leave(l.ID, owner)
	assert.ErrorIs(t, err, ErrOwnerCannotLeave)

	got, ok := store.Get(l.ID)
	require.True(t, ok)
	assert.Contains(t, got.PlayerIDs, owner)
}

func TestLeavePreservesJoinOrder(t *testing.T) {
	store := NewStore(availableZones())
	owner, p2, p3 := uuid.New(), uuid.New(), uuid.New()
	l := store.Create(owner, 3)
	_, err := store.Join(l.ID, p2)
	require.NoError(t, err)
	_, err = store.Join(l.ID, p3)
	require.NoError(t, err)

	left, err := store.Leave(l.ID, p2)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{owner, p3}, left.PlayerIDs)

	_, err = store.Leave(l.ID, p2)
	assert.ErrorIs(t, err, ErrNotInLobby)
}

func TestStartAssignsMatchAndZone(t *testing.T) {
	store := NewStore(availableZones())
	owner, p2 := uuid.New(), uuid.New()
	l := store.Create(owner, 2)
	_, err := store.Join(l.ID, p2)
	require.NoError(t, err)

	started, err := store.Start(l.ID, p2) // any member may start
	require.NoError(t, err)
	assert.Equal(t, StatusStarted, started.Status)
	assert.NotEqual(t, uuid.Nil, started.MatchID)
	assert.Equal(t, "zone-1", started.ZoneID)
	assert.Equal(t, "ws://zone-1:9000", started.TransportURL)
}

func TestStartRequiresMembership(t *testing.T) {
	store := NewStore(availableZones())
	l := store.Create(uuid.New(), 2)

	_, err := store.Start(l.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotInLobby)
}

func TestStartFailsWithoutZone(t *testing.T) {
	store := NewStore(&stubZones{ok: false})
	owner := uuid.New()
	l := store.Create(owner, 2)

	_, err := store.Start(l.ID, owner)
	assert.ErrorIs(t, err, ErrNoZoneAvailable)

	got, ok := store.Get(l.ID)
	require.True(t, ok)
	assert.Equal(t, StatusOpen, got.Status, "failed start must not advance status")
}

func TestAbortStartReopensLobby(t *testing.T) {
	store := NewStore(availableZones())
	owner := uuid.New()
	l := store.Create(owner, 2)
	started, err := store.Start(l.ID, owner)
	require.NoError(t, err)

	reverted, err := store.AbortStart(l.ID, started.MatchID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, reverted.Status)
	assert.Equal(t, uuid.Nil, reverted.MatchID)
	assert.Empty(t, reverted.ZoneID)
	assert.Empty(t, reverted.TransportURL)

	// The reopened lobby accepts joins and starts again with a fresh match.
	_, err = store.Join(l.ID, uuid.New())
	require.NoError(t, err)
	again, err := store.Start(l.ID, owner)
	require.NoError(t, err)
	assert.NotEqual(t, started.MatchID, again.MatchID)
}

func TestAbortStartGuards(t *testing.T) {
	store := NewStore(availableZones())
	owner := uuid.New()
	l := store.Create(owner, 2)

	_, err := store.AbortStart(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrLobbyNotFound)

	_, err = store.AbortStart(l.ID, uuid.New())
	assert.ErrorIs(t, err, ErrLobbyNotStarted, "open lobby has nothing to abort")

	started, err := store.Start(l.ID, owner)
	require.NoError(t, err)
	_, err = store.AbortStart(l.ID, uuid.New())
	assert.ErrorIs(t, err, ErrLobbyNotStarted, "wrong match id must not abort someone else's start")

	_, err = store.Finish(l.ID)
	require.NoError(t, err)
	_, err = store.AbortStart(l.ID, started.MatchID)
	assert.ErrorIs(t, err, ErrLobbyNotStarted, "finished lobby can never reopen")
}

func TestStatusIsMonotonic(t *testing.T) {
	store := NewStore(availableZones())
	owner := uuid.New()
	l := store.Create(owner, 2)

	// Cannot finish an open lobby (would skip "started").
	_, err := store.Finish(l.ID)
	assert.ErrorIs(t, err, ErrLobbyNotStarted)

	_, err = store.Start(l.ID, owner)
	require.NoError(t, err)

	// Started lobbies reject join/leave/start.
	_, err = store.Join(l.ID, uuid.New())
	assert.ErrorIs(t, err, ErrLobbyNotOpen)
	_, err = store.Leave(l.ID, owner)
	assert.ErrorIs(t, err, ErrLobbyNotOpen)
	_, err = store.Start(l.ID, owner)
	assert.ErrorIs(t, err, ErrLobbyNotOpen)

	fin, err := store.Finish(l.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, fin.Status)

	// Finish is idempotent.
	fin2, err := store.Finish(l.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, fin2.Status)
}

func TestFinishByMatch(t *testing.T) {
	store := NewStore(availableZones())
	owner := uuid.New()
	l := store.Create(owner, 2)
	started, err := store.Start(l.ID, owner)
	require.NoError(t, err)

	store.FinishByMatch(started.MatchID)

	got, ok := store.Get(l.ID)
	require.True(t, ok)
	assert.Equal(t, StatusFinished, got.Status)

	// Unknown matches (e.g. solo) are ignored.
	store.FinishByMatch(uuid.New())
}

func TestStartSolo(t *testing.T) {
	store := NewStore(availableZones())
	player := uuid.New()

	m, err := store.StartSolo(player)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, m.MatchID)
	assert.Equal(t, []uuid.UUID{player}, m.PlayerIDs)
	assert.Empty(t, store.List(), "solo matches never materialize a lobby record")
}

func TestStartSoloFailsWithoutZone(t *testing.T) {
	store := NewStore(&stubZones{ok: false})
	_, err := store.StartSolo(uuid.New())
	assert.ErrorIs(t, err, ErrNoZoneAvailable)
}

func TestListIncludesFinishedLobbies(t *testing.T) {
	store := NewStore(availableZones())
	owner := uuid.New()
	l := store.Create(owner, 2)
	_, err := store.Start(l.ID, owner)
	require.NoError(t, err)
	_, err = store.Finish(l.ID)
	require.NoError(t, err)

	assert.Len(t, store.List(), 1, "finished lobbies are retained for audit")
}
