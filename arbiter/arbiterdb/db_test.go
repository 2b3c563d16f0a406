package arbiterdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(id uint64) *SessionRecord {
	return &SessionRecord{
		ID:          id,
		Rules:       "tictactoe",
		StakeAtoms:  500,
		EscrowAtoms: 1000,
		Started:     true,
		Players: [2]PlayerRecord{
			{Addr: []byte{0x02, 0x01}},
			{Addr: []byte{0x03, 0x02}, SessionKey: []byte{0x02, 0x07}},
		},
		Timeout: &TimeoutRecord{
			Nonce:     3,
			LastState: []byte{0xaa},
			Initiator: []byte{0x03, 0x02},
			Deadline:  time.Unix(1700000000, 0).UTC(),
			BondAtoms: 5000,
		},
	}
}

func testStoreRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.FetchSession(ctx, 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	id1, err := s.NextGameID(ctx)
	require.NoError(t, err)
	id2, err := s.NextGameID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id1+1, id2)

	rec := testRecord(id1)
	require.NoError(t, s.SaveSession(ctx, rec))

	got, err := s.FetchSession(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Rules, got.Rules)
	assert.Equal(t, rec.Players, got.Players)
	assert.Equal(t, rec.StakeAtoms, got.StakeAtoms)
	assert.Equal(t, rec.EscrowAtoms, got.EscrowAtoms)
	assert.True(t, got.Started)
	require.NotNil(t, got.Timeout)
	assert.Equal(t, rec.Timeout.Nonce, got.Timeout.Nonce)
	assert.Equal(t, rec.Timeout.LastState, got.Timeout.LastState)
	assert.Equal(t, rec.Timeout.BondAtoms, got.Timeout.BondAtoms)
	assert.True(t, rec.Timeout.Deadline.Equal(got.Timeout.Deadline))

	// Saving again overwrites.
	rec.Finished = true
	rec.Timeout = nil
	require.NoError(t, s.SaveSession(ctx, rec))
	got, err = s.FetchSession(ctx, id1)
	require.NoError(t, err)
	assert.True(t, got.Finished)
	assert.Nil(t, got.Timeout)

	all, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryDBRoundTrip(t *testing.T) {
	db := NewMemoryDB()
	defer db.Close()
	testStoreRoundTrip(t, db)
}

func TestBoltDBRoundTrip(t *testing.T) {
	db, err := NewBoltDB(filepath.Join(t.TempDir(), "arbiter.db"))
	require.NoError(t, err)
	defer db.Close()
	testStoreRoundTrip(t, db)
}

func TestBoltDBCounterSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbiter.db")
	db, err := NewBoltDB(path)
	require.NoError(t, err)

	ctx := context.Background()
	id1, err := db.NextGameID(ctx)
	require.NoError(t, err)
	require.NoError(t, db.SaveSession(ctx, testRecord(id1)))
	require.NoError(t, db.Close())

	db, err = NewBoltDB(path)
	require.NoError(t, err)
	defer db.Close()

	id2, err := db.NextGameID(ctx)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	got, err := db.FetchSession(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, id1, got.ID)
}
