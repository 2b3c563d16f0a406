package gamerules

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeCheckersMove(t *testing.T, from, to uint8, jump, pass bool) []byte {
	t.Helper()
	b, err := encMode.Marshal(&checkersMove{From: from, To: to, Jump: jump, Pass: pass})
	require.NoError(t, err)
	return b
}

func encodeCheckersState(t *testing.T, s *checkersState) []byte {
	t.Helper()
	b, err := encMode.Marshal(s)
	require.NoError(t, err)
	return b
}

func decodeCheckersState(t *testing.T, data []byte) *checkersState {
	t.Helper()
	var s checkersState
	require.NoError(t, cbor.Unmarshal(data, &s))
	return &s
}

func TestCheckersRegistered(t *testing.T) {
	r, err := Lookup(CheckersName)
	require.NoError(t, err)
	assert.Equal(t, CheckersName, r.Name())
}

func TestCheckersInitialLayout(t *testing.T) {
	var ck Checkers
	s := decodeCheckersState(t, ck.InitialState())
	for i := 0; i < 12; i++ {
		assert.Equal(t, pieceWhite, s.Cells[i], "cell %d", i)
	}
	for i := 12; i < 20; i++ {
		assert.Equal(t, cellEmpty, s.Cells[i], "cell %d", i)
	}
	for i := 20; i < 32; i++ {
		assert.Equal(t, pieceRed, s.Cells[i], "cell %d", i)
	}
	assert.True(t, s.RedMoves)

	out, err := ck.Outcome(ck.InitialState())
	require.NoError(t, err)
	assert.False(t, out.Terminal)
}

func TestCheckersRedOpens(t *testing.T) {
	var ck Checkers
	st := GameState{Data: ck.InitialState()}

	// White may not open.
	assert.False(t, ck.IsValidMove(st, 0, encodeCheckersMove(t, 8, 12, false, true)))
	// Red advances 20 -> 16.
	assert.True(t, ck.IsValidMove(st, 1, encodeCheckersMove(t, 20, 16, false, true)))
}

func TestCheckersPlainAdvanceEndsTurn(t *testing.T) {
	var ck Checkers
	st := GameState{Data: ck.InitialState()}

	// A plain advance with the keep-turn flag is never legal.
	assert.False(t, ck.IsValidMove(st, 1, encodeCheckersMove(t, 20, 16, false, false)))

	next, err := ck.Transition(st, 1, encodeCheckersMove(t, 20, 16, false, true))
	require.NoError(t, err)
	s := decodeCheckersState(t, next.Data)
	assert.False(t, s.RedMoves)
	assert.Equal(t, cellEmpty, s.Cells[20])
	assert.Equal(t, pieceRed, s.Cells[16])
}

func TestCheckersMenCannotRetreat(t *testing.T) {
	var ck Checkers
	st := GameState{Data: ck.InitialState()}

	st, err := ck.Transition(st, 1, encodeCheckersMove(t, 20, 16, false, true))
	require.NoError(t, err)
	st, err = ck.Transition(st, 0, encodeCheckersMove(t, 8, 12, false, true))
	require.NoError(t, err)

	// Red man at 16 may not move back toward its own rank.
	assert.False(t, ck.IsValidMove(st, 1, encodeCheckersMove(t, 16, 20, false, true)))
}

func TestCheckersSingleJump(t *testing.T) {
	var ck Checkers
	st := GameState{Data: ck.InitialState()}

	st, err := ck.Transition(st, 1, encodeCheckersMove(t, 21, 17, false, true))
	require.NoError(t, err)
	st, err = ck.Transition(st, 0, encodeCheckersMove(t, 8, 13, false, true))
	require.NoError(t, err)

	// Red at 17 jumps the white man on 13, landing on the vacated 8.
	// No further capture exists, so the turn must pass.
	assert.False(t, ck.IsValidMove(st, 1, encodeCheckersMove(t, 17, 8, true, false)))
	st, err = ck.Transition(st, 1, encodeCheckersMove(t, 17, 8, true, true))
	require.NoError(t, err)

	s := decodeCheckersState(t, st.Data)
	assert.Equal(t, pieceRed, s.Cells[8])
	assert.Equal(t, cellEmpty, s.Cells[13])
	assert.Equal(t, cellEmpty, s.Cells[17])
	assert.False(t, s.RedMoves)
}

func TestCheckersCaptureChain(t *testing.T) {
	var ck Checkers

	// Red man on 25 with a double capture: over 21 to 16, then over 13
	// to 9. Capturing both whites empties the board and wins the game.
	base := checkersState{RedMoves: true}
	base.Cells[25] = pieceRed
	base.Cells[21] = pieceWhite
	base.Cells[13] = pieceWhite
	st := GameState{Data: encodeCheckersState(t, &base)}

	// Ending the turn mid-chain is illegal.
	assert.False(t, ck.IsValidMove(st, 1, encodeCheckersMove(t, 25, 16, true, true)))

	st, err := ck.Transition(st, 1, encodeCheckersMove(t, 25, 16, true, false))
	require.NoError(t, err)
	s := decodeCheckersState(t, st.Data)
	assert.Equal(t, cellEmpty, s.Cells[21])
	// The turn is still red's.
	assert.True(t, s.RedMoves)
	assert.False(t, ck.IsValidMove(st, 0, encodeCheckersMove(t, 13, 17, false, true)))

	st, err = ck.Transition(st, 1, encodeCheckersMove(t, 16, 9, true, true))
	require.NoError(t, err)

	out, err := ck.Outcome(st.Data)
	require.NoError(t, err)
	assert.True(t, out.Terminal)
	assert.Equal(t, uint8(1), out.Winner)
}

func TestCheckersCaptureIsOptional(t *testing.T) {
	var ck Checkers

	// Red could jump 25 over 21, but advancing the man on 22 instead is
	// still legal.
	base := checkersState{RedMoves: true}
	base.Cells[25] = pieceRed
	base.Cells[22] = pieceRed
	base.Cells[21] = pieceWhite
	st := GameState{Data: encodeCheckersState(t, &base)}

	assert.True(t, ck.IsValidMove(st, 1, encodeCheckersMove(t, 22, 18, false, true)))
}

func TestCheckersPromotionEndsTurn(t *testing.T) {
	var ck Checkers

	// White man on 21 jumps the red on 25 and lands on the back rank.
	// Promotion ends the turn even though the new king could jump the
	// red on 26.
	base := checkersState{}
	base.Cells[21] = pieceWhite
	base.Cells[25] = pieceRed
	base.Cells[26] = pieceRed
	st := GameState{Data: encodeCheckersState(t, &base)}

	assert.False(t, ck.IsValidMove(st, 0, encodeCheckersMove(t, 21, 30, true, false)))
	st, err := ck.Transition(st, 0, encodeCheckersMove(t, 21, 30, true, true))
	require.NoError(t, err)

	s := decodeCheckersState(t, st.Data)
	assert.Equal(t, pieceWhite|kingBit, s.Cells[30])
	assert.Equal(t, cellEmpty, s.Cells[25])
	assert.True(t, s.RedMoves)
}

func TestCheckersKingMovesBothWays(t *testing.T) {
	var ck Checkers

	base := checkersState{}
	base.Cells[17] = pieceWhite | kingBit
	base.Cells[31] = pieceRed
	st := GameState{Data: encodeCheckersState(t, &base)}

	// Forward and backward diagonals are both open to a king.
	assert.True(t, ck.IsValidMove(st, 0, encodeCheckersMove(t, 17, 21, false, true)))
	assert.True(t, ck.IsValidMove(st, 0, encodeCheckersMove(t, 17, 13, false, true)))
}

func TestCheckersRejectsMalformedMoves(t *testing.T) {
	var ck Checkers
	st := GameState{Data: ck.InitialState()}

	tests := []struct {
		name string
		move []byte
	}{
		{"garbage blob", []byte{0xff, 0x00}},
		{"cell out of range", encodeCheckersMove(t, 20, 40, false, true)},
		{"empty source", encodeCheckersMove(t, 16, 12, false, true)},
		{"occupied target", encodeCheckersMove(t, 24, 20, false, true)},
		{"non-diagonal span", encodeCheckersMove(t, 20, 12, false, true)},
		{"jump without victim", encodeCheckersMove(t, 20, 13, true, true)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, ck.IsValidMove(st, 1, tc.move))
		})
	}
}
