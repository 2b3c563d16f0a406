package gamerules

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// TicTacToeName is the registry key for the tic-tac-toe rule engine.
const TicTacToeName = "tictactoe"

const (
	tttEmpty  uint8 = 0
	tttCross  uint8 = 1
	tttNaught uint8 = 2
)

// tttState is the decoded form of a tic-tac-toe state blob. Cell values are
// tttEmpty, tttCross or tttNaught; the win flags are mutually exclusive.
// Whose turn it is follows from the nonce: crosses (player 0) move on even
// nonces, naughts (player 1) on odd ones.
type tttState struct {
	Board      [9]uint8 `cbor:"1,keyasint"`
	CrossWins  bool     `cbor:"2,keyasint"`
	NaughtWins bool     `cbor:"3,keyasint"`
}

var tttLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// TicTacToe is the 3x3 rule engine. The move blob is a single byte holding
// the target cell index 0-8.
type TicTacToe struct{}

func init() {
	Register(TicTacToe{})
}

func (TicTacToe) Name() string { return TicTacToeName }

func (TicTacToe) InitialState() []byte {
	b, err := encMode.Marshal(&tttState{})
	if err != nil {
		panic(err)
	}
	return b
}

func (t TicTacToe) IsValidMove(st GameState, player uint8, move []byte) bool {
	_, err := t.apply(st, player, move)
	return err == nil
}

func (t TicTacToe) Transition(st GameState, player uint8, move []byte) (GameState, error) {
	next, err := t.apply(st, player, move)
	if err != nil {
		return GameState{}, err
	}
	data, err := encMode.Marshal(next)
	if err != nil {
		return GameState{}, fmt.Errorf("encode state: %w", err)
	}
	return GameState{GameID: st.GameID, Nonce: st.Nonce + 1, Data: data}, nil
}

func (TicTacToe) Outcome(data []byte) (Outcome, error) {
	var s tttState
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Outcome{}, fmt.Errorf("decode state: %w", err)
	}
	switch {
	case s.CrossWins:
		return Outcome{Terminal: true, Winner: 0}, nil
	case s.NaughtWins:
		return Outcome{Terminal: true, Winner: 1}, nil
	}
	for _, c := range s.Board {
		if c == tttEmpty {
			return Outcome{}, nil
		}
	}
	return Outcome{Terminal: true, Draw: true}, nil
}

// apply validates and applies a move in one pass, returning the successor
// state without encoding it.
func (TicTacToe) apply(st GameState, player uint8, move []byte) (*tttState, error) {
	var s tttState
	if err := cbor.Unmarshal(st.Data, &s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if player > 1 {
		return nil, fmt.Errorf("player index %d out of range", player)
	}
	if s.CrossWins || s.NaughtWins {
		return nil, fmt.Errorf("game already won")
	}
	// Crosses move on even nonces, naughts on odd.
	if uint8(st.Nonce%2) != player {
		return nil, fmt.Errorf("not player %d's turn at nonce %d", player, st.Nonce)
	}
	if len(move) != 1 {
		return nil, fmt.Errorf("move must be a single cell byte, got %d bytes", len(move))
	}
	cell := move[0]
	if cell > 8 {
		return nil, fmt.Errorf("cell %d out of range", cell)
	}
	if s.Board[cell] != tttEmpty {
		return nil, fmt.Errorf("cell %d occupied", cell)
	}

	mark := tttCross
	if player == 1 {
		mark = tttNaught
	}
	s.Board[cell] = mark

	for _, line := range tttLines {
		if s.Board[line[0]] == mark && s.Board[line[1]] == mark && s.Board[line[2]] == mark {
			if player == 0 {
				s.CrossWins = true
			} else {
				s.NaughtWins = true
			}
			break
		}
	}
	return &s, nil
}
