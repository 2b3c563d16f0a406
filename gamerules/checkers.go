package gamerules

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CheckersName is the registry key for the checkers rule engine.
const CheckersName = "checkers"

// Piece encoding: low two bits carry the color, bit 2 marks a king.
const (
	cellEmpty  uint8 = 0
	pieceWhite uint8 = 1
	pieceRed   uint8 = 2
	kingBit    uint8 = 4

	colorMask uint8 = 3
)

// checkersState is the decoded form of a checkers state blob. Only the 32
// dark squares are represented; cell 0 is the top-left dark square, rows run
// top to bottom. White (player 0) starts on rows 0-2 and advances down the
// board; red (player 1) starts on rows 5-7, advances up, and moves first.
// Winner is 0 while the game runs, otherwise pieceWhite or pieceRed.
type checkersState struct {
	Cells    [32]uint8 `cbor:"1,keyasint"`
	RedMoves bool      `cbor:"2,keyasint"`
	Winner   uint8     `cbor:"3,keyasint"`
}

// checkersMove is one ply: a single diagonal advance or a single jump.
// Multi-jump chains are expressed as consecutive jump moves by the same
// player; Pass=false keeps the turn for the next link of the chain and is
// only legal while the landed piece has another capture available.
type checkersMove struct {
	From uint8 `cbor:"1,keyasint"`
	To   uint8 `cbor:"2,keyasint"`
	Jump bool  `cbor:"3,keyasint"`
	Pass bool  `cbor:"4,keyasint"`
}

// Checkers implements English draughts on the 32 dark squares, with two
// deliberate policy choices: a player with an available capture is NOT forced
// to take it, but a capture chain once started must run until the piece has
// no further jumps (or promotes, which always ends the turn). The winner is
// the side that removes all opposing pieces; stalemate is not detected.
type Checkers struct{}

func init() {
	Register(Checkers{})
}

func (Checkers) Name() string { return CheckersName }

func (Checkers) InitialState() []byte {
	var s checkersState
	for i := 0; i < 12; i++ {
		s.Cells[i] = pieceWhite
	}
	for i := 20; i < 32; i++ {
		s.Cells[i] = pieceRed
	}
	s.RedMoves = true
	b, err := encMode.Marshal(&s)
	if err != nil {
		panic(err)
	}
	return b
}

func (c Checkers) IsValidMove(st GameState, player uint8, move []byte) bool {
	_, err := c.apply(st, player, move)
	return err == nil
}

func (c Checkers) Transition(st GameState, player uint8, move []byte) (GameState, error) {
	next, err := c.apply(st, player, move)
	if err != nil {
		return GameState{}, err
	}
	data, err := encMode.Marshal(next)
	if err != nil {
		return GameState{}, fmt.Errorf("encode state: %w", err)
	}
	return GameState{GameID: st.GameID, Nonce: st.Nonce + 1, Data: data}, nil
}

func (Checkers) Outcome(data []byte) (Outcome, error) {
	var s checkersState
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Outcome{}, fmt.Errorf("decode state: %w", err)
	}
	switch s.Winner {
	case 0:
		return Outcome{}, nil
	case pieceWhite:
		return Outcome{Terminal: true, Winner: 0}, nil
	case pieceRed:
		return Outcome{Terminal: true, Winner: 1}, nil
	}
	return Outcome{}, fmt.Errorf("corrupt winner value %d", s.Winner)
}

// Board geometry. Dark squares live where row+col is odd on the 8x8 board;
// cell indices pack four dark squares per row.

func rowCol(cell uint8) (int, int) {
	row := int(cell) / 4
	col := 2*(int(cell)%4) + 1 - row%2
	return row, col
}

func cellAt(row, col int) (uint8, bool) {
	if row < 0 || row > 7 || col < 0 || col > 7 || (row+col)%2 != 1 {
		return 0, false
	}
	return uint8(row*4 + col/2), true
}

func colorOf(v uint8) uint8 { return v & colorMask }
func isKing(v uint8) bool   { return v&kingBit != 0 }

// forward reports whether a row delta is a legal direction for a piece:
// kings move both ways, white men down the board, red men up.
func forward(color uint8, king bool, dRow int) bool {
	if king {
		return true
	}
	if color == pieceWhite {
		return dRow > 0
	}
	return dRow < 0
}

// canJumpFrom reports whether the piece sitting on cell has any capture
// available.
func canJumpFrom(cells *[32]uint8, cell uint8) bool {
	v := cells[cell]
	color := colorOf(v)
	row, col := rowCol(cell)
	for _, dRow := range []int{-2, 2} {
		if !forward(color, isKing(v), dRow) {
			continue
		}
		for _, dCol := range []int{-2, 2} {
			to, ok := cellAt(row+dRow, col+dCol)
			if !ok || cells[to] != cellEmpty {
				continue
			}
			mid, ok := cellAt(row+dRow/2, col+dCol/2)
			if !ok {
				continue
			}
			if mv := cells[mid]; mv != cellEmpty && colorOf(mv) != color {
				return true
			}
		}
	}
	return false
}

// apply validates and applies one ply, returning the successor state.
func (Checkers) apply(st GameState, player uint8, move []byte) (*checkersState, error) {
	var s checkersState
	if err := cbor.Unmarshal(st.Data, &s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if player > 1 {
		return nil, fmt.Errorf("player index %d out of range", player)
	}
	if s.Winner != 0 {
		return nil, fmt.Errorf("game already won")
	}
	if s.RedMoves != (player == 1) {
		return nil, fmt.Errorf("not player %d's turn", player)
	}

	var m checkersMove
	if err := cbor.Unmarshal(move, &m); err != nil {
		return nil, fmt.Errorf("decode move: %w", err)
	}
	if m.From > 31 || m.To > 31 {
		return nil, fmt.Errorf("cell out of range: %d -> %d", m.From, m.To)
	}

	mover := pieceWhite
	if player == 1 {
		mover = pieceRed
	}
	piece := s.Cells[m.From]
	if colorOf(piece) != mover {
		return nil, fmt.Errorf("cell %d does not hold a piece of player %d", m.From, player)
	}
	if s.Cells[m.To] != cellEmpty {
		return nil, fmt.Errorf("cell %d occupied", m.To)
	}

	fRow, fCol := rowCol(m.From)
	tRow, tCol := rowCol(m.To)
	dRow, dCol := tRow-fRow, tCol-fCol
	king := isKing(piece)

	if !forward(colorOf(piece), king, dRow) {
		return nil, fmt.Errorf("men cannot move backwards: %d -> %d", m.From, m.To)
	}

	if m.Jump {
		if abs(dRow) != 2 || abs(dCol) != 2 {
			return nil, fmt.Errorf("jump must span two diagonals: %d -> %d", m.From, m.To)
		}
		mid, ok := cellAt(fRow+dRow/2, fCol+dCol/2)
		if !ok {
			return nil, fmt.Errorf("no square between %d and %d", m.From, m.To)
		}
		if mv := s.Cells[mid]; mv == cellEmpty || colorOf(mv) == mover {
			return nil, fmt.Errorf("nothing to capture between %d and %d", m.From, m.To)
		}
		s.Cells[mid] = cellEmpty
	} else {
		if abs(dRow) != 1 || abs(dCol) != 1 {
			return nil, fmt.Errorf("advance must span one diagonal: %d -> %d", m.From, m.To)
		}
		if !m.Pass {
			return nil, fmt.Errorf("a plain advance always ends the turn")
		}
	}

	s.Cells[m.From] = cellEmpty
	promoted := !king && backRank(mover, tRow)
	if promoted {
		piece |= kingBit
	}
	s.Cells[m.To] = piece

	if m.Jump {
		// A chain keeps the turn exactly while another capture exists;
		// promotion ends the turn unconditionally.
		canAgain := !promoted && canJumpFrom(&s.Cells, m.To)
		if m.Pass == canAgain {
			if canAgain {
				return nil, fmt.Errorf("capture chain from %d must continue", m.To)
			}
			return nil, fmt.Errorf("no further capture from %d, turn must pass", m.To)
		}
	}

	if m.Pass {
		s.RedMoves = !s.RedMoves
	}

	opponent := pieceRed
	if mover == pieceRed {
		opponent = pieceWhite
	}
	remaining := 0
	for _, v := range s.Cells {
		if colorOf(v) == opponent {
			remaining++
		}
	}
	if remaining == 0 {
		s.Winner = mover
	}
	return &s, nil
}

func backRank(color uint8, row int) bool {
	if color == pieceWhite {
		return row == 7
	}
	return row == 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
