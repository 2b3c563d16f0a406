package arbiter

import (
	"context"

	"github.com/decred/dcrd/dcrutil/v4"

	"github.com/vkarov/stateduel"
)

// Payment is one transfer out of a session's escrow.
type Payment struct {
	To     stateduel.PlayerID
	Amount dcrutil.Amount
}

// Banker executes the value transfers the arbiter decides on. A Disburse
// call must be atomic: either every payment lands or none does, so every
// terminal path conserves the escrowed total exactly.
type Banker interface {
	Disburse(ctx context.Context, gameID uint64, payments []Payment) error
}

// settlementPayments computes the stake disbursement for a finishing
// session: winner takes the pot, a draw splits it evenly. Stakes are matched
// at acceptance so the pot is even; the guard hands a stray odd atom to
// player 0 rather than burning it.
func settlementPayments(s *GameSession, winner uint8, draw bool) []Payment {
	if s.Escrow == 0 {
		return nil
	}
	if draw {
		half := s.Escrow / 2
		return []Payment{
			{To: s.Players[0].Addr, Amount: s.Escrow - half},
			{To: s.Players[1].Addr, Amount: half},
		}
	}
	return []Payment{{To: s.Players[winner].Addr, Amount: s.Escrow}}
}

// bondRefund returns the payment releasing an open timeout bond back to its
// initiator, or nil when no claim is open. Any settlement path that finishes
// a session with a live claim must include it so no value is stranded.
func bondRefund(s *GameSession) []Payment {
	if s.Timeout == nil || s.Timeout.Bond == 0 {
		return nil
	}
	return []Payment{{To: s.Timeout.Initiator, Amount: s.Timeout.Bond}}
}
