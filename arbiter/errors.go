package arbiter

import "errors"

// Every entry point fails with one of these sentinels (possibly wrapped with
// call-site context) and leaves no partial mutation behind. Nothing here is
// fatal to the arbiter itself; each call is judged independently.
var (
	ErrUnknownGame        = errors.New("unknown game session")
	ErrUnknownRules       = errors.New("unknown rule engine")
	ErrStakeMismatch      = errors.New("stake mismatch")
	ErrGameNotStarted     = errors.New("game not started")
	ErrGameAlreadyStarted = errors.New("game already has two players")
	ErrGameFinished       = errors.New("game already finished")
	ErrNotParticipant     = errors.New("caller is not a participant")
	ErrSelfAccept         = errors.New("proposer cannot accept their own game")

	ErrInvalidSignature   = errors.New("invalid signature")
	ErrUnauthorizedSigner = errors.New("signature does not recover to a registered player key")
	ErrNonceDiscontinuity = errors.New("move does not chain from the agreed state")
	ErrIllegalMove        = errors.New("rule engine rejects the move or transition")
	ErrNotTerminal        = errors.New("claimed final state is not terminal")
	ErrInvalidDispute     = errors.New("disputed move is legal and authentic")

	ErrTimeoutAlreadyOpen = errors.New("timeout already open for session")
	ErrNoOpenTimeout      = errors.New("no open timeout for session")
	ErrDeadlineNotReached = errors.New("timeout deadline not reached")
	ErrDeadlinePassed     = errors.New("timeout deadline already passed")
	ErrBondMismatch       = errors.New("timeout bond does not match required amount")
)
