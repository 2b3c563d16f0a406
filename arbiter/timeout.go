package arbiter

import (
	"bytes"
	"context"
	"fmt"

	"github.com/decred/dcrd/dcrutil/v4"

	"github.com/vkarov/stateduel"
)

// InitTimeout opens a stall claim: the caller proves the game reached a
// position with a verified two-move chain and posts a bond asserting the
// opponent has stopped responding. The opponent then has until the deadline
// to produce the next move via ResolveTimeout.
func (s *Server) InitTimeout(ctx context.Context, caller stateduel.PlayerID, chain [2]*stateduel.SignedMove, bond dcrutil.Amount) error {
	s.Lock()
	defer s.Unlock()

	sess, ok := s.sessions[chain[0].Move.GameID]
	if !ok {
		return ErrUnknownGame
	}
	if sess.Finished {
		return ErrGameFinished
	}
	if !sess.Started {
		return ErrGameNotStarted
	}
	if _, ok := sess.playerIndexOf(caller); !ok {
		return ErrNotParticipant
	}
	if sess.Timeout != nil {
		return ErrTimeoutAlreadyOpen
	}
	if bond != dcrutil.Amount(s.cfg.DefaultTimeoutStake) {
		return fmt.Errorf("%w: want %s, got %s", ErrBondMismatch, dcrutil.Amount(s.cfg.DefaultTimeoutStake), bond)
	}
	if chain[1].Move.GameID != sess.ID {
		return fmt.Errorf("%w: chain spans games %d and %d", ErrNonceDiscontinuity, sess.ID, chain[1].Move.GameID)
	}

	anchorIdx, err := verifySignedMove(sess, chain[0], true)
	if err != nil {
		return err
	}
	lastIdx, err := verifySignedMove(sess, chain[1], false)
	if err != nil {
		return err
	}
	if chain[1].Move.Nonce != chain[0].Move.Nonce+1 {
		return fmt.Errorf("%w: nonces %d then %d", ErrNonceDiscontinuity, chain[0].Move.Nonce, chain[1].Move.Nonce)
	}
	if !bytes.Equal(chain[1].Move.OldState, chain[0].Move.NewState) {
		return fmt.Errorf("%w: second move does not extend the anchored state", ErrNonceDiscontinuity)
	}
	if err := moveSelfConsistent(sess.Rules, &chain[0].Move, anchorIdx); err != nil {
		return err
	}
	if err := moveSelfConsistent(sess.Rules, &chain[1].Move, lastIdx); err != nil {
		return err
	}

	sess.Timeout = &TimeoutRecord{
		Nonce:     chain[1].Move.Nonce,
		LastState: chain[1].Move.NewState,
		Initiator: caller,
		Deadline:  s.now().Add(s.cfg.Timeout),
		Bond:      bond,
	}
	s.persist(ctx, sess)

	s.log.Infof("Game %d: timeout opened by %s at nonce %d, deadline %s",
		sess.ID, caller, sess.Timeout.Nonce, sess.Timeout.Deadline.Format("15:04:05"))
	return nil
}

// ResolveTimeout answers an open stall claim with the demanded next move.
// Only the accused player may resolve, by producing a signed move extending
// the recorded position before the deadline. On success the claim is cleared,
// the bond goes to the resolver, and the game continues.
func (s *Server) ResolveTimeout(ctx context.Context, caller stateduel.PlayerID, sm *stateduel.SignedMove) error {
	s.Lock()
	defer s.Unlock()

	sess, ok := s.sessions[sm.Move.GameID]
	if !ok {
		return ErrUnknownGame
	}
	if sess.Finished {
		return ErrGameFinished
	}
	rec := sess.Timeout
	if rec == nil {
		return ErrNoOpenTimeout
	}
	callerIdx, ok := sess.playerIndexOf(caller)
	if !ok {
		return ErrNotParticipant
	}
	if caller == rec.Initiator {
		return fmt.Errorf("%w: initiator cannot resolve own claim", ErrNotParticipant)
	}
	if !s.now().Before(rec.Deadline) {
		return ErrDeadlinePassed
	}
	if sm.Move.Player != caller {
		return fmt.Errorf("%w: move claims player %s", ErrUnauthorizedSigner, sm.Move.Player)
	}
	if sm.Move.Nonce != rec.Nonce+1 {
		return fmt.Errorf("%w: want nonce %d, got %d", ErrNonceDiscontinuity, rec.Nonce+1, sm.Move.Nonce)
	}
	if !bytes.Equal(sm.Move.OldState, rec.LastState) {
		return fmt.Errorf("%w: move does not extend the claimed position", ErrNonceDiscontinuity)
	}

	if _, err := verifySignedMove(sess, sm, false); err != nil {
		return err
	}
	if err := moveSelfConsistent(sess.Rules, &sm.Move, callerIdx); err != nil {
		return err
	}

	bond := rec.Bond
	if err := s.banker.Disburse(ctx, sess.ID, []Payment{{To: caller, Amount: bond}}); err != nil {
		return fmt.Errorf("disburse game %d: %w", sess.ID, err)
	}
	sess.Timeout = nil
	s.persist(ctx, sess)

	s.log.Infof("Game %d: timeout resolved by %s at nonce %d, bond %s forfeited by claimant",
		sess.ID, caller, sm.Move.Nonce, bond)
	return nil
}

// FinalizeTimeout settles an expired stall claim: the accused never moved,
// so the initiator wins the pot and recovers the bond. Anyone may trigger
// finalization once the deadline has passed.
func (s *Server) FinalizeTimeout(ctx context.Context, gameID uint64) error {
	s.Lock()
	defer s.Unlock()

	sess, ok := s.sessions[gameID]
	if !ok {
		return ErrUnknownGame
	}
	if sess.Finished {
		return ErrGameFinished
	}
	rec := sess.Timeout
	if rec == nil {
		return ErrNoOpenTimeout
	}
	if s.now().Before(rec.Deadline) {
		return ErrDeadlineNotReached
	}

	winner, ok := sess.playerIndexOf(rec.Initiator)
	if !ok {
		return ErrNotParticipant
	}
	if err := s.finish(ctx, sess, winner, false); err != nil {
		return err
	}
	s.log.Infof("Game %d: timeout finalized, %s wins by abandonment", gameID, rec.Initiator)
	return nil
}
