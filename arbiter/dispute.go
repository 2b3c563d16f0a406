package arbiter

import (
	"bytes"
	"context"
	"fmt"

	"github.com/vkarov/stateduel"
	"github.com/vkarov/stateduel/gamerules"
)

// verifySignedMove checks that Sigs[0] recovers to an identity authorized
// for the claimed mover and, when requireBoth is set, that Sigs[1] recovers
// to an identity authorized for the opposing slot. It returns the mover's
// slot index.
func verifySignedMove(sess *GameSession, sm *stateduel.SignedMove, requireBoth bool) (uint8, error) {
	moverIdx, ok := sess.playerIndexOf(sm.Move.Player)
	if !ok {
		return 0, ErrNotParticipant
	}

	want := 1
	if requireBoth {
		want = 2
	}
	if len(sm.Sigs) < want {
		return 0, fmt.Errorf("%w: have %d signatures, need %d", ErrInvalidSignature, len(sm.Sigs), want)
	}

	signer, err := stateduel.RecoverMoveSigner(&sm.Move, sm.Sigs[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !sess.Players[moverIdx].authorized(signer) {
		return 0, fmt.Errorf("%w: mover signature from %s", ErrUnauthorizedSigner, signer)
	}

	if requireBoth {
		signer, err := stateduel.RecoverMoveSigner(&sm.Move, sm.Sigs[1])
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		if !sess.Players[1-moverIdx].authorized(signer) {
			return 0, fmt.Errorf("%w: counterparty signature from %s", ErrUnauthorizedSigner, signer)
		}
	}
	return moverIdx, nil
}

// moveSelfConsistent replays a move through the rules and checks the claimed
// transition. A nonce-0 move must chain from the rules' initial position.
func moveSelfConsistent(rules gamerules.Rules, mv *stateduel.Move, moverIdx uint8) error {
	if mv.Nonce == 0 && !bytes.Equal(mv.OldState, rules.InitialState()) {
		return fmt.Errorf("%w: first move does not start from initial position", ErrNonceDiscontinuity)
	}
	st := gamerules.GameState{GameID: mv.GameID, Nonce: mv.Nonce, Data: mv.OldState}
	if !rules.IsValidMove(st, moverIdx, mv.Data) {
		return ErrIllegalMove
	}
	next, err := rules.Transition(st, moverIdx, mv.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	if !bytes.Equal(next.Data, mv.NewState) {
		return fmt.Errorf("%w: claimed successor state does not match replay", ErrIllegalMove)
	}
	return nil
}

// IsValidGameMove reports whether a move is legal under a session's rules,
// without any signature checks. Purely advisory, no state changes.
func (s *Server) IsValidGameMove(gameID uint64, mv *stateduel.Move) error {
	s.RLock()
	defer s.RUnlock()
	sess, ok := s.sessions[gameID]
	if !ok {
		return ErrUnknownGame
	}
	moverIdx, ok := sess.playerIndexOf(mv.Player)
	if !ok {
		return ErrNotParticipant
	}
	return moveSelfConsistent(sess.Rules, mv, moverIdx)
}

// IsValidSignedMove additionally verifies the mover's signature. Advisory
// like IsValidGameMove.
func (s *Server) IsValidSignedMove(gameID uint64, sm *stateduel.SignedMove) error {
	s.RLock()
	defer s.RUnlock()
	sess, ok := s.sessions[gameID]
	if !ok {
		return ErrUnknownGame
	}
	moverIdx, err := verifySignedMove(sess, sm, false)
	if err != nil {
		return err
	}
	return moveSelfConsistent(sess.Rules, &sm.Move, moverIdx)
}

// DisputeMove accuses the counterparty of an illegal but authentically
// signed move. When the accusation holds, the game ends immediately with the
// accuser taking the full pot. An accusation against a legal move fails with
// ErrInvalidDispute and changes nothing.
func (s *Server) DisputeMove(ctx context.Context, caller stateduel.PlayerID, sm *stateduel.SignedMove) error {
	s.Lock()
	defer s.Unlock()

	sess, ok := s.sessions[sm.Move.GameID]
	if !ok {
		return ErrUnknownGame
	}
	if sess.Finished {
		return ErrGameFinished
	}
	if !sess.Started {
		return ErrGameNotStarted
	}
	callerIdx, ok := sess.playerIndexOf(caller)
	if !ok {
		return ErrNotParticipant
	}

	moverIdx, err := verifySignedMove(sess, sm, false)
	if err != nil {
		return err
	}
	if moverIdx == callerIdx {
		return fmt.Errorf("%w: cannot dispute own move", ErrInvalidDispute)
	}

	if err := moveSelfConsistent(sess.Rules, &sm.Move, moverIdx); err == nil {
		// The move replays cleanly. The accusation is baseless and the
		// accused must not be punished for it.
		return ErrInvalidDispute
	}

	if err := s.finish(ctx, sess, callerIdx, false); err != nil {
		return err
	}
	s.log.Infof("Game %d: dispute by %s upheld against %s", sess.ID, caller, sm.Move.Player)
	return nil
}

// FinishGame settles a finished game from a two-link chain of signed moves:
// chain[0] countersigned by both players anchors the position, chain[1]
// signed by its mover must extend it to a terminal state. Pot distribution
// follows the rules' verdict on the final state.
func (s *Server) FinishGame(ctx context.Context, caller stateduel.PlayerID, chain [2]*stateduel.SignedMove) error {
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

	outcome, err := sess.Rules.Outcome(chain[1].Move.NewState)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	if !outcome.Terminal {
		return ErrNotTerminal
	}

	if err := s.finish(ctx, sess, outcome.Winner, outcome.Draw); err != nil {
		return err
	}
	if outcome.Draw {
		s.log.Infof("Game %d finished as a draw at nonce %d", sess.ID, chain[1].Move.Nonce)
	} else {
		s.log.Infof("Game %d finished, winner %s", sess.ID, sess.Players[outcome.Winner].Addr)
	}
	return nil
}
