// Package arbiter is the ledger-resident settlement engine for staked
// two-player games. Players exchange signed moves off the ledger; the
// arbiter is called only to finalize an agreed outcome, catch a cheater, or
// adjudicate abandonment, and it is the sole owner of session and escrow
// state. Calls execute sequentially and are all-or-nothing: every check runs
// before the first mutation.
package arbiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/slog"

	"github.com/vkarov/stateduel"
	"github.com/vkarov/stateduel/arbiter/arbiterdb"
	"github.com/vkarov/stateduel/gamerules"
)

// Server arbitrates game sessions. The embedded lock models the ledger's
// sequential execution: no two calls touching session state interleave.
type Server struct {
	sync.RWMutex

	log    slog.Logger
	cfg    *Config
	db     arbiterdb.Store
	banker Banker

	sessions map[uint64]*GameSession

	// now is swappable so tests can cross timeout deadlines.
	now func() time.Time
}

// NewServer restores any stored sessions and returns a ready arbiter.
func NewServer(cfg *Config, db arbiterdb.Store, banker Banker, log slog.Logger) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("nil store")
	}
	if banker == nil {
		return nil, fmt.Errorf("nil banker")
	}
	s := &Server{
		log:      log,
		cfg:      cfg,
		db:       db,
		banker:   banker,
		sessions: make(map[uint64]*GameSession),
		now:      time.Now,
	}
	recs, err := db.ListSessions(context.Background())
	if err != nil {
		return nil, fmt.Errorf("restore sessions: %w", err)
	}
	for _, rec := range recs {
		sess, err := sessionFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("restore session %d: %w", rec.ID, err)
		}
		s.sessions[sess.ID] = sess
	}
	if len(recs) > 0 {
		s.log.Infof("Restored %d game sessions", len(recs))
	}
	return s, nil
}

// persist mirrors a session into the durable store. The in-memory table is
// authoritative for call semantics; store failures are logged, not fatal.
func (s *Server) persist(ctx context.Context, sess *GameSession) {
	if err := s.db.SaveSession(ctx, sess.record()); err != nil {
		s.log.Errorf("Failed to persist session %d: %v", sess.ID, err)
	}
}

// ProposeGame creates a session with the caller as player 0 and escrows the
// offered stake. A zero stake is a friendly game and is allowed.
func (s *Server) ProposeGame(ctx context.Context, caller stateduel.PlayerID, rulesName string, sessionKey *stateduel.PlayerID, stake dcrutil.Amount) (uint64, error) {
	rules, err := gamerules.Lookup(rulesName)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnknownRules, err)
	}
	if stake < 0 {
		return 0, fmt.Errorf("negative stake %d", stake)
	}

	s.Lock()
	defer s.Unlock()

	id, err := s.db.NextGameID(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocate game id: %w", err)
	}
	sess := &GameSession{
		ID:     id,
		Rules:  rules,
		Stake:  stake,
		Escrow: stake,
	}
	sess.Players[0] = PlayerSlot{Addr: caller, SessionKey: copyKey(sessionKey)}
	s.sessions[id] = sess
	s.persist(ctx, sess)

	s.log.Infof("Game %d proposed by %s rules=%s stake=%s", id, caller, rulesName, stake)
	return id, nil
}

// AcceptGame joins the caller as player 1. The attached stake must match the
// proposal exactly; acceptance starts the game.
func (s *Server) AcceptGame(ctx context.Context, caller stateduel.PlayerID, gameID uint64, sessionKey *stateduel.PlayerID, stake dcrutil.Amount) error {
	s.Lock()
	defer s.Unlock()

	sess, ok := s.sessions[gameID]
	if !ok {
		return ErrUnknownGame
	}
	if sess.Finished {
		return ErrGameFinished
	}
	if sess.Started {
		return ErrGameAlreadyStarted
	}
	if caller == sess.Players[0].Addr {
		return ErrSelfAccept
	}
	if stake != sess.Stake {
		return fmt.Errorf("%w: want %s, got %s", ErrStakeMismatch, sess.Stake, stake)
	}

	sess.Players[1] = PlayerSlot{Addr: caller, SessionKey: copyKey(sessionKey)}
	sess.Escrow += stake
	sess.Started = true
	s.persist(ctx, sess)

	s.log.Infof("Game %d accepted by %s, escrow=%s", gameID, caller, sess.Escrow)
	return nil
}

// Resign is a unilateral forfeiture: the caller loses, the counterparty
// takes the pot. No chain or signature verification applies.
func (s *Server) Resign(ctx context.Context, caller stateduel.PlayerID, gameID uint64) error {
	s.Lock()
	defer s.Unlock()

	sess, ok := s.sessions[gameID]
	if !ok {
		return ErrUnknownGame
	}
	if sess.Finished {
		return ErrGameFinished
	}
	if !sess.Started {
		return ErrGameNotStarted
	}
	idx, ok := sess.playerIndexOf(caller)
	if !ok {
		return ErrNotParticipant
	}

	if err := s.finish(ctx, sess, 1-idx, false); err != nil {
		return err
	}
	s.log.Infof("Game %d: %s resigned, %s wins", gameID, caller, sess.opponent(idx))
	return nil
}

// finish settles a session in favor of winner (or as a draw), paying out the
// escrow and any open timeout bond, and marks the session terminal. Callers
// hold the write lock and have completed every validation.
func (s *Server) finish(ctx context.Context, sess *GameSession, winner uint8, draw bool) error {
	payments := append(settlementPayments(sess, winner, draw), bondRefund(sess)...)
	if err := s.banker.Disburse(ctx, sess.ID, payments); err != nil {
		return fmt.Errorf("disburse game %d: %w", sess.ID, err)
	}
	sess.Escrow = 0
	sess.Timeout = nil
	sess.Finished = true
	s.persist(ctx, sess)
	return nil
}

// Session returns a read-only view of one session.
func (s *Server) Session(gameID uint64) (SessionInfo, error) {
	s.RLock()
	defer s.RUnlock()
	sess, ok := s.sessions[gameID]
	if !ok {
		return SessionInfo{}, ErrUnknownGame
	}
	return sess.info(), nil
}

// Players returns the registered primary identities for a session. The
// second slot is zero until the game is accepted.
func (s *Server) Players(gameID uint64) ([2]stateduel.PlayerID, error) {
	s.RLock()
	defer s.RUnlock()
	sess, ok := s.sessions[gameID]
	if !ok {
		return [2]stateduel.PlayerID{}, ErrUnknownGame
	}
	return [2]stateduel.PlayerID{sess.Players[0].Addr, sess.Players[1].Addr}, nil
}

func copyKey(key *stateduel.PlayerID) *stateduel.PlayerID {
	if key == nil {
		return nil
	}
	cp := *key
	return &cp
}
