package arbiter

import (
	"time"

	"github.com/decred/dcrd/dcrutil/v4"

	"github.com/vkarov/stateduel"
	"github.com/vkarov/stateduel/arbiter/arbiterdb"
	"github.com/vkarov/stateduel/gamerules"
)

// PlayerSlot is one registered role in a session: the primary identity plus
// an optional delegated session key allowed to sign moves on its behalf.
type PlayerSlot struct {
	Addr       stateduel.PlayerID
	SessionKey *stateduel.PlayerID
}

// authorized reports whether id may sign for this slot.
func (p *PlayerSlot) authorized(id stateduel.PlayerID) bool {
	if id == p.Addr {
		return true
	}
	return p.SessionKey != nil && id == *p.SessionKey
}

// TimeoutRecord is an open bonded liveness claim. At most one exists per
// session; it is cleared by a timely counter-move or consumed by expiry.
type TimeoutRecord struct {
	// Nonce and LastState pin the extension the accused must produce a
	// successor for: a valid signed move with Nonce+1 chaining from
	// LastState proves liveness.
	Nonce     uint64
	LastState []byte
	Initiator stateduel.PlayerID
	Deadline  time.Time
	Bond      dcrutil.Amount
}

// GameSession is the ledger record for one game under arbitration. Finished
// sessions are never deleted or mutated again.
type GameSession struct {
	ID       uint64
	Rules    gamerules.Rules
	Players  [2]PlayerSlot
	Stake    dcrutil.Amount // per-player contribution, fixed at proposal
	Escrow   dcrutil.Amount // total currently held for this session
	Started  bool
	Finished bool
	Timeout  *TimeoutRecord
}

// playerIndexOf resolves a primary identity to its role index.
func (s *GameSession) playerIndexOf(id stateduel.PlayerID) (uint8, bool) {
	for i := range s.Players {
		if s.Players[i].Addr == id {
			return uint8(i), true
		}
	}
	return 0, false
}

func (s *GameSession) opponent(idx uint8) stateduel.PlayerID {
	return s.Players[1-idx].Addr
}

func (s *GameSession) record() *arbiterdb.SessionRecord {
	rec := &arbiterdb.SessionRecord{
		ID:          s.ID,
		Rules:       s.Rules.Name(),
		StakeAtoms:  int64(s.Stake),
		EscrowAtoms: int64(s.Escrow),
		Started:     s.Started,
		Finished:    s.Finished,
	}
	for i := range s.Players {
		if s.Players[i].Addr.IsZero() {
			continue
		}
		rec.Players[i].Addr = append([]byte(nil), s.Players[i].Addr[:]...)
		if sk := s.Players[i].SessionKey; sk != nil {
			rec.Players[i].SessionKey = append([]byte(nil), sk[:]...)
		}
	}
	if t := s.Timeout; t != nil {
		rec.Timeout = &arbiterdb.TimeoutRecord{
			Nonce:     t.Nonce,
			LastState: append([]byte(nil), t.LastState...),
			Initiator: append([]byte(nil), t.Initiator[:]...),
			Deadline:  t.Deadline,
			BondAtoms: int64(t.Bond),
		}
	}
	return rec
}

func sessionFromRecord(rec *arbiterdb.SessionRecord) (*GameSession, error) {
	rules, err := gamerules.Lookup(rec.Rules)
	if err != nil {
		return nil, err
	}
	s := &GameSession{
		ID:       rec.ID,
		Rules:    rules,
		Stake:    dcrutil.Amount(rec.StakeAtoms),
		Escrow:   dcrutil.Amount(rec.EscrowAtoms),
		Started:  rec.Started,
		Finished: rec.Finished,
	}
	for i := range rec.Players {
		if len(rec.Players[i].Addr) == 0 {
			continue
		}
		if err := s.Players[i].Addr.FromBytes(rec.Players[i].Addr); err != nil {
			return nil, err
		}
		if sk := rec.Players[i].SessionKey; len(sk) > 0 {
			var key stateduel.PlayerID
			if err := key.FromBytes(sk); err != nil {
				return nil, err
			}
			s.Players[i].SessionKey = &key
		}
	}
	if t := rec.Timeout; t != nil {
		tr := &TimeoutRecord{
			Nonce:     t.Nonce,
			LastState: append([]byte(nil), t.LastState...),
			Deadline:  t.Deadline,
			Bond:      dcrutil.Amount(t.BondAtoms),
		}
		if err := tr.Initiator.FromBytes(t.Initiator); err != nil {
			return nil, err
		}
		s.Timeout = tr
	}
	return s, nil
}

// SessionInfo is the read-only view handed out by lookups.
type SessionInfo struct {
	ID       uint64
	Rules    string
	Players  [2]stateduel.PlayerID
	Stake    dcrutil.Amount
	Escrow   dcrutil.Amount
	Started  bool
	Finished bool
	// TimeoutOpen reports an unresolved liveness claim; TimeoutDeadline is
	// meaningful only when it is set.
	TimeoutOpen     bool
	TimeoutDeadline time.Time
}

func (s *GameSession) info() SessionInfo {
	inf := SessionInfo{
		ID:       s.ID,
		Rules:    s.Rules.Name(),
		Stake:    s.Stake,
		Escrow:   s.Escrow,
		Started:  s.Started,
		Finished: s.Finished,
	}
	for i := range s.Players {
		inf.Players[i] = s.Players[i].Addr
	}
	if s.Timeout != nil {
		inf.TimeoutOpen = true
		inf.TimeoutDeadline = s.Timeout.Deadline
	}
	return inf
}
