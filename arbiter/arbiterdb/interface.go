package arbiterdb

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrMainBucketNotFound = errors.New("main bucket not found")
)

// PlayerRecord is the stored identity pair for one player slot: the primary
// signing key and the optional delegated session key.
type PlayerRecord struct {
	Addr       []byte `json:"addr"`
	SessionKey []byte `json:"session_key,omitempty"`
}

// TimeoutRecord is the stored form of an open liveness claim.
type TimeoutRecord struct {
	Nonce     uint64    `json:"nonce"`
	LastState []byte    `json:"last_state"`
	Initiator []byte    `json:"initiator"`
	Deadline  time.Time `json:"deadline"`
	BondAtoms int64     `json:"bond_atoms"`
}

// SessionRecord stores the full state of one game session so a restarted
// arbiter keeps adjudicating where it left off. Finished sessions are kept
// as immutable history.
type SessionRecord struct {
	ID          uint64          `json:"id"`
	Rules       string          `json:"rules"`
	Players     [2]PlayerRecord `json:"players"`
	StakeAtoms  int64           `json:"stake_atoms"`
	EscrowAtoms int64           `json:"escrow_atoms"`
	Started     bool            `json:"started"`
	Finished    bool            `json:"finished"`
	Timeout     *TimeoutRecord  `json:"timeout,omitempty"`
}

// Store persists session snapshots and hands out session ids. Implementations
// must make SaveSession atomic per record.
type Store interface {
	SaveSession(ctx context.Context, rec *SessionRecord) error
	FetchSession(ctx context.Context, id uint64) (*SessionRecord, error)
	ListSessions(ctx context.Context) ([]*SessionRecord, error)

	// NextGameID allocates the next monotonic session id, durably.
	NextGameID(ctx context.Context) (uint64, error)

	Close() error
}
