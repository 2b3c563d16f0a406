// Package stateduel defines the wire primitives shared by players and the
// arbiter: player identities, signed moves and the digest they endorse.
package stateduel

import (
	"encoding/hex"
	"fmt"
)

// PlayerIDSize is the length of a serialized compressed secp256k1 pubkey.
const PlayerIDSize = 33

// PlayerID identifies a player by their compressed secp256k1 public key.
// Signatures over moves must recover to a registered PlayerID.
type PlayerID [PlayerIDSize]byte

func (id PlayerID) String() string {
	return hex.EncodeToString(id[:])
}

// FromString decodes a 33-byte hex-encoded compressed pubkey into id.
func (id *PlayerID) FromString(s string) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decode player id: %w", err)
	}
	if len(b) != PlayerIDSize {
		return fmt.Errorf("player id must be %d bytes, got %d", PlayerIDSize, len(b))
	}
	copy(id[:], b)
	return nil
}

// FromBytes copies a raw 33-byte compressed pubkey into id.
func (id *PlayerID) FromBytes(b []byte) error {
	if len(b) != PlayerIDSize {
		return fmt.Errorf("player id must be %d bytes, got %d", PlayerIDSize, len(b))
	}
	copy(id[:], b)
	return nil
}

// IsZero reports whether id is the unset identity.
func (id PlayerID) IsZero() bool {
	return id == PlayerID{}
}

// Move is one proposed state transition of a game session. OldState, NewState
// and Data are opaque blobs interpreted only by the session's rule engine.
type Move struct {
	GameID   uint64
	Nonce    uint64
	Player   PlayerID
	OldState []byte
	NewState []byte
	Data     []byte
}

// SignedMove is a Move plus one or two compact signatures. Sigs[0] must
// recover to the identity registered for the move's claimed player; Sigs[1],
// when present, must recover to the counterparty (a countersignature).
type SignedMove struct {
	Move Move
	Sigs [][]byte
}
