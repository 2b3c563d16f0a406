// Package gamerules defines the pure rule engines the arbiter delegates to.
// A rule engine interprets opaque state and move blobs for one game type; it
// keeps no storage and knows nothing about stakes or player identities.
package gamerules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// GameState carries a game's opaque state blob together with the session id
// and nonce it belongs to. Transition advances the nonce by exactly one.
type GameState struct {
	GameID uint64
	Nonce  uint64
	Data   []byte
}

// Outcome is the terminal verdict folded into a state blob.
type Outcome struct {
	Terminal bool
	Draw     bool
	// Winner is the winning player index (0 or 1), meaningful only when
	// Terminal is true and Draw is false.
	Winner uint8
}

// Rules is the capability set every game variant implements. Implementations
// must be pure: same inputs, same outputs, no hidden state. The arbiter never
// trusts a state it did not derive itself from a verified prior state plus a
// verified move.
type Rules interface {
	// Name is the stable reference sessions are created against.
	Name() string

	// InitialState returns the genesis state blob for a fresh game.
	InitialState() []byte

	// IsValidMove reports whether the given player may apply move to st.
	IsValidMove(st GameState, player uint8, move []byte) bool

	// Transition applies move to st and returns the successor state with
	// the nonce advanced. It fails for any move IsValidMove rejects.
	Transition(st GameState, player uint8, move []byte) (GameState, error)

	// Outcome decodes the terminal verdict carried by a state blob.
	Outcome(data []byte) (Outcome, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Rules)
)

// Register makes a rule engine available for session creation under its name.
// Registering two engines with the same name is a programming error.
func Register(r Rules) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[r.Name()]; dup {
		panic(fmt.Sprintf("gamerules: duplicate registration for %q", r.Name()))
	}
	registry[r.Name()] = r
}

// Lookup resolves a registered rule engine by name.
func Lookup(name string) (Rules, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("no rule engine registered as %q", name)
	}
	return r, nil
}

// Names lists the registered rule engines in stable order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// encMode is the canonical CBOR encoder shared by the variants. State blobs
// must encode deterministically because the arbiter compares a claimed
// newState byte-for-byte against its own transition output.
var encMode = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()
