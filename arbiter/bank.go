package arbiter

import (
	"context"
	"sync"

	"github.com/decred/dcrd/dcrutil/v4"

	"github.com/vkarov/stateduel"
)

// AccountBook is an in-process Banker crediting settlements to per-player
// balances. Deployments bridging to an external payment rail replace it;
// tests and the standalone daemon use it directly.
type AccountBook struct {
	mtx      sync.Mutex
	balances map[stateduel.PlayerID]dcrutil.Amount
}

func NewAccountBook() *AccountBook {
	return &AccountBook{balances: make(map[stateduel.PlayerID]dcrutil.Amount)}
}

// Disburse credits every payment. The single lock acquisition makes the
// batch atomic with respect to Balance readers.
func (b *AccountBook) Disburse(_ context.Context, gameID uint64, payments []Payment) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	for _, p := range payments {
		b.balances[p.To] += p.Amount
	}
	return nil
}

// Balance returns the accumulated credits for one player.
func (b *AccountBook) Balance(id stateduel.PlayerID) dcrutil.Amount {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.balances[id]
}
