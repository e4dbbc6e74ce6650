package memory

import (
	"context"

	"github.com/commercekit/loyalty-backend/internal/repositories"
)

// Compile-time check to ensure TxRunner implements the interface
var _ repositories.TxRunner = (*TxRunner)(nil)

// TxRunner is a pass-through transaction runner for the in-memory stores,
// which have no multi-document transactions to speak of. Serialization of the
// points engine's critical sections is handled by its per-account locks.
type TxRunner struct{}

// NewTxRunner creates a pass-through TxRunner
func NewTxRunner() *TxRunner {
	return &TxRunner{}
}

// WithTransaction runs fn directly
func (r *TxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
