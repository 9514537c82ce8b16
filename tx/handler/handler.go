package handler

import (
	"context"
	"time"

	"github.com/edverse-labs/edugov/state"
	"github.com/edverse-labs/edugov/tx"
	"github.com/edverse-labs/edugov/types"
)

// TxHandler applies one transaction type against a working state. Check
// runs the same validation against a throwaway clone; Apply mutates the
// working state and returns the events to index. An Apply error means the
// caller must discard the working state.
type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.GovTx, now time.Time) error
	Apply(ctx context.Context, st *state.State, btx *tx.GovTx, now time.Time) ([]types.Event, error)
}
