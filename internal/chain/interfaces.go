package chain

import (
	"context"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Client abstracts the Algorand node calls the stream controller needs.
type Client interface {
	SuggestedParams(ctx context.Context) (types.SuggestedParams, error)
	SubmitRawTransaction(ctx context.Context, signed []byte) (string, error)
}

// HealthChecker is implemented by clients that can report node reachability.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Confirmer is implemented by clients that can wait for a transaction to be
// included in a block. It returns the confirmed round.
type Confirmer interface {
	WaitForConfirmation(ctx context.Context, txID string, rounds uint64) (uint64, error)
}

// StateValue is one entry of an application's global state. Byte slices and
// integers are the two TEAL value types.
type StateValue struct {
	Bytes []byte
	Uint  uint64
}

// StateReader is implemented by clients that can read application global state.
type StateReader interface {
	ApplicationGlobals(ctx context.Context, appID uint64) (map[string]StateValue, error)
}
