package chain

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"maps"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

const fakeGenesisID = "streamfi-fake-v1"

// FakeClient emulates a node for local runs and tests. Submitted transactions
// are kept in memory and get the same ID a real node would report.
type FakeClient struct {
	mu        sync.Mutex
	round     uint64
	submitted []types.SignedTxn
	globals   map[uint64]map[string]StateValue
}

var (
	_ Client        = (*FakeClient)(nil)
	_ HealthChecker = (*FakeClient)(nil)
	_ Confirmer     = (*FakeClient)(nil)
	_ StateReader   = (*FakeClient)(nil)
)

func NewFakeClient() *FakeClient {
	return &FakeClient{round: 1000, globals: make(map[uint64]map[string]StateValue)}
}

func (f *FakeClient) SuggestedParams(_ context.Context) (types.SuggestedParams, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	genesis := sha256.Sum256([]byte(fakeGenesisID))
	return types.SuggestedParams{
		Fee:             0,
		MinFee:          1000,
		GenesisID:       fakeGenesisID,
		GenesisHash:     genesis[:],
		FirstRoundValid: types.Round(f.round),
		LastRoundValid:  types.Round(f.round + 1000),
	}, nil
}

func (f *FakeClient) SubmitRawTransaction(_ context.Context, signed []byte) (string, error) {
	if len(signed) == 0 {
		return "", fmt.Errorf("signed transaction is empty")
	}

	// A group arrives as its signed transactions back to back.
	var group []types.SignedTxn
	dec := msgpack.NewDecoder(bytes.NewReader(signed))
	for {
		var stx types.SignedTxn
		err := dec.Decode(&stx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode signed transaction: %w", err)
		}
		group = append(group, stx)
	}
	if len(group) == 0 {
		return "", fmt.Errorf("signed transaction is empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, group...)
	f.round++
	return crypto.GetTxID(group[0].Txn), nil
}

func (f *FakeClient) Ping(_ context.Context) error {
	return nil
}

func (f *FakeClient) WaitForConfirmation(_ context.Context, txID string, _ uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stx := range f.submitted {
		if crypto.GetTxID(stx.Txn) == txID {
			return f.round, nil
		}
	}
	return 0, fmt.Errorf("transaction %s not found", txID)
}

// Submitted returns a copy of every transaction accepted so far.
func (f *FakeClient) Submitted() []types.SignedTxn {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.SignedTxn, len(f.submitted))
	copy(out, f.submitted)
	return out
}

// SetApplicationGlobals replaces the global state reported for appID.
func (f *FakeClient) SetApplicationGlobals(appID uint64, globals map[string]StateValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.globals[appID] = maps.Clone(globals)
}

func (f *FakeClient) ApplicationGlobals(_ context.Context, appID uint64) (map[string]StateValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	globals, ok := f.globals[appID]
	if !ok {
		return nil, fmt.Errorf("application %d not found", appID)
	}
	return maps.Clone(globals), nil
}
