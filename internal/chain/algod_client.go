package chain

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// AlgodClient talks to an algod REST endpoint.
type AlgodClient struct {
	client  *algod.Client
	address string
}

var (
	_ Client        = (*AlgodClient)(nil)
	_ HealthChecker = (*AlgodClient)(nil)
	_ Confirmer     = (*AlgodClient)(nil)
	_ StateReader   = (*AlgodClient)(nil)
)

type AlgodClientConfig struct {
	Address string
	Token   string
}

func NewAlgodClient(cfg AlgodClientConfig) (*AlgodClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("algod address is required")
	}

	cli, err := algod.MakeClient(cfg.Address, cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("make algod client: %w", err)
	}

	return &AlgodClient{client: cli, address: cfg.Address}, nil
}

func (c *AlgodClient) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	sp, err := c.client.SuggestedParams().Do(ctx)
	if err != nil {
		return types.SuggestedParams{}, fmt.Errorf("fetch suggested params: %w", err)
	}
	return sp, nil
}

func (c *AlgodClient) SubmitRawTransaction(ctx context.Context, signed []byte) (string, error) {
	if len(signed) == 0 {
		return "", fmt.Errorf("signed transaction is empty")
	}
	txID, err := c.client.SendRawTransaction(signed).Do(ctx)
	if err != nil {
		return "", fmt.Errorf("send raw transaction: %w", err)
	}
	return txID, nil
}

func (c *AlgodClient) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("algod client not configured")
	}
	return c.client.HealthCheck().Do(ctx)
}

func (c *AlgodClient) WaitForConfirmation(ctx context.Context, txID string, rounds uint64) (uint64, error) {
	info, err := transaction.WaitForConfirmation(c.client, txID, rounds, ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for confirmation of %s: %w", txID, err)
	}
	return info.ConfirmedRound, nil
}

// ApplicationGlobals reads the application's global state. Keys and byte
// values arrive base64 encoded and are returned raw.
func (c *AlgodClient) ApplicationGlobals(ctx context.Context, appID uint64) (map[string]StateValue, error) {
	app, err := c.client.GetApplicationByID(appID).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch application %d: %w", appID, err)
	}

	globals := make(map[string]StateValue, len(app.Params.GlobalState))
	for _, kv := range app.Params.GlobalState {
		key, err := base64.StdEncoding.DecodeString(kv.Key)
		if err != nil {
			return nil, fmt.Errorf("decode state key %q: %w", kv.Key, err)
		}
		val := StateValue{Uint: kv.Value.Uint}
		if kv.Value.Bytes != "" {
			val.Bytes, err = base64.StdEncoding.DecodeString(kv.Value.Bytes)
			if err != nil {
				return nil, fmt.Errorf("decode state value %q: %w", key, err)
			}
		}
		globals[string(key)] = val
	}
	return globals, nil
}
