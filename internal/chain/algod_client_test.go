package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAlgodStub(t *testing.T, submitted *[]byte) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/transactions/params", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"consensus-version": "future",
			"fee":               0,
			"genesis-hash":      "SGO1GKSzyE7IEPItTxCByw9x8FmnrCDexi9/cOUJOiI=",
			"genesis-id":        "testnet-v1.0",
			"last-round":        4242,
			"min-fee":           1000,
		})
	})
	mux.HandleFunc("/v2/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		*submitted = body
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"txId": "STUBTXID"})
	})
	mux.HandleFunc("/v2/applications/749515555", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": 749515555,
			"params": map[string]any{
				"creator": "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAY5HFKQ",
				"global-state": []map[string]any{
					{"key": base64.StdEncoding.EncodeToString([]byte("rate")), "value": map[string]any{"type": 2, "uint": 1000}},
					{"key": base64.StdEncoding.EncodeToString([]byte("worker")), "value": map[string]any{"type": 1, "bytes": base64.StdEncoding.EncodeToString([]byte("WORKER"))}},
				},
			},
		})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAlgodClientRoundTrip(t *testing.T) {
	var submitted []byte
	srv := newAlgodStub(t, &submitted)

	client, err := NewAlgodClient(AlgodClientConfig{Address: srv.URL})
	require.NoError(t, err)

	ctx := context.Background()

	sp, err := client.SuggestedParams(ctx)
	require.NoError(t, err)
	assert.Equal(t, "testnet-v1.0", sp.GenesisID)
	assert.EqualValues(t, 4242, sp.FirstRoundValid)
	assert.EqualValues(t, 1000, sp.MinFee)
	assert.Len(t, sp.GenesisHash, 32)

	txID, err := client.SubmitRawTransaction(ctx, []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, "STUBTXID", txID)
	assert.Equal(t, []byte{0x01, 0x02}, submitted)

	require.NoError(t, client.Ping(ctx))

	globals, err := client.ApplicationGlobals(ctx, 749515555)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), globals["rate"].Uint)
	assert.Equal(t, []byte("WORKER"), globals["worker"].Bytes)

	_, err = client.ApplicationGlobals(ctx, 1)
	require.Error(t, err)
}

func TestAlgodClientRejectsEmptyInput(t *testing.T) {
	_, err := NewAlgodClient(AlgodClientConfig{})
	require.Error(t, err)

	var submitted []byte
	srv := newAlgodStub(t, &submitted)
	client, err := NewAlgodClient(AlgodClientConfig{Address: srv.URL})
	require.NoError(t, err)

	_, err = client.SubmitRawTransaction(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, submitted)
}

func TestAlgodClientSurfacesNodeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"node is down"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewAlgodClient(AlgodClientConfig{Address: srv.URL})
	require.NoError(t, err)

	_, err = client.SuggestedParams(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch suggested params")
}
