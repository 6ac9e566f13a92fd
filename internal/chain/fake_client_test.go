package chain

import (
	"context"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClientReportsRealTxID(t *testing.T) {
	ctx := context.Background()
	fake := NewFakeClient()
	acct := crypto.GenerateAccount()

	sp, err := fake.SuggestedParams(ctx)
	require.NoError(t, err)

	txn, err := transaction.MakeApplicationNoOpTx(
		42, [][]byte{[]byte("claim")}, nil, nil, nil,
		sp, acct.Address, nil, types.Digest{}, [32]byte{}, types.ZeroAddress,
	)
	require.NoError(t, err)

	wantID, signed, err := crypto.SignTransaction(acct.PrivateKey, txn)
	require.NoError(t, err)

	gotID, err := fake.SubmitRawTransaction(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, wantID, gotID)

	submitted := fake.Submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, acct.Address, submitted[0].Txn.Sender)

	round, err := fake.WaitForConfirmation(ctx, gotID, 4)
	require.NoError(t, err)
	assert.Greater(t, round, uint64(0))

	_, err = fake.WaitForConfirmation(ctx, "UNKNOWN", 4)
	require.Error(t, err)
}

func TestFakeClientRejectsGarbage(t *testing.T) {
	fake := NewFakeClient()

	_, err := fake.SubmitRawTransaction(context.Background(), nil)
	require.Error(t, err)

	_, err = fake.SubmitRawTransaction(context.Background(), []byte("not msgpack"))
	require.Error(t, err)
	assert.Empty(t, fake.Submitted())
}

func TestFakeClientAcceptsGroup(t *testing.T) {
	ctx := context.Background()
	fake := NewFakeClient()
	acct := crypto.GenerateAccount()

	sp, err := fake.SuggestedParams(ctx)
	require.NoError(t, err)

	pay, err := transaction.MakePaymentTxn(acct.Address.String(), crypto.GetApplicationAddress(42).String(), 5000, nil, "", sp)
	require.NoError(t, err)
	call, err := transaction.MakeApplicationNoOpTx(
		42, [][]byte{[]byte("fund")}, nil, nil, nil,
		sp, acct.Address, nil, types.Digest{}, [32]byte{}, types.ZeroAddress,
	)
	require.NoError(t, err)
	group, err := transaction.AssignGroupID([]types.Transaction{pay, call}, "")
	require.NoError(t, err)

	payID, payBlob, err := crypto.SignTransaction(acct.PrivateKey, group[0])
	require.NoError(t, err)
	_, callBlob, err := crypto.SignTransaction(acct.PrivateKey, group[1])
	require.NoError(t, err)

	txID, err := fake.SubmitRawTransaction(ctx, append(payBlob, callBlob...))
	require.NoError(t, err)
	assert.Equal(t, payID, txID)

	submitted := fake.Submitted()
	require.Len(t, submitted, 2)
	assert.Equal(t, types.PaymentTx, submitted[0].Txn.Type)
	assert.Equal(t, types.ApplicationCallTx, submitted[1].Txn.Type)
	assert.Equal(t, submitted[0].Txn.Group, submitted[1].Txn.Group)
}

func TestFakeClientApplicationGlobals(t *testing.T) {
	fake := NewFakeClient()

	_, err := fake.ApplicationGlobals(context.Background(), 42)
	require.Error(t, err)

	globals := map[string]StateValue{"rate": {Uint: 1000}}
	fake.SetApplicationGlobals(42, globals)
	globals["rate"] = StateValue{Uint: 1}

	got, err := fake.ApplicationGlobals(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), got["rate"].Uint)
}
