// Package wallet provides the wallet collaborator used by the stream
// controller: session handshake, session restore and transaction signing.
package wallet

import (
	"context"
	"errors"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

var (
	// ErrRejected is returned when the user declines a connect or signing request.
	ErrRejected = errors.New("request rejected by user")
	// ErrNoSession is returned when signing is attempted without a connected session.
	ErrNoSession = errors.New("wallet session not connected")
	// ErrUnknownSigner is returned when a transaction names a signer the wallet does not hold.
	ErrUnknownSigner = errors.New("wallet does not hold the requested signer")
)

// Wallet is the capability set the stream controller consumes.
type Wallet interface {
	// RestoreSession returns the accounts of a previous session, or none.
	RestoreSession(ctx context.Context) ([]string, error)
	// Connect runs the connection handshake and returns the approved accounts.
	Connect(ctx context.Context) ([]string, error)
	// Disconnect tears the session down.
	Disconnect(ctx context.Context) error
	// SignTransactionGroup signs every transaction of the group and returns
	// the encoded signed transactions in group order.
	SignTransactionGroup(ctx context.Context, group []SignerTransaction) ([][]byte, error)
}

// SignerTransaction pairs a transaction with the accounts expected to sign it.
type SignerTransaction struct {
	Txn     types.Transaction
	Signers []string
}
