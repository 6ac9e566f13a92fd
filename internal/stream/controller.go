// Package stream drives the wallet session and the submission of payment
// stream transactions to the deployed streaming contract.
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/bits"
	"strings"
	"sync"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"go.uber.org/zap"

	"streamfi/internal/chain"
	"streamfi/internal/wallet"
)

// State is the lifecycle position of the controller.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateSubmitting   State = "submitting"
)

// Status indicators prefix every success and failure message.
const (
	SuccessIndicator = "✅"
	FailureIndicator = "❌"
)

const (
	StatusConnected    = SuccessIndicator + " Wallet connected!"
	StatusDisconnected = "Disconnected"
	StatusCreating     = "Creating stream..."
	StatusClaiming     = "Claiming..."
	StatusFunding      = "Funding contract..."

	statusConnectFailed = FailureIndicator + " Connection failed: %v"
	statusCreated       = SuccessIndicator + " Stream created! TX: %s"
	statusClaimed       = SuccessIndicator + " Claim submitted! TX: %s"
	statusFunded        = SuccessIndicator + " Contract funded! TX: %s"
	statusError         = FailureIndicator + " Error: %v"
)

var (
	claimArg = []byte("claim")
	fundArg  = []byte("fund")
)

// Global state keys written by the streaming contract.
const (
	keyWorker    = "worker"
	keyRate      = "rate"
	keyStart     = "start"
	keyLastClaim = "last_claim"
	keyClaimed   = "claimed"
)

// ErrStateUnavailable is returned by Claimable when the node cannot read
// application state.
var ErrStateUnavailable = errors.New("node cannot read application state")

// Config is the process-wide configuration the controller is built with.
type Config struct {
	AppID   uint64
	Network string
	// ExplorerTxURL is prefixed to a transaction ID to build a link.
	ExplorerTxURL string
	// ConfirmRounds > 0 waits for confirmation after submission when the
	// node supports it.
	ConfirmRounds uint64
}

// Receipt describes a submitted transaction.
type Receipt struct {
	TxID           string `json:"txId"`
	ExplorerURL    string `json:"explorerUrl,omitempty"`
	ConfirmedRound uint64 `json:"confirmedRound,omitempty"`
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	State    State    `json:"state"`
	Account  string   `json:"account,omitempty"`
	Status   string   `json:"status"`
	InFlight bool     `json:"inFlight"`
	LastTx   *Receipt `json:"lastTx,omitempty"`
	AppID    uint64   `json:"appId"`
	Network  string   `json:"network"`
}

// Accrual is what the stream has earned since the last claim, computed from
// the contract's global state.
type Accrual struct {
	Worker              string `json:"worker"`
	RateMicroAlgos      uint64 `json:"rateMicroAlgos"`
	StartedAt           uint64 `json:"startedAt"`
	LastClaimAt         uint64 `json:"lastClaimAt"`
	ElapsedSeconds      uint64 `json:"elapsedSeconds"`
	ClaimableMicroAlgos uint64 `json:"claimableMicroAlgos"`
	ClaimableAlgos      string `json:"claimableAlgos"`
	ClaimedMicroAlgos   uint64 `json:"claimedMicroAlgos"`
}

// Controller owns the connected account and the status message and mediates
// between the wallet and the node.
type Controller struct {
	cfg    Config
	wallet wallet.Wallet
	node   chain.Client
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	account  string
	status   string
	state    State
	inFlight bool
	lastTx   *Receipt
}

type Option func(*Controller)

// WithClock overrides the clock used for accrual.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewController(cfg Config, w wallet.Wallet, node chain.Client, opts ...Option) (*Controller, error) {
	if cfg.AppID == 0 {
		return nil, errors.New("application id is required")
	}
	if w == nil {
		return nil, errors.New("wallet is required")
	}
	if node == nil {
		return nil, errors.New("node client is required")
	}

	c := &Controller{
		cfg:    cfg,
		wallet: w,
		node:   node,
		logger: zap.NewNop(),
		now:    time.Now,
		state:  StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Restore adopts the first account of a previous wallet session, if any.
// Failures are logged and otherwise ignored.
func (c *Controller) Restore(ctx context.Context) {
	accounts, err := c.wallet.RestoreSession(ctx)
	if err != nil {
		c.logger.Debug("session restore failed", zap.Error(err))
		return
	}
	if len(accounts) == 0 {
		return
	}

	c.mu.Lock()
	c.account = accounts[0]
	c.state = c.settledState()
	c.mu.Unlock()

	c.logger.Info("wallet session restored", zap.String("account", accounts[0]))
}

// Connect runs the wallet handshake. Every failure is reflected in the status
// message; the returned error is for callers that want to branch on it.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if !c.inFlight {
		c.state = StateConnecting
	}
	c.mu.Unlock()

	accounts, err := c.wallet.Connect(ctx)
	if err == nil && len(accounts) == 0 {
		err = errors.New("wallet returned no accounts")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.status = fmt.Sprintf(statusConnectFailed, err)
		c.state = c.settledState()
		c.logger.Warn("wallet connect failed", zap.Error(err))
		return fmt.Errorf("connect wallet: %w", err)
	}

	c.account = accounts[0]
	c.status = StatusConnected
	c.state = c.settledState()
	c.logger.Info("wallet connected", zap.String("account", c.account))
	return nil
}

// Disconnect tears the wallet session down and clears the account. It is
// safe to call when already disconnected.
func (c *Controller) Disconnect(ctx context.Context) {
	if err := c.wallet.Disconnect(ctx); err != nil {
		c.logger.Warn("wallet disconnect failed", zap.Error(err))
	}

	c.mu.Lock()
	c.account = ""
	c.status = StatusDisconnected
	c.state = c.settledState()
	c.mu.Unlock()

	c.logger.Info("wallet disconnected")
}

// CreateStream submits the application call that opens a payment stream to
// the recipient at the given rate.
func (c *Controller) CreateStream(ctx context.Context, req StreamRequest) (Receipt, error) {
	sender, err := c.begin(StatusCreating)
	if err != nil {
		return Receipt{}, err
	}

	rate, err := req.Validate()
	if err != nil {
		return Receipt{}, c.fail(err)
	}
	recipient := strings.TrimSpace(req.Recipient)

	receipt, err := c.submitAppCall(ctx, sender, StreamArgs(recipient, rate))
	if err != nil {
		return Receipt{}, c.fail(err)
	}

	c.succeed(receipt, statusCreated)
	c.logger.Info("stream created",
		zap.String("txId", receipt.TxID),
		zap.String("recipient", recipient),
		zap.Uint64("rateMicroAlgos", rate),
		zap.String("rateAlgos", RateInAlgos(rate)),
		zap.String("explorer", receipt.ExplorerURL),
	)
	return receipt, nil
}

// Claim asks the contract to pay out what has accrued to the connected account.
func (c *Controller) Claim(ctx context.Context) (Receipt, error) {
	sender, err := c.begin(StatusClaiming)
	if err != nil {
		return Receipt{}, err
	}

	receipt, err := c.submitAppCall(ctx, sender, [][]byte{claimArg})
	if err != nil {
		return Receipt{}, c.fail(err)
	}

	c.succeed(receipt, statusClaimed)
	c.logger.Info("claim submitted",
		zap.String("txId", receipt.TxID),
		zap.String("explorer", receipt.ExplorerURL),
	)
	return receipt, nil
}

// Fund sends amount microAlgos to the contract account, grouped with the
// contract's fund call so the two settle together.
func (c *Controller) Fund(ctx context.Context, req FundRequest) (Receipt, error) {
	sender, err := c.begin(StatusFunding)
	if err != nil {
		return Receipt{}, err
	}

	amount, err := req.Validate()
	if err != nil {
		return Receipt{}, c.fail(err)
	}

	receipt, err := c.submit(ctx, sender, func(sp types.SuggestedParams, from types.Address) ([]types.Transaction, error) {
		pay, err := transaction.MakePaymentTxn(sender, crypto.GetApplicationAddress(c.cfg.AppID).String(), amount, nil, "", sp)
		if err != nil {
			return nil, fmt.Errorf("build payment: %w", err)
		}
		call, err := c.appCall(sp, from, [][]byte{fundArg})
		if err != nil {
			return nil, err
		}
		group, err := transaction.AssignGroupID([]types.Transaction{pay, call}, "")
		if err != nil {
			return nil, fmt.Errorf("assign group id: %w", err)
		}
		return group, nil
	})
	if err != nil {
		return Receipt{}, c.fail(err)
	}

	c.succeed(receipt, statusFunded)
	c.logger.Info("contract funded",
		zap.String("txId", receipt.TxID),
		zap.Uint64("amountMicroAlgos", amount),
		zap.String("explorer", receipt.ExplorerURL),
	)
	return receipt, nil
}

// Claimable reads the stream from the contract's global state and computes
// what has accrued since the last claim: elapsed seconds times the rate. It
// sends nothing and leaves the status alone.
func (c *Controller) Claimable(ctx context.Context) (Accrual, error) {
	reader, ok := c.node.(chain.StateReader)
	if !ok {
		return Accrual{}, ErrStateUnavailable
	}

	globals, err := reader.ApplicationGlobals(ctx, c.cfg.AppID)
	if err != nil {
		return Accrual{}, fmt.Errorf("read application state: %w", err)
	}
	rate, ok := globals[keyRate]
	if !ok {
		return Accrual{}, fmt.Errorf("application %d has no stream state", c.cfg.AppID)
	}

	acc := Accrual{
		Worker:            string(globals[keyWorker].Bytes),
		RateMicroAlgos:    rate.Uint,
		StartedAt:         globals[keyStart].Uint,
		LastClaimAt:       globals[keyLastClaim].Uint,
		ClaimedMicroAlgos: globals[keyClaimed].Uint,
	}
	if now := c.now().Unix(); now > 0 && uint64(now) > acc.LastClaimAt {
		acc.ElapsedSeconds = uint64(now) - acc.LastClaimAt
	}
	hi, lo := bits.Mul64(acc.ElapsedSeconds, acc.RateMicroAlgos)
	if hi != 0 {
		lo = ^uint64(0)
	}
	acc.ClaimableMicroAlgos = lo
	acc.ClaimableAlgos = RateInAlgos(lo)
	return acc, nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:    c.state,
		Account:  c.account,
		Status:   c.status,
		InFlight: c.inFlight,
		AppID:    c.cfg.AppID,
		Network:  c.cfg.Network,
	}
	if c.lastTx != nil {
		tx := *c.lastTx
		snap.LastTx = &tx
	}
	return snap
}

// begin checks the preconditions and marks a submission in flight.
func (c *Controller) begin(status string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.account == "" {
		return "", ErrNotConnected
	}
	if c.inFlight {
		return "", ErrSubmissionInFlight
	}

	c.inFlight = true
	c.state = StateSubmitting
	c.status = status
	return c.account, nil
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = fmt.Sprintf(statusError, err)
	c.inFlight = false
	c.state = c.settledState()
	c.logger.Warn("submission failed", zap.Error(err))
	return err
}

func (c *Controller) succeed(receipt Receipt, format string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := fmt.Sprintf(format, receipt.TxID)
	if receipt.ConfirmedRound > 0 {
		status += fmt.Sprintf(" (confirmed in round %d)", receipt.ConfirmedRound)
	}
	c.status = status
	c.lastTx = &receipt
	c.inFlight = false
	c.state = c.settledState()
}

// settledState derives the resting state; callers hold mu.
func (c *Controller) settledState() State {
	switch {
	case c.inFlight:
		return StateSubmitting
	case c.account != "":
		return StateConnected
	default:
		return StateDisconnected
	}
}

// submitAppCall sends a single NoOp application call with args.
func (c *Controller) submitAppCall(ctx context.Context, sender string, args [][]byte) (Receipt, error) {
	return c.submit(ctx, sender, func(sp types.SuggestedParams, from types.Address) ([]types.Transaction, error) {
		txn, err := c.appCall(sp, from, args)
		if err != nil {
			return nil, err
		}
		return []types.Transaction{txn}, nil
	})
}

func (c *Controller) appCall(sp types.SuggestedParams, from types.Address, args [][]byte) (types.Transaction, error) {
	txn, err := transaction.MakeApplicationNoOpTx(
		c.cfg.AppID,
		args,
		nil, nil, nil,
		sp,
		from,
		nil,
		types.Digest{},
		[32]byte{},
		types.ZeroAddress,
	)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("build application call: %w", err)
	}
	return txn, nil
}

// submit fetches parameters, builds the group, has the wallet sign it and
// sends it. Each step runs once.
func (c *Controller) submit(ctx context.Context, sender string, build func(types.SuggestedParams, types.Address) ([]types.Transaction, error)) (Receipt, error) {
	from, err := types.DecodeAddress(sender)
	if err != nil {
		return Receipt{}, fmt.Errorf("decode sender: %w", err)
	}

	sp, err := c.node.SuggestedParams(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("fetch network parameters: %w", err)
	}

	txns, err := build(sp, from)
	if err != nil {
		return Receipt{}, err
	}

	group := make([]wallet.SignerTransaction, len(txns))
	for i, txn := range txns {
		group[i] = wallet.SignerTransaction{Txn: txn, Signers: []string{sender}}
	}
	signed, err := c.wallet.SignTransactionGroup(ctx, group)
	if err != nil {
		return Receipt{}, fmt.Errorf("sign transaction: %w", err)
	}
	if len(signed) == 0 {
		return Receipt{}, errors.New("sign transaction: wallet returned nothing")
	}

	txID, err := c.node.SubmitRawTransaction(ctx, bytes.Join(signed, nil))
	if err != nil {
		return Receipt{}, fmt.Errorf("submit transaction: %w", err)
	}

	receipt := Receipt{TxID: txID, ExplorerURL: c.explorerURL(txID)}

	if c.cfg.ConfirmRounds > 0 {
		if confirmer, ok := c.node.(chain.Confirmer); ok {
			round, err := confirmer.WaitForConfirmation(ctx, txID, c.cfg.ConfirmRounds)
			if err != nil {
				// Already broadcast; report the ID and leave confirmation to the explorer.
				c.logger.Warn("confirmation not observed", zap.String("txId", txID), zap.Error(err))
			} else {
				receipt.ConfirmedRound = round
			}
		}
	}
	return receipt, nil
}

func (c *Controller) explorerURL(txID string) string {
	if c.cfg.ExplorerTxURL == "" {
		return ""
	}
	return c.cfg.ExplorerTxURL + txID
}
