package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"go.uber.org/zap"

	"streamfi/internal/store"
)

const defaultSessionKey = "wallet:session"

// KeyWallet holds a single ed25519 account and keeps its session in a store,
// so a later process can restore it.
type KeyWallet struct {
	account    crypto.Account
	store      store.Store
	approver   Approver
	sessionKey string
	sessionTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

var _ Wallet = (*KeyWallet)(nil)

type KeyWalletConfig struct {
	Mnemonic   string
	SessionKey string
	SessionTTL time.Duration
}

type Option func(*KeyWallet)

func WithLogger(l *zap.Logger) Option {
	return func(w *KeyWallet) {
		if l != nil {
			w.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *KeyWallet) {
		if now != nil {
			w.now = now
		}
	}
}

type sessionRecord struct {
	Accounts    []string  `json:"accounts"`
	ConnectedAt time.Time `json:"connectedAt"`
}

func NewKeyWallet(cfg KeyWalletConfig, st store.Store, approver Approver, opts ...Option) (*KeyWallet, error) {
	phrase := strings.Join(strings.Fields(cfg.Mnemonic), " ")
	if phrase == "" {
		return nil, fmt.Errorf("wallet mnemonic is required")
	}

	sk, err := mnemonic.ToPrivateKey(phrase)
	if err != nil {
		return nil, fmt.Errorf("parse mnemonic: %w", err)
	}
	account, err := crypto.AccountFromPrivateKey(sk)
	if err != nil {
		return nil, fmt.Errorf("derive account: %w", err)
	}

	if st == nil {
		st = store.NewMemoryStore()
	}
	if approver == nil {
		approver = AutoApprover{}
	}
	key := cfg.SessionKey
	if key == "" {
		key = defaultSessionKey
	}

	w := &KeyWallet{
		account:    account,
		store:      st,
		approver:   approver,
		sessionKey: key,
		sessionTTL: cfg.SessionTTL,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Address is the account this wallet signs for.
func (w *KeyWallet) Address() string {
	return w.account.Address.String()
}

func (w *KeyWallet) RestoreSession(ctx context.Context) ([]string, error) {
	rec, err := w.store.Get(ctx, w.sessionKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if rec == nil {
		return nil, nil
	}

	var sess sessionRecord
	if err := json.Unmarshal(rec.Value, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	// A session written by another key is not ours to resume.
	accounts := make([]string, 0, len(sess.Accounts))
	for _, addr := range sess.Accounts {
		if addr == w.Address() {
			accounts = append(accounts, addr)
		}
	}
	return accounts, nil
}

func (w *KeyWallet) Connect(ctx context.Context) ([]string, error) {
	addr := w.Address()
	err := w.approver.Approve(ctx, Request{
		Kind:    RequestConnect,
		Account: addr,
		Details: []string{"share this account address with StreamFi"},
	})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	now := w.now()
	blob, err := json.Marshal(sessionRecord{Accounts: []string{addr}, ConnectedAt: now})
	if err != nil {
		return nil, err
	}

	rec := store.Record{Value: blob, CreatedAt: now}
	if w.sessionTTL > 0 {
		rec.ExpiresAt = now.Add(w.sessionTTL)
	}
	if err := w.store.Save(ctx, w.sessionKey, rec); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	w.logger.Info("wallet session opened", zap.String("account", addr))
	return []string{addr}, nil
}

func (w *KeyWallet) Disconnect(ctx context.Context) error {
	if err := w.store.Delete(ctx, w.sessionKey); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	w.logger.Info("wallet session closed", zap.String("account", w.Address()))
	return nil
}

func (w *KeyWallet) SignTransactionGroup(ctx context.Context, group []SignerTransaction) ([][]byte, error) {
	if len(group) == 0 {
		return nil, errors.New("transaction group is empty")
	}

	accounts, err := w.RestoreSession(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoSession
	}

	addr := w.Address()
	details := make([]string, 0, len(group))
	for i, item := range group {
		signers := item.Signers
		if len(signers) == 0 {
			signers = []string{item.Txn.Sender.String()}
		}
		for _, signer := range signers {
			if signer != addr {
				return nil, fmt.Errorf("txn %d signer %s: %w", i, signer, ErrUnknownSigner)
			}
		}
		if item.Txn.Sender.String() != addr {
			return nil, fmt.Errorf("txn %d sender %s: %w", i, item.Txn.Sender.String(), ErrUnknownSigner)
		}
		details = append(details, describeTxn(item.Txn))
	}

	if err := w.approver.Approve(ctx, Request{Kind: RequestSign, Account: addr, Details: details}); err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}

	signed := make([][]byte, 0, len(group))
	for i, item := range group {
		txID, blob, err := crypto.SignTransaction(w.account.PrivateKey, item.Txn)
		if err != nil {
			return nil, fmt.Errorf("sign txn %d: %w", i, err)
		}
		w.logger.Debug("signed transaction", zap.String("txId", txID))
		signed = append(signed, blob)
	}
	return signed, nil
}
