package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"streamfi/internal/chain"
	"streamfi/internal/config"
	"streamfi/internal/store"
	"streamfi/internal/stream"
	"streamfi/internal/wallet"
)

// app holds the collaborators every command needs.
type app struct {
	store      store.Store
	node       chain.Client
	wallet     *wallet.KeyWallet
	ctrl       *stream.Controller
	closeStore func() error
}

// newApp builds the controller from configuration and restores any wallet
// session left by a previous run.
func newApp(ctx context.Context, cfg *config.AppConfig, in io.Reader, out io.Writer) (*app, error) {
	st, closeStore, err := store.Open(ctx, store.Options{
		Backend:       cfg.Store.Backend,
		FilePath:      cfg.Store.FilePath,
		PostgresDSN:   cfg.Store.PostgresDSN,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
	})
	if err != nil {
		return nil, err
	}

	a := &app{store: st, closeStore: closeStore}
	if err := a.init(ctx, cfg, in, out); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context, cfg *config.AppConfig, in io.Reader, out io.Writer) error {
	if cfg.Chain.Fake {
		logger.Warn("using in-process fake node; nothing reaches the network")
		a.node = chain.NewFakeClient()
	} else {
		node, err := chain.NewAlgodClient(chain.AlgodClientConfig{
			Address: cfg.Algod.Address,
			Token:   cfg.Algod.Token,
		})
		if err != nil {
			return err
		}
		a.node = node
	}

	phrase, err := resolveMnemonic(cfg.Wallet.Mnemonic)
	if err != nil {
		return err
	}

	var approver wallet.Approver = wallet.AutoApprover{}
	if cfg.Wallet.Approval == "prompt" {
		approver = wallet.NewPromptApprover(in, out)
	}

	w, err := wallet.NewKeyWallet(wallet.KeyWalletConfig{
		Mnemonic:   phrase,
		SessionKey: cfg.Wallet.SessionKey,
		SessionTTL: cfg.Wallet.SessionTTL,
	}, a.store, approver, wallet.WithLogger(logger.Named("wallet")))
	if err != nil {
		return err
	}
	a.wallet = w

	ctrl, err := stream.NewController(stream.Config{
		AppID:         cfg.Contract.AppID,
		Network:       cfg.Contract.Network,
		ExplorerTxURL: cfg.Contract.ExplorerTxURL,
		ConfirmRounds: cfg.Contract.ConfirmRounds,
	}, w, a.node, stream.WithLogger(logger.Named("stream")))
	if err != nil {
		return err
	}
	a.ctrl = ctrl

	ctrl.Restore(ctx)
	return nil
}

func (a *app) Close() {
	if err := a.closeStore(); err != nil {
		logger.Warn("close store", zap.Error(err))
	}
}

var isTerminal = term.IsTerminal

// resolveMnemonic returns the configured phrase or asks for it on the
// terminal with echo disabled.
func resolveMnemonic(configured string) (string, error) {
	if strings.TrimSpace(configured) != "" {
		return configured, nil
	}

	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return "", errors.New("no wallet mnemonic configured: set STREAMFI_WALLET_MNEMONIC or wallet.mnemonic")
	}

	fmt.Fprint(os.Stderr, "Wallet mnemonic (25 words): ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read mnemonic: %w", err)
	}
	return string(raw), nil
}
