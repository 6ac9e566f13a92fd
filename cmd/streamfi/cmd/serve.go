package cmd

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"streamfi/internal/config"
	"streamfi/internal/server"
)

// serveConfig switches prompt approval to auto. HTTP handlers must not block
// on the operator's terminal; configuring the mnemonic for serve is the consent.
func serveConfig(c *config.AppConfig) *config.AppConfig {
	out := *c
	if out.Wallet.Approval == "prompt" {
		logger.Info("serve approves wallet requests automatically")
		out.Wallet.Approval = "auto"
	}
	return &out
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the stream page and JSON API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, serveConfig(cfg), cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		apiServer := server.NewServer(cfg, a.ctrl, a.node, a.store, server.WithLogger(logger.Named("http")))

		errCh := make(chan error, 1)
		go func() {
			if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
		return nil
	},
}
