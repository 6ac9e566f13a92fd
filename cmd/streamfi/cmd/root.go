package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"streamfi/internal/config"
	"streamfi/internal/logging"
)

var (
	cfgFile string

	cfg    *config.AppConfig
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "streamfi",
	Short: "Create Algorand payment streams from a wallet session",
	Long: `streamfi connects a wallet, opens payment streams on the deployed
streaming contract and claims accrued funds. Run "streamfi serve" for the
web page and JSON API, or use the session and stream commands directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		log, err := logging.New(loaded.App.Env, loaded.App.LogLevel)
		if err != nil {
			return err
		}
		cfg, logger = loaded, log
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./streamfi.yaml or ./config/streamfi.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(fundCmd)
	rootCmd.AddCommand(claimableCmd)
}
