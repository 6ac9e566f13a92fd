package cmd

import (
	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the wallet and keep the session for later commands",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cfg, cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		err = a.ctrl.Connect(cmd.Context())
		printSnapshot(cmd.OutOrStdout(), a.ctrl.Snapshot())
		return err
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "End the wallet session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cfg, cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		a.ctrl.Disconnect(cmd.Context())
		printSnapshot(cmd.OutOrStdout(), a.ctrl.Snapshot())
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the wallet session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cfg, cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		printSnapshot(cmd.OutOrStdout(), a.ctrl.Snapshot())
		return nil
	},
}
