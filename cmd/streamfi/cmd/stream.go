package cmd

import (
	"github.com/spf13/cobra"

	"streamfi/internal/stream"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Manage payment streams",
}

var streamCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a payment stream to a recipient",
	Example: `  streamfi stream create --recipient <ADDRESS> --rate 1000`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		recipient, _ := cmd.Flags().GetString("recipient")
		rate, _ := cmd.Flags().GetString("rate")

		a, err := newApp(cmd.Context(), cfg, cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		receipt, err := a.ctrl.CreateStream(cmd.Context(), stream.StreamRequest{
			Recipient: recipient,
			Rate:      rate,
		})
		if stream.IsNotice(err) {
			return err
		}
		printSnapshot(cmd.OutOrStdout(), a.ctrl.Snapshot())
		if err != nil {
			return err
		}
		printReceipt(cmd.OutOrStdout(), receipt)
		return nil
	},
}

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim what has accrued to the connected account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cfg, cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		receipt, err := a.ctrl.Claim(cmd.Context())
		if stream.IsNotice(err) {
			return err
		}
		printSnapshot(cmd.OutOrStdout(), a.ctrl.Snapshot())
		if err != nil {
			return err
		}
		printReceipt(cmd.OutOrStdout(), receipt)
		return nil
	},
}

var fundCmd = &cobra.Command{
	Use:     "fund",
	Short:   "Send microAlgos to the contract account",
	Example: `  streamfi fund --amount 1000000`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		amount, _ := cmd.Flags().GetString("amount")

		a, err := newApp(cmd.Context(), cfg, cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		receipt, err := a.ctrl.Fund(cmd.Context(), stream.FundRequest{Amount: amount})
		if stream.IsNotice(err) {
			return err
		}
		printSnapshot(cmd.OutOrStdout(), a.ctrl.Snapshot())
		if err != nil {
			return err
		}
		printReceipt(cmd.OutOrStdout(), receipt)
		return nil
	},
}

var claimableCmd = &cobra.Command{
	Use:   "claimable",
	Short: "Show what the stream has accrued since the last claim",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cfg, cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		acc, err := a.ctrl.Claimable(cmd.Context())
		if err != nil {
			return err
		}
		printAccrual(cmd.OutOrStdout(), acc)
		return nil
	},
}

func init() {
	fundCmd.Flags().String("amount", "", "amount in microAlgos")
	_ = fundCmd.MarkFlagRequired("amount")

	streamCreateCmd.Flags().String("recipient", "", "recipient (worker) address")
	streamCreateCmd.Flags().String("rate", "1000", "rate in microAlgos per second")
	_ = streamCreateCmd.MarkFlagRequired("recipient")

	streamCmd.AddCommand(streamCreateCmd)
}
