package cmd

import (
	"fmt"
	"io"

	"streamfi/internal/stream"
)

func printSnapshot(w io.Writer, snap stream.Snapshot) {
	account := snap.Account
	if account == "" {
		account = "-"
	}
	fmt.Fprintf(w, "network: %s (app %d)\n", snap.Network, snap.AppID)
	fmt.Fprintf(w, "state:   %s\n", snap.State)
	fmt.Fprintf(w, "account: %s\n", account)
	if snap.Status != "" {
		fmt.Fprintf(w, "status:  %s\n", snap.Status)
	}
}

func printReceipt(w io.Writer, r stream.Receipt) {
	if r.ExplorerURL != "" {
		fmt.Fprintf(w, "explorer: %s\n", r.ExplorerURL)
	}
	if r.ConfirmedRound > 0 {
		fmt.Fprintf(w, "confirmed in round %d\n", r.ConfirmedRound)
	}
}

func printAccrual(w io.Writer, a stream.Accrual) {
	worker := a.Worker
	if worker == "" {
		worker = "-"
	}
	fmt.Fprintf(w, "worker:    %s\n", worker)
	fmt.Fprintf(w, "rate:      %d microAlgos/s (%s ALGO/s)\n", a.RateMicroAlgos, stream.RateInAlgos(a.RateMicroAlgos))
	fmt.Fprintf(w, "elapsed:   %ds since last claim\n", a.ElapsedSeconds)
	fmt.Fprintf(w, "claimable: %d microAlgos (%s ALGO)\n", a.ClaimableMicroAlgos, a.ClaimableAlgos)
	fmt.Fprintf(w, "claimed:   %d microAlgos\n", a.ClaimedMicroAlgos)
}
