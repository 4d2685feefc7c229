package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var completeReference string

// completeCmd represents the complete command.
var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Complete a pending transaction",
	Long: `Complete the pending transaction posted under a reference,
releasing held amounts onto the base layer.

Completing an already-completed reference is a no-op reported with
status already_completed.

Example:
  miniledger complete --reference TX-1`,
	Run: runComplete,
}

func init() {
	completeCmd.Flags().StringVar(&completeReference, "reference", "", "reference to complete (required)")

	completeCmd.MarkFlagRequired("reference")
}

func runComplete(cmd *cobra.Command, args []string) {
	cfg, stores, err := openStores()
	exitOnError(err, "failed to open ledger")
	defer stores.conn.Close()

	service := newService(cfg, stores)

	slog.Info("Completing transaction", "reference", completeReference)
	detail, err := service.Complete(completeReference)
	exitOnError(err, "failed to complete transaction")

	printDetail("Completed", detail)
}
