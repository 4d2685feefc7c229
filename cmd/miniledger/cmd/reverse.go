package cmd

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	reverseReference  string
	reverseCounterRef string
)

// reverseCmd represents the reverse command.
var reverseCmd = &cobra.Command{
	Use:   "reverse",
	Short: "Reverse a transaction or transaction group",
	Long: `Reverse the transaction (or every member of the transaction group)
posted under a reference.

Reversing an already-reversed reference is a no-op reported with
status already_reversed. A group in which only some members are
reversed is refused.

Example:
  miniledger reverse --reference TX-1
  miniledger reverse --reference TX-1 --reversal-reference RV-1`,
	Run: runReverse,
}

func init() {
	reverseCmd.Flags().StringVar(&reverseReference, "reference", "", "reference to reverse (required)")
	reverseCmd.Flags().StringVar(&reverseCounterRef, "reversal-reference", "", "counter transaction reference (default random)")

	reverseCmd.MarkFlagRequired("reference")
}

func runReverse(cmd *cobra.Command, args []string) {
	cfg, stores, err := openStores()
	exitOnError(err, "failed to open ledger")
	defer stores.conn.Close()

	reversalRef := reverseCounterRef
	if reversalRef == "" {
		reversalRef = uuid.NewString()
	}

	service := newService(cfg, stores)

	slog.Info("Reversing transaction", "reference", reverseReference, "reversal_reference", reversalRef)
	detail, err := service.Reverse(reverseReference, reversalRef)
	exitOnError(err, "failed to reverse transaction")

	printDetail("Reversed", detail)
}
