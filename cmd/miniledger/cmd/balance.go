package cmd

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/greenkode/miniledger/pkg/ledger"
)

var balanceAccount string

// balanceCmd represents the balance command.
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Display per-layer account balances",
	Long: `Display the snapshotted balance of an account on every layer it
has entries on.

Example:
  miniledger balance --account cust.alice`,
	Run: runBalance,
}

func init() {
	balanceCmd.Flags().StringVar(&balanceAccount, "account", "", "account code (required)")

	balanceCmd.MarkFlagRequired("account")
}

func runBalance(cmd *cobra.Command, args []string) {
	_, stores, err := openStores()
	exitOnError(err, "failed to open ledger")
	defer stores.conn.Close()

	accounts, err := stores.accounts.FinalAccountsByCodes([]string{balanceAccount})
	exitOnError(err, "failed to resolve account")

	acct, ok := accounts[balanceAccount]
	if !ok {
		exitOnError(ledger.NewNotFound("account", balanceAccount), "failed to resolve account")
	}

	currencies, err := stores.accounts.CurrenciesByNames([]string{acct.CurrencyCode})
	exitOnError(err, "failed to resolve currency")
	currency, ok := currencies[acct.CurrencyCode]
	if !ok {
		exitOnError(ledger.NewNotFound("currency", acct.CurrencyCode), "failed to resolve currency")
	}

	balances, err := stores.snapshots.Balances(acct)
	exitOnError(err, "failed to read balances")

	fmt.Printf("\n=== %s (%s, %s) ===\n", acct.Code, acct.Description, acct.CurrencyCode)
	if len(balances) == 0 {
		fmt.Println("No entries posted")
		return
	}

	layers := make([]ledger.Layer, 0, len(balances))
	for l := range balances {
		layers = append(layers, l)
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i] < layers[j] })

	for _, l := range layers {
		name := fmt.Sprintf("layer %d", l)
		if kind, ok := ledger.KindOf(l, currency); ok {
			name = kind.String()
		}
		fmt.Printf("%-20s %s\n", name, balances[l].String())
	}
	fmt.Println()

	slog.Debug("Balances displayed", "account", acct.Code, "layers", len(layers))
}
