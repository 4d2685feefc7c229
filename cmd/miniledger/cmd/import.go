package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/greenkode/miniledger/pkg/chart"
	"github.com/greenkode/miniledger/pkg/ledger"
)

var chartPath string

// importCmd represents the import command.
var importCmd = &cobra.Command{
	Use:     "import",
	Aliases: []string{"import-chart"},
	Short:   "Import a chart of accounts from YAML",
	Long: `Import a chart of accounts and currency configuration.

This command:
1. Loads and validates the YAML chart configuration
2. Rejects currency configurations with overlapping layer ranges
3. Upserts currencies and accounts, so re-importing an updated
   configuration is safe
4. Creates the journal owned by the chart root

Example:
  miniledger import --chart config/chart.yaml`,
	Run: runImport,
}

func init() {
	importCmd.Flags().StringVar(&chartPath, "chart", "", "chart configuration file (default from LEDGER_CHART_CONFIG)")
}

func runImport(cmd *cobra.Command, args []string) {
	cfg, stores, err := openStores()
	exitOnError(err, "failed to open ledger")
	defer stores.conn.Close()

	path := chartPath
	if path == "" {
		path = cfg.Ledger.ChartConfig
	}

	slog.Info("Importing chart", "path", path)
	chartCfg, err := chart.Load(path)
	exitOnError(err, "failed to load chart configuration")

	root, currencies, err := chartCfg.Build()
	exitOnError(err, "failed to build chart")

	err = stores.session.Atomically(func() error {
		return stores.accounts.ImportChart(root, currencies, chartCfg.JournalName())
	})
	exitOnError(err, "failed to import chart")

	accounts := 0
	root.Walk(func(a *ledger.Account) bool {
		accounts++
		return true
	})

	fmt.Printf("Imported chart %s: %d accounts, %d currencies, journal %s\n",
		root.Code, accounts, len(currencies), chartCfg.JournalName())
	slog.Info("Chart imported", "chart", root.Code, "accounts", accounts)
}
