// Package cmd provides CLI commands for miniledger.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/greenkode/miniledger/pkg/config"
	"github.com/greenkode/miniledger/pkg/db"
	"github.com/greenkode/miniledger/pkg/engine"
	"github.com/greenkode/miniledger/pkg/store"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "miniledger",
	Short: "Layered double-entry ledger transaction engine",
	Long: `miniledger is a layered multi-currency double-entry ledger.

It supports:
- Importing a chart of accounts and currencies from YAML
- Creating direct and pending transfers between accounts
- Reversing transactions and transaction groups
- Completing pending transfers onto the base layer
- Inspecting per-layer account balances

Example:
  miniledger import --chart config/chart.yaml
  miniledger create --reference TX-1 --debit cust.alice --credit cust.bob --amount 25.00 --currency USD
  miniledger complete --reference TX-1`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(reverseCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(balanceCmd)
}

// Helper function to get config file path.
func getConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "" // Will use default .env loading
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}

// ledgerStores bundles the stores the commands share.
type ledgerStores struct {
	conn         *db.Connection
	session      *store.Session
	accounts     *store.AccountStore
	journals     *store.JournalStore
	transactions *store.TransactionStore
	snapshots    *store.SnapshotStore
}

// openStores loads configuration and opens the database and stores.
// Callers must Close the returned connection.
func openStores() (*config.Config, *ledgerStores, error) {
	cfg, err := config.Load(getConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate("dbPath"); err != nil {
		return nil, nil, err
	}

	slog.Debug("Opening database", "path", cfg.Ledger.DBPath)
	conn, err := db.Open(cfg.Ledger.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	session := store.NewSession(conn)
	accounts := store.NewAccountStore(session)
	return cfg, &ledgerStores{
		conn:         conn,
		session:      session,
		accounts:     accounts,
		journals:     store.NewJournalStore(session),
		transactions: store.NewTransactionStore(session, accounts),
		snapshots:    store.NewSnapshotStore(session),
	}, nil
}

// newService wires the lifecycle service over the opened stores.
func newService(cfg *config.Config, stores *ledgerStores) *engine.Service {
	return engine.NewService(engine.ServiceConfig{
		Accounts:     stores.accounts,
		Currencies:   stores.accounts,
		Journals:     stores.journals,
		Transactions: stores.transactions,
		Snapshots:    stores.snapshots,
		Printer:      engine.NewMovementPrinter(cfg.Ledger.PrintMovements),
		Atomic:       stores.session,
	})
}
