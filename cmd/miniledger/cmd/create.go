package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/greenkode/miniledger/pkg/engine"
	"github.com/greenkode/miniledger/pkg/ledger"
)

var (
	createReference string
	createType      string
	createGroup     string
	createPending   bool
	createDebit     string
	createCredit    string
	createAmount    string
	createCurrency  string
	createDetail    string
	createKind      string
	createMaxDebit  string
	createMetadata  []string
	createFile      string
)

// fileRequest is the JSON shape accepted by --file: a full creation
// request with one or more transfer legs.
type fileRequest struct {
	Reference string            `json:"reference"`
	Type      string            `json:"type"`
	Group     string            `json:"group"`
	Pending   bool              `json:"pending"`
	Metadata  map[string]string `json:"metadata"`
	Limit     *struct {
		MinTransactionDebit decimal.Decimal `json:"min_transaction_debit"`
		MaxTransactionDebit decimal.Decimal `json:"max_transaction_debit"`
	} `json:"limit"`
	Entries []struct {
		DebitAccount  string          `json:"debit_account"`
		CreditAccount string          `json:"credit_account"`
		Amount        decimal.Decimal `json:"amount"`
		Currency      string          `json:"currency"`
		Detail        string          `json:"detail"`
		Kind          string          `json:"kind"`
		SkipLimits    bool            `json:"skip_limits"`
	} `json:"entries"`
}

// createCmd represents the create command.
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a ledger transaction",
	Long: `Create a transaction between two accounts.

Direct transfers post on the base layer immediately. Pending transfers
(--pending with an INBOUND or BILL_PAYMENT group) hold the amount on
the pending layer until completed.

Example:
  miniledger create --reference TX-1 --debit cust.alice --credit cust.bob --amount 25.00 --currency USD
  miniledger create --reference TX-2 --pending --group INBOUND --type DEPOSIT \
    --debit settlement.usd --credit cust.alice --amount 100.00 --currency USD`,
	Run: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createReference, "reference", "", "external transaction reference (required)")
	createCmd.Flags().StringVar(&createType, "type", "", "transaction type")
	createCmd.Flags().StringVar(&createGroup, "group", "", "transaction group (INBOUND, BILL_PAYMENT)")
	createCmd.Flags().BoolVar(&createPending, "pending", false, "hold the amount on the pending layer")
	createCmd.Flags().StringVar(&createDebit, "debit", "", "debit account code (required)")
	createCmd.Flags().StringVar(&createCredit, "credit", "", "credit account code (required)")
	createCmd.Flags().StringVar(&createAmount, "amount", "", "transfer amount (required)")
	createCmd.Flags().StringVar(&createCurrency, "currency", "", "ISO currency name (required)")
	createCmd.Flags().StringVar(&createDetail, "detail", "", "entry detail text")
	createCmd.Flags().StringVar(&createKind, "kind", "AMOUNT", "entry kind (AMOUNT, FEE, COMMISSION, REBATE)")
	createCmd.Flags().StringVar(&createMaxDebit, "max-debit", "", "maximum transaction debit limit")
	createCmd.Flags().StringArrayVar(&createMetadata, "meta", nil, "metadata key=value (repeatable)")
	createCmd.Flags().StringVar(&createFile, "file", "", "JSON request file (replaces the per-leg flags)")
}

func runCreate(cmd *cobra.Command, args []string) {
	cfg, stores, err := openStores()
	exitOnError(err, "failed to open ledger")
	defer stores.conn.Close()

	err = cfg.Validate("chartCode")
	exitOnError(err, "invalid configuration")

	var req *engine.CreateRequest
	if createFile != "" {
		req, err = requestFromFile(createFile)
		exitOnError(err, "invalid request file")
	} else {
		req, err = requestFromFlags()
		exitOnError(err, "invalid request flags")
	}

	chart, err := stores.accounts.LoadChart(cfg.Ledger.ChartCode)
	exitOnError(err, "failed to load chart")

	service := newService(cfg, stores)

	slog.Info("Creating transaction", "reference", req.Reference, "pending", req.Pending)
	detail, err := service.Create(req, chart)
	exitOnError(err, "failed to create transaction")

	printDetail("Created", detail)
}

// requestFromFlags builds a single-leg creation request from the
// command line flags.
func requestFromFlags() (*engine.CreateRequest, error) {
	for name, value := range map[string]string{
		"reference": createReference,
		"debit":     createDebit,
		"credit":    createCredit,
		"amount":    createAmount,
		"currency":  createCurrency,
	} {
		if value == "" {
			return nil, fmt.Errorf("--%s is required unless --file is given", name)
		}
	}

	amount, err := decimal.NewFromString(createAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", createAmount, err)
	}

	req := &engine.CreateRequest{
		Reference: createReference,
		Type:      createType,
		Group:     createGroup,
		Pending:   createPending,
		Metadata:  parseMetadata(createMetadata),
		Entries: []engine.EntryRequest{{
			DebitAccount:  createDebit,
			CreditAccount: createCredit,
			Amount:        amount,
			Currency:      createCurrency,
			Detail:        createDetail,
			Kind:          ledger.EntryKind(createKind),
		}},
	}
	if createMaxDebit != "" {
		maxDebit, err := decimal.NewFromString(createMaxDebit)
		if err != nil {
			return nil, fmt.Errorf("invalid max-debit %q: %w", createMaxDebit, err)
		}
		req.Limit = &engine.Limit{MaxTransactionDebit: maxDebit}
	}
	return req, nil
}

// requestFromFile reads a JSON creation request from path.
func requestFromFile(path string) (*engine.CreateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file fileRequest
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if file.Reference == "" {
		return nil, fmt.Errorf("%s: reference is required", path)
	}
	if len(file.Entries) == 0 {
		return nil, fmt.Errorf("%s: at least one entry is required", path)
	}

	req := &engine.CreateRequest{
		Reference: file.Reference,
		Type:      file.Type,
		Group:     file.Group,
		Pending:   file.Pending,
		Metadata:  file.Metadata,
	}
	if file.Limit != nil {
		req.Limit = &engine.Limit{
			MinTransactionDebit: file.Limit.MinTransactionDebit,
			MaxTransactionDebit: file.Limit.MaxTransactionDebit,
		}
	}
	for _, e := range file.Entries {
		kind := e.Kind
		if kind == "" {
			kind = string(ledger.KindAmount)
		}
		req.Entries = append(req.Entries, engine.EntryRequest{
			DebitAccount:  e.DebitAccount,
			CreditAccount: e.CreditAccount,
			Amount:        e.Amount,
			Currency:      e.Currency,
			Detail:        e.Detail,
			Kind:          ledger.EntryKind(kind),
			SkipLimits:    e.SkipLimits,
		})
	}
	return req, nil
}

// parseMetadata turns repeated key=value flags into a metadata map.
func parseMetadata(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, found := strings.Cut(p, "=")
		if !found {
			continue
		}
		out[k] = v
	}
	return out
}

func printDetail(operation string, detail *engine.TransactionDetail) {
	fmt.Printf("%s %s\n", operation, detail.Reference)
	keys := make([]string, 0, len(detail.Metadata))
	for k := range detail.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %s\n", k, detail.Metadata[k])
	}
}
