// Package chart loads chart-of-accounts and currency configuration
// from YAML and builds the in-memory account hierarchy.
package chart

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// CurrencyConfig declares a ledger currency. The numeric id doubles as
// the currency's base layer.
type CurrencyConfig struct {
	Name string `yaml:"name"`
	ID   int16  `yaml:"id"`
}

// AccountNode is one node of the configured account tree. Nodes with
// children are composite; leaves are final (postable) accounts and
// must carry a currency and a type.
type AccountNode struct {
	Code        string            `yaml:"code"`
	Description string            `yaml:"description"`
	Type        string            `yaml:"type"` // "debit" or "credit"
	Currency    string            `yaml:"currency"`
	Tags        map[string]string `yaml:"tags"`
	Accounts    []AccountNode     `yaml:"accounts"`
}

// Config is the complete chart configuration.
type Config struct {
	Currencies []CurrencyConfig `yaml:"currencies"`
	Chart      AccountNode      `yaml:"chart"`
	Journal    string           `yaml:"journal"`
}

// Load reads and validates a chart configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration: currency layer ranges must not
// overlap, account codes must be unique, and every final account must
// reference a configured currency.
func (c *Config) Validate() error {
	if len(c.Currencies) == 0 {
		return fmt.Errorf("chart config declares no currencies")
	}

	currencies := c.currencies()
	if err := ledger.ValidateCurrencyLayers(currencyValues(currencies)); err != nil {
		return fmt.Errorf("invalid currency configuration: %w", err)
	}

	seen := make(map[string]struct{})
	return c.Chart.validate(currencies, seen, true)
}

func (n *AccountNode) validate(currencies map[string]ledger.Currency, seen map[string]struct{}, isRoot bool) error {
	if n.Code == "" {
		return fmt.Errorf("account without code (description %q)", n.Description)
	}
	if _, ok := seen[n.Code]; ok {
		return fmt.Errorf("duplicate account code: %s", n.Code)
	}
	seen[n.Code] = struct{}{}

	if len(n.Accounts) == 0 {
		if isRoot {
			return fmt.Errorf("chart root %s has no accounts", n.Code)
		}
		if n.Currency == "" {
			return fmt.Errorf("final account %s has no currency", n.Code)
		}
		if _, ok := currencies[n.Currency]; !ok {
			return fmt.Errorf("final account %s references unknown currency %s", n.Code, n.Currency)
		}
		if n.Type != "debit" && n.Type != "credit" {
			return fmt.Errorf("final account %s has invalid type %q", n.Code, n.Type)
		}
		return nil
	}

	for i := range n.Accounts {
		if err := n.Accounts[i].validate(currencies, seen, false); err != nil {
			return err
		}
	}
	return nil
}

// Build materializes the configured tree into ledger accounts and
// returns the chart root alongside the currency table.
func (c *Config) Build() (*ledger.Account, []ledger.Currency, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	root := buildAccount(&c.Chart)
	root.Root = root
	for _, child := range root.Children {
		rewireRoot(child, root)
	}
	return root, currencyValues(c.currencies()), nil
}

func buildAccount(n *AccountNode) *ledger.Account {
	acct := &ledger.Account{
		Code:         n.Code,
		Description:  n.Description,
		CurrencyCode: n.Currency,
		Tags:         ledger.NewTags(),
		Final:        len(n.Accounts) == 0,
	}
	for k, v := range n.Tags {
		acct.Tags.Add(k + ":" + v)
	}
	switch n.Type {
	case "debit":
		acct.Type = ledger.AccountDebit
	case "credit":
		acct.Type = ledger.AccountCredit
	}
	for i := range n.Accounts {
		acct.AddChild(buildAccount(&n.Accounts[i]))
	}
	return acct
}

func rewireRoot(acct *ledger.Account, root *ledger.Account) {
	acct.Root = root
	for _, child := range acct.Children {
		rewireRoot(child, root)
	}
}

// JournalName returns the configured journal name, defaulting to the
// chart code.
func (c *Config) JournalName() string {
	if c.Journal != "" {
		return c.Journal
	}
	return c.Chart.Code
}

func (c *Config) currencies() map[string]ledger.Currency {
	out := make(map[string]ledger.Currency, len(c.Currencies))
	for _, cc := range c.Currencies {
		out[cc.Name] = ledger.Currency{ID: cc.ID, Name: cc.Name}
	}
	return out
}

func currencyValues(m map[string]ledger.Currency) []ledger.Currency {
	out := make([]ledger.Currency, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}
