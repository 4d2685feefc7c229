package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// AccountStore persists the chart of accounts and configured
// currencies and serves the engine's account and currency lookups.
type AccountStore struct {
	session *Session
}

// NewAccountStore creates an AccountStore over a session.
func NewAccountStore(session *Session) *AccountStore {
	return &AccountStore{session: session}
}

// ImportChart persists a chart tree plus its currencies and creates
// the journal owned by the chart root. Accounts are upserted by code
// so re-importing an updated chart configuration is safe.
func (s *AccountStore) ImportChart(root *ledger.Account, currencies []ledger.Currency, journalName string) error {
	if err := ledger.ValidateCurrencyLayers(currencies); err != nil {
		return fmt.Errorf("failed to validate currencies: %w", err)
	}

	for _, c := range currencies {
		_, err := s.session.q().Exec(
			`INSERT INTO currency (id, name) VALUES (?, ?)
			 ON CONFLICT(name) DO UPDATE SET id = excluded.id`,
			c.ID, c.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to save currency %s: %w", c.Name, err)
		}
	}

	rootID, err := s.saveAccount(root, 0, 0)
	if err != nil {
		return err
	}

	var walkErr error
	root.Walk(func(a *ledger.Account) bool {
		if a == root {
			return true
		}
		var parentID int64
		if a.Parent != nil {
			parentID = a.Parent.ID
		}
		if _, err := s.saveAccount(a, parentID, rootID); err != nil {
			walkErr = err
			return false
		}
		return true
	})
	if walkErr != nil {
		return walkErr
	}

	_, err = s.session.q().Exec(
		`INSERT INTO journal (name, chart) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET chart = excluded.chart`,
		journalName, rootID,
	)
	if err != nil {
		return fmt.Errorf("failed to save journal %s: %w", journalName, err)
	}
	return nil
}

func (s *AccountStore) saveAccount(a *ledger.Account, parentID, rootID int64) (int64, error) {
	var parent, root interface{}
	if parentID != 0 {
		parent = parentID
	}
	if rootID != 0 {
		root = rootID
	}

	var tags string
	if a.Tags != nil {
		tags = a.Tags.String()
	}

	final := 0
	if a.Final {
		final = 1
	}

	_, err := s.session.q().Exec(
		`INSERT INTO acct (code, description, tags, type, currency, final, parent, root)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET
		   description = excluded.description,
		   tags = excluded.tags,
		   type = excluded.type,
		   currency = excluded.currency,
		   final = excluded.final,
		   parent = excluded.parent,
		   root = excluded.root`,
		a.Code, a.Description, tags, int(a.Type), a.CurrencyCode, final, parent, root,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save account %s: %w", a.Code, err)
	}

	var id int64
	if err := s.session.q().QueryRow(`SELECT id FROM acct WHERE code = ?`, a.Code).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read back account %s: %w", a.Code, err)
	}
	a.ID = id
	return id, nil
}

// LoadChart loads the full chart tree rooted at the account with the
// given code, wiring parent, root and children pointers.
func (s *AccountStore) LoadChart(code string) (*ledger.Account, error) {
	root, err := s.accountByCode(code)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, ledger.NewNotFound("chart", code)
	}

	rows, err := s.session.q().Query(
		`SELECT id, code, description, tags, type, currency, final, parent
		 FROM acct WHERE root = ? ORDER BY id`, root.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart %s: %w", code, err)
	}
	defer rows.Close()

	byID := map[int64]*ledger.Account{root.ID: root}
	parents := map[int64]int64{}
	var order []int64
	for rows.Next() {
		a, parentID, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		byID[a.ID] = a
		parents[a.ID] = parentID
		order = append(order, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load chart %s: %w", code, err)
	}

	for _, id := range order {
		parent, ok := byID[parents[id]]
		if !ok {
			return nil, ledger.NewInconsistentState(
				fmt.Sprintf("account %s has a parent outside chart %s", byID[id].Code, code))
		}
		parent.AddChild(byID[id])
	}
	return root, nil
}

// FinalAccountsByCodes resolves postable accounts by code, with their
// chart roots fully loaded so bridge resolution can walk the tree.
// Codes with no final account are simply absent from the result.
func (s *AccountStore) FinalAccountsByCodes(codes []string) (map[string]*ledger.Account, error) {
	out := make(map[string]*ledger.Account, len(codes))
	if len(codes) == 0 {
		return out, nil
	}

	placeholders := strings.Repeat("?,", len(codes)-1) + "?"
	args := make([]interface{}, len(codes))
	for i, c := range codes {
		args[i] = c
	}

	rows, err := s.session.q().Query(
		`SELECT a.code, r.code
		 FROM acct a JOIN acct r ON a.root = r.id
		 WHERE a.code IN (`+placeholders+`) AND a.final = 1`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve accounts: %w", err)
	}

	rootOf := map[string]string{}
	for rows.Next() {
		var code, rootCode string
		if err := rows.Scan(&code, &rootCode); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to resolve accounts: %w", err)
		}
		rootOf[code] = rootCode
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to resolve accounts: %w", err)
	}
	rows.Close()

	charts := map[string]*ledger.Account{}
	for code, rootCode := range rootOf {
		chart, ok := charts[rootCode]
		if !ok {
			chart, err = s.LoadChart(rootCode)
			if err != nil {
				return nil, err
			}
			charts[rootCode] = chart
		}
		if a := chart.FindByCode(code); a != nil && a.IsFinal() {
			out[code] = a
		}
	}
	return out, nil
}

// CurrenciesByNames resolves currencies by ISO name. Unknown names are
// absent from the result.
func (s *AccountStore) CurrenciesByNames(names []string) (map[string]ledger.Currency, error) {
	out := make(map[string]ledger.Currency, len(names))
	if len(names) == 0 {
		return out, nil
	}

	placeholders := strings.Repeat("?,", len(names)-1) + "?"
	args := make([]interface{}, len(names))
	for i, n := range names {
		args[i] = n
	}

	rows, err := s.session.q().Query(
		`SELECT id, name FROM currency WHERE name IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve currencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c ledger.Currency
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to resolve currencies: %w", err)
		}
		out[c.Name] = c
	}
	return out, rows.Err()
}

// Currencies returns every configured currency.
func (s *AccountStore) Currencies() ([]ledger.Currency, error) {
	rows, err := s.session.q().Query(`SELECT id, name FROM currency ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}
	defer rows.Close()

	var out []ledger.Currency
	for rows.Next() {
		var c ledger.Currency
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to list currencies: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *AccountStore) accountByCode(code string) (*ledger.Account, error) {
	row := s.session.q().QueryRow(
		`SELECT id, code, description, tags, type, currency, final, parent
		 FROM acct WHERE code = ?`, code,
	)
	a, _, err := scanAccountRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", code, err)
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(rows *sql.Rows) (*ledger.Account, int64, error) {
	a, parentID, err := scanAccountRow(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan account: %w", err)
	}
	return a, parentID, nil
}

func scanAccountRow(row rowScanner) (*ledger.Account, int64, error) {
	var (
		a        ledger.Account
		tags     string
		typ      int
		currency sql.NullString
		final    int
		parent   sql.NullInt64
	)
	if err := row.Scan(&a.ID, &a.Code, &a.Description, &tags, &typ, &currency, &final, &parent); err != nil {
		return nil, 0, err
	}
	a.Tags = ledger.ParseTags(tags)
	a.Type = ledger.AccountType(typ)
	a.CurrencyCode = currency.String
	a.Final = final == 1
	return &a, parent.Int64, nil
}
