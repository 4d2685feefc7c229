package store

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// TransactionStore persists transactions, entries and transaction
// groups. It enforces the per-layer double-entry balance law at post
// time: an unbalanced transaction never reaches the database.
type TransactionStore struct {
	session  *Session
	accounts *AccountStore
}

// NewTransactionStore creates a TransactionStore over a session.
func NewTransactionStore(session *Session, accounts *AccountStore) *TransactionStore {
	return &TransactionStore{session: session, accounts: accounts}
}

// Post durably persists a balanced transaction and its entries.
func (s *TransactionStore) Post(tx *ledger.Transaction) error {
	if err := tx.CheckBalance(); err != nil {
		return err
	}
	if tx.Journal == nil {
		return ledger.NewValidation("transaction has no journal")
	}

	journalID := tx.Journal.ID
	if journalID == 0 {
		err := s.session.q().QueryRow(
			`SELECT id FROM journal WHERE name = ?`, tx.Journal.Name,
		).Scan(&journalID)
		if err == sql.ErrNoRows {
			return ledger.NewNotFound("journal", tx.Journal.Name)
		}
		if err != nil {
			return fmt.Errorf("failed to resolve journal %s: %w", tx.Journal.Name, err)
		}
		tx.Journal.ID = journalID
	}

	res, err := s.session.q().Exec(
		`INSERT INTO transacc (detail, tags, timestamp, postdate, journal)
		 VALUES (?, ?, ?, ?, ?)`,
		tx.Detail, tx.EncodeTags(), tx.Timestamp, tx.PostDate, journalID,
	)
	if err != nil {
		return fmt.Errorf("failed to post transaction %s: %w", tx.Detail, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to post transaction %s: %w", tx.Detail, err)
	}
	tx.ID = id

	for i, e := range tx.Entries {
		if !e.Account.IsFinal() {
			return ledger.NewValidation(fmt.Sprintf("account %s is not postable", e.Account.Code))
		}
		acctID := e.Account.ID
		if acctID == 0 {
			err := s.session.q().QueryRow(`SELECT id FROM acct WHERE code = ?`, e.Account.Code).Scan(&acctID)
			if err == sql.ErrNoRows {
				return ledger.NewNotFound("account", e.Account.Code)
			}
			if err != nil {
				return fmt.Errorf("failed to resolve account %s: %w", e.Account.Code, err)
			}
			e.Account.ID = acctID
		}
		res, err := s.session.q().Exec(
			`INSERT INTO entry (transacc, posn, acct, amount, credit, detail, tags, layer)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, acctID, e.Amount.String(), boolInt(e.Credit), e.Detail, e.EncodeTags(), int(e.Layer),
		)
		if err != nil {
			return fmt.Errorf("failed to post entry %d of %s: %w", i, tx.Detail, err)
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to post entry %d of %s: %w", i, tx.Detail, err)
		}
	}
	return nil
}

// FindByReference resolves the newest transaction posted under the
// given detail reference, or (nil, nil) when none exists.
func (s *TransactionStore) FindByReference(ref string) (*ledger.Transaction, error) {
	var id int64
	err := s.session.q().QueryRow(
		`SELECT id FROM transacc WHERE detail = ? ORDER BY id DESC LIMIT 1`, ref,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction %s: %w", ref, err)
	}
	return s.loadTransaction(id)
}

// FindGroup resolves a transaction group and its member transactions,
// or (nil, nil) when no group carries the reference.
func (s *TransactionStore) FindGroup(ref string) (*ledger.TransactionGroup, error) {
	g := &ledger.TransactionGroup{Name: ref}
	err := s.session.q().QueryRow(`SELECT id FROM txngroup WHERE name = ?`, ref).Scan(&g.ID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group %s: %w", ref, err)
	}

	rows, err := s.session.q().Query(
		`SELECT transacc FROM txngroup_member WHERE grp = ? ORDER BY transacc`, g.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load group %s: %w", ref, err)
	}
	var memberIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to load group %s: %w", ref, err)
		}
		memberIDs = append(memberIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to load group %s: %w", ref, err)
	}
	rows.Close()

	for _, id := range memberIDs {
		tx, err := s.loadTransaction(id)
		if err != nil {
			return nil, err
		}
		g.Transactions = append(g.Transactions, tx)
	}
	return g, nil
}

// Reverse posts the counter transaction for tx under reversalRef and
// marks tx reversed. Returns the counter reference.
func (s *TransactionStore) Reverse(tx *ledger.Transaction, reversalRef string) (string, error) {
	rev := tx.BuildReversal(reversalRef)
	if err := s.Post(rev); err != nil {
		return "", fmt.Errorf("failed to post reversal of %s: %w", tx.Detail, err)
	}
	tx.MarkReversed(rev.Detail)
	if err := s.updateTags(tx); err != nil {
		return "", err
	}
	return rev.Detail, nil
}

// Complete posts the completion transaction, groups it with the
// original under the original's reference and marks the original
// completed.
func (s *TransactionStore) Complete(original, completion *ledger.Transaction) error {
	if completion.Journal == nil {
		completion.Journal = original.Journal
	}
	if err := s.Post(completion); err != nil {
		return fmt.Errorf("failed to post completion of %s: %w", original.Detail, err)
	}
	if err := s.addToGroup(original.Detail, original.ID, completion.ID); err != nil {
		return err
	}
	original.MarkCompleted(completion.Detail)
	return s.updateTags(original)
}

func (s *TransactionStore) addToGroup(name string, memberIDs ...int64) error {
	_, err := s.session.q().Exec(
		`INSERT INTO txngroup (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name,
	)
	if err != nil {
		return fmt.Errorf("failed to create group %s: %w", name, err)
	}
	var groupID int64
	if err := s.session.q().QueryRow(`SELECT id FROM txngroup WHERE name = ?`, name).Scan(&groupID); err != nil {
		return fmt.Errorf("failed to create group %s: %w", name, err)
	}
	for _, id := range memberIDs {
		_, err := s.session.q().Exec(
			`INSERT INTO txngroup_member (grp, transacc) VALUES (?, ?)
			 ON CONFLICT(grp, transacc) DO NOTHING`, groupID, id,
		)
		if err != nil {
			return fmt.Errorf("failed to add member to group %s: %w", name, err)
		}
	}
	return nil
}

func (s *TransactionStore) updateTags(tx *ledger.Transaction) error {
	_, err := s.session.q().Exec(
		`UPDATE transacc SET tags = ? WHERE id = ?`, tx.EncodeTags(), tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", tx.Detail, err)
	}
	return nil
}

func (s *TransactionStore) loadTransaction(id int64) (*ledger.Transaction, error) {
	tx := &ledger.Transaction{ID: id}
	var (
		tags      string
		journalID int64
	)
	err := s.session.q().QueryRow(
		`SELECT detail, tags, timestamp, postdate, journal FROM transacc WHERE id = ?`, id,
	).Scan(&tx.Detail, &tags, &tx.Timestamp, &tx.PostDate, &journalID)
	if err == sql.ErrNoRows {
		return nil, ledger.NewNotFound("transaction", fmt.Sprintf("#%d", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction #%d: %w", id, err)
	}
	tx.State, tx.Meta = ledger.DecodeTransactionTags(tags)

	journal, chart, err := s.loadJournal(journalID)
	if err != nil {
		return nil, err
	}
	tx.Journal = journal

	byID := map[int64]*ledger.Account{}
	chart.Walk(func(a *ledger.Account) bool {
		byID[a.ID] = a
		return true
	})

	rows, err := s.session.q().Query(
		`SELECT id, acct, amount, credit, detail, tags, layer
		 FROM entry WHERE transacc = ? ORDER BY posn`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries of #%d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e         ledger.Entry
			acctID    int64
			amount    string
			credit    int
			entryTags string
			layer     int
		)
		if err := rows.Scan(&e.ID, &acctID, &amount, &credit, &e.Detail, &entryTags, &layer); err != nil {
			return nil, fmt.Errorf("failed to load entries of #%d: %w", id, err)
		}
		acct, ok := byID[acctID]
		if !ok {
			return nil, ledger.NewInconsistentState(
				fmt.Sprintf("entry %d of %s references an account outside its journal chart", e.ID, tx.Detail))
		}
		e.Account = acct
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse amount of entry %d: %w", e.ID, err)
		}
		e.Credit = credit == 1
		e.Layer = ledger.Layer(layer)
		e.Tags, e.Completion = ledger.DecodeEntryTags(entryTags)
		tx.Entries = append(tx.Entries, &e)
	}
	return tx, rows.Err()
}

func (s *TransactionStore) loadJournal(id int64) (*ledger.Journal, *ledger.Account, error) {
	j := &ledger.Journal{ID: id}
	var chartCode string
	err := s.session.q().QueryRow(
		`SELECT j.name, a.code FROM journal j JOIN acct a ON j.chart = a.id WHERE j.id = ?`, id,
	).Scan(&j.Name, &chartCode)
	if err == sql.ErrNoRows {
		return nil, nil, ledger.NewNotFound("journal", fmt.Sprintf("#%d", id))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load journal #%d: %w", id, err)
	}
	chart, err := s.accounts.LoadChart(chartCode)
	if err != nil {
		return nil, nil, err
	}
	j.Chart = chart
	return j, chart, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
