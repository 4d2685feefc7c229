package store

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenkode/miniledger/pkg/db"
	"github.com/greenkode/miniledger/pkg/ledger"
)

func openTestSession(t *testing.T) *Session {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewSession(conn)
}

func importTestChart(t *testing.T, accounts *AccountStore) {
	t.Helper()
	root := &ledger.Account{Code: "bank", Description: "Retail bank"}
	for _, a := range []*ledger.Account{
		{Code: "cust.alice", Description: "Alice wallet", Type: ledger.AccountCredit, CurrencyCode: "USD", Final: true},
		{Code: "cust.bob", Description: "Bob wallet", Type: ledger.AccountCredit, CurrencyCode: "USD", Final: true},
		{Code: "settlement.usd", Description: "Settlement cash", Type: ledger.AccountDebit, CurrencyCode: "USD", Final: true},
	} {
		a.Tags = ledger.NewTags()
		root.AddChild(a)
	}
	root.Root = root

	err := accounts.ImportChart(root, []ledger.Currency{{ID: 840, Name: "USD"}}, "retail")
	require.NoError(t, err)
}

func TestImportChartRoundTrip(t *testing.T) {
	session := openTestSession(t)
	accounts := NewAccountStore(session)
	importTestChart(t, accounts)

	chart, err := accounts.LoadChart("bank")
	require.NoError(t, err)

	assert.Equal(t, "bank", chart.Code)
	assert.Len(t, chart.Children, 3)

	alice := chart.FindByCode("cust.alice")
	require.NotNil(t, alice)
	assert.True(t, alice.IsFinal())
	assert.True(t, alice.IsCredit())
	assert.Equal(t, "USD", alice.CurrencyCode)
	assert.Equal(t, chart, alice.Root)

	currencies, err := accounts.CurrenciesByNames([]string{"USD"})
	require.NoError(t, err)
	assert.Equal(t, int16(840), currencies["USD"].ID)
}

func TestImportChartIsRepeatable(t *testing.T) {
	session := openTestSession(t)
	accounts := NewAccountStore(session)
	importTestChart(t, accounts)
	importTestChart(t, accounts)

	chart, err := accounts.LoadChart("bank")
	require.NoError(t, err)
	assert.Len(t, chart.Children, 3)
}

func TestFinalAccountsByCodesSkipsUnknown(t *testing.T) {
	session := openTestSession(t)
	accounts := NewAccountStore(session)
	importTestChart(t, accounts)

	found, err := accounts.FinalAccountsByCodes([]string{"cust.alice", "cust.nobody"})
	require.NoError(t, err)

	assert.Len(t, found, 1)
	assert.Contains(t, found, "cust.alice")
}

func TestJournalForChart(t *testing.T) {
	session := openTestSession(t)
	accounts := NewAccountStore(session)
	importTestChart(t, accounts)

	chart, err := accounts.LoadChart("bank")
	require.NoError(t, err)

	journal, err := NewJournalStore(session).JournalForChart(chart)
	require.NoError(t, err)
	assert.Equal(t, "retail", journal.Name)
	assert.NotZero(t, journal.ID)
}

func postTestTransaction(t *testing.T, session *Session, ref string) (*TransactionStore, *ledger.Transaction) {
	t.Helper()
	accounts := NewAccountStore(session)
	importTestChart(t, accounts)

	chart, err := accounts.LoadChart("bank")
	require.NoError(t, err)
	journal, err := NewJournalStore(session).JournalForChart(chart)
	require.NoError(t, err)

	amount := decimal.RequireFromString("25.00")
	tx := ledger.NewTransaction(ref)
	tx.Journal = journal
	tx.State = ledger.State{Group: "TRANSFERS", Type: "TRANSFER"}
	tx.Meta.Add("channel:mobile")
	tx.CreateDebit(chart.FindByCode("cust.alice"), amount, "transfer", 840)
	e := tx.CreateCredit(chart.FindByCode("cust.bob"), amount, "transfer", 840)
	e.Completion = &ledger.CompletionMark{Credit: true, Account: "cust.bob", Kind: ledger.KindAmount}

	transactions := NewTransactionStore(session, accounts)
	require.NoError(t, transactions.Post(tx))
	return transactions, tx
}

func TestPostAndFindByReference(t *testing.T) {
	session := openTestSession(t)
	transactions, posted := postTestTransaction(t, session, "TX-1")

	loaded, err := transactions.FindByReference("TX-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, posted.ID, loaded.ID)
	assert.Equal(t, "TRANSFERS", loaded.State.Group)
	assert.Equal(t, "TRANSFER", loaded.State.Type)
	assert.True(t, loaded.Meta.Contains("channel:mobile"))

	require.Len(t, loaded.Entries, 2)
	assert.Equal(t, "cust.alice", loaded.Entries[0].Account.Code)
	assert.True(t, loaded.Entries[0].Amount.Equal(decimal.RequireFromString("25.00")))
	assert.False(t, loaded.Entries[0].Credit)
	assert.Equal(t, ledger.Layer(840), loaded.Entries[0].Layer)

	mark := loaded.Entries[1].Completion
	require.NotNil(t, mark)
	assert.True(t, mark.Credit)
	assert.Equal(t, "cust.bob", mark.Account)
	assert.Equal(t, ledger.KindAmount, mark.Kind)

	assert.NotNil(t, loaded.Entries[0].Account.Root, "entry accounts carry their chart root")
}

func TestFindByReferenceMissingReturnsNil(t *testing.T) {
	session := openTestSession(t)
	accounts := NewAccountStore(session)
	importTestChart(t, accounts)

	loaded, err := NewTransactionStore(session, accounts).FindByReference("TX-404")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestPostRejectsUnbalanced(t *testing.T) {
	session := openTestSession(t)
	accounts := NewAccountStore(session)
	importTestChart(t, accounts)

	chart, err := accounts.LoadChart("bank")
	require.NoError(t, err)
	journal, err := NewJournalStore(session).JournalForChart(chart)
	require.NoError(t, err)

	tx := ledger.NewTransaction("TX-1")
	tx.Journal = journal
	tx.CreateDebit(chart.FindByCode("cust.alice"), decimal.RequireFromString("10"), "transfer", 840)

	err = NewTransactionStore(session, accounts).Post(tx)

	var balanceErr *ledger.BalanceError
	require.ErrorAs(t, err, &balanceErr)
}

func TestReversePersistsCounterAndMarksOriginal(t *testing.T) {
	session := openTestSession(t)
	transactions, posted := postTestTransaction(t, session, "TX-1")

	ref, err := transactions.Reverse(posted, "RV-1")
	require.NoError(t, err)
	assert.Equal(t, "RV-1", ref)

	original, err := transactions.FindByReference("TX-1")
	require.NoError(t, err)
	assert.True(t, original.State.Reversed)
	assert.Equal(t, "RV-1", original.State.ReversalRef)

	counter, err := transactions.FindByReference("RV-1")
	require.NoError(t, err)
	require.NotNil(t, counter)
	assert.Equal(t, "TX-1", counter.State.Reverses)
	assert.True(t, counter.Entries[0].Amount.Equal(decimal.RequireFromString("-25.00")))
}

func TestCompleteGroupsAndMarks(t *testing.T) {
	session := openTestSession(t)
	transactions, posted := postTestTransaction(t, session, "TX-1")

	completion := ledger.NewTransaction("CP-1")
	completion.State = ledger.State{Group: "TRANSFERS", Type: "TRANSFER", Completes: "TX-1"}
	amount := decimal.RequireFromString("25.00")
	completion.CreateDebit(posted.Entries[1].Account, amount, "release", 840)
	completion.CreateCredit(posted.Entries[0].Account, amount, "release", 840)

	require.NoError(t, transactions.Complete(posted, completion))

	original, err := transactions.FindByReference("TX-1")
	require.NoError(t, err)
	assert.True(t, original.State.Completed)
	assert.Equal(t, "CP-1", original.State.CompletionRef)

	group, err := transactions.FindGroup("TX-1")
	require.NoError(t, err)
	require.NotNil(t, group)
	assert.Len(t, group.Transactions, 2)
}

func TestSnapshotRefreshAndBalance(t *testing.T) {
	session := openTestSession(t)
	transactions, posted := postTestTransaction(t, session, "TX-1")
	snapshots := NewSnapshotStore(session)

	require.NoError(t, snapshots.UpdateSnapshotsAfterTransaction(posted))

	alice := posted.Entries[0].Account
	bob := posted.Entries[1].Account

	aliceBalance, err := snapshots.Balance(alice, 840)
	require.NoError(t, err)
	assert.True(t, aliceBalance.Equal(decimal.RequireFromString("-25.00")), "credit account debited goes negative")

	bobBalance, err := snapshots.Balance(bob, 840)
	require.NoError(t, err)
	assert.True(t, bobBalance.Equal(decimal.RequireFromString("25.00")))

	// Reversal nets both accounts back to zero.
	_, err = transactions.Reverse(posted, "RV-1")
	require.NoError(t, err)
	counter, err := transactions.FindByReference("RV-1")
	require.NoError(t, err)
	require.NoError(t, snapshots.UpdateSnapshotsAfterTransaction(counter))

	aliceBalance, err = snapshots.Balance(alice, 840)
	require.NoError(t, err)
	assert.True(t, aliceBalance.IsZero())
}

func TestSnapshotBalanceUnknownLayerIsZero(t *testing.T) {
	session := openTestSession(t)
	_, posted := postTestTransaction(t, session, "TX-1")

	balance, err := NewSnapshotStore(session).Balance(posted.Entries[0].Account, 1840)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestAtomicallyRollsBackOnError(t *testing.T) {
	session := openTestSession(t)
	accounts := NewAccountStore(session)
	importTestChart(t, accounts)

	chart, err := accounts.LoadChart("bank")
	require.NoError(t, err)
	journal, err := NewJournalStore(session).JournalForChart(chart)
	require.NoError(t, err)
	transactions := NewTransactionStore(session, accounts)

	amount := decimal.RequireFromString("10.00")
	err = session.Atomically(func() error {
		tx := ledger.NewTransaction("TX-1")
		tx.Journal = journal
		tx.CreateDebit(chart.FindByCode("cust.alice"), amount, "transfer", 840)
		tx.CreateCredit(chart.FindByCode("cust.bob"), amount, "transfer", 840)
		if err := transactions.Post(tx); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	loaded, err := transactions.FindByReference("TX-1")
	require.NoError(t, err)
	assert.Nil(t, loaded, "posted transaction rolled back")
}
