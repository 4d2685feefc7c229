package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// memStore is an in-memory implementation of the service's lookup and
// persistence contracts.
type memStore struct {
	currencies map[string]ledger.Currency
	chart      *ledger.Account
	journal    *ledger.Journal

	posted    []*ledger.Transaction
	byRef     map[string]*ledger.Transaction
	groups    map[string]*ledger.TransactionGroup
	nextID    int64
	snapshots int

	// reversedOrder records original references in the order they were
	// reversed, for group ordering assertions.
	reversedOrder []string
}

func newMemStore(chart *ledger.Account, currencies ...ledger.Currency) *memStore {
	s := &memStore{
		currencies: map[string]ledger.Currency{},
		chart:      chart,
		journal:    &ledger.Journal{ID: 1, Name: chart.Code, Chart: chart},
		byRef:      map[string]*ledger.Transaction{},
		groups:     map[string]*ledger.TransactionGroup{},
	}
	for _, c := range currencies {
		s.currencies[c.Name] = c
	}
	return s
}

func (s *memStore) FinalAccountsByCodes(codes []string) (map[string]*ledger.Account, error) {
	out := map[string]*ledger.Account{}
	for _, code := range codes {
		if a := s.chart.FindByCode(code); a != nil && a.IsFinal() {
			out[code] = a
		}
	}
	return out, nil
}

func (s *memStore) CurrenciesByNames(names []string) (map[string]ledger.Currency, error) {
	out := map[string]ledger.Currency{}
	for _, n := range names {
		if c, ok := s.currencies[n]; ok {
			out[n] = c
		}
	}
	return out, nil
}

func (s *memStore) JournalForChart(chart *ledger.Account) (*ledger.Journal, error) {
	return s.journal, nil
}

func (s *memStore) Post(tx *ledger.Transaction) error {
	if err := tx.CheckBalance(); err != nil {
		return err
	}
	s.nextID++
	tx.ID = s.nextID
	s.posted = append(s.posted, tx)
	s.byRef[tx.Detail] = tx
	return nil
}

func (s *memStore) FindByReference(ref string) (*ledger.Transaction, error) {
	return s.byRef[ref], nil
}

func (s *memStore) FindGroup(ref string) (*ledger.TransactionGroup, error) {
	return s.groups[ref], nil
}

func (s *memStore) Reverse(tx *ledger.Transaction, reversalRef string) (string, error) {
	rev := tx.BuildReversal(reversalRef)
	if err := s.Post(rev); err != nil {
		return "", err
	}
	tx.MarkReversed(rev.Detail)
	s.reversedOrder = append(s.reversedOrder, tx.Detail)
	return rev.Detail, nil
}

func (s *memStore) Complete(original, completion *ledger.Transaction) error {
	if completion.Journal == nil {
		completion.Journal = original.Journal
	}
	if err := s.Post(completion); err != nil {
		return err
	}
	s.groups[original.Detail] = &ledger.TransactionGroup{
		Name:         original.Detail,
		Transactions: []*ledger.Transaction{original, completion},
	}
	original.MarkCompleted(completion.Detail)
	return nil
}

func (s *memStore) UpdateSnapshotsAfterTransaction(tx *ledger.Transaction) error {
	s.snapshots++
	return nil
}

var usd = ledger.Currency{ID: 840, Name: "USD"}

// newTestChart builds a small retail chart: two customer wallets, a
// settlement cash account, a biller, an expense account and the USD
// bridge pair.
func newTestChart() *ledger.Account {
	root := &ledger.Account{ID: 1, Code: "bank", Description: "Retail bank"}
	accounts := []*ledger.Account{
		{ID: 2, Code: "cust.alice", Description: "Alice wallet", Type: ledger.AccountCredit, CurrencyCode: "USD", Final: true},
		{ID: 3, Code: "cust.bob", Description: "Bob wallet", Type: ledger.AccountCredit, CurrencyCode: "USD", Final: true},
		{ID: 4, Code: "settlement.usd", Description: "Settlement cash", Type: ledger.AccountDebit, CurrencyCode: "USD", Final: true},
		{ID: 5, Code: "biller.power", Description: "Power utility", Type: ledger.AccountCredit, CurrencyCode: "USD", Final: true},
		{ID: 6, Code: "expense.commissions", Description: "Commission expense", Type: ledger.AccountDebit, CurrencyCode: "USD", Final: true,
			Tags: ledger.NewTags("type:EXPENSE")},
		{ID: 7, Code: "bridge.assets.usd", Description: "bridge-assets-USD", Type: ledger.AccountDebit, CurrencyCode: "USD", Final: true},
		{ID: 8, Code: "bridge.liabilities.usd", Description: "bridge-liabilities-USD", Type: ledger.AccountCredit, CurrencyCode: "USD", Final: true},
	}
	for _, a := range accounts {
		if a.Tags == nil {
			a.Tags = ledger.NewTags()
		}
		root.AddChild(a)
	}
	return root
}

func newTestService(store *memStore) *Service {
	refs := 0
	return NewService(ServiceConfig{
		Accounts:     store,
		Currencies:   store,
		Journals:     store,
		Transactions: store,
		Snapshots:    store,
		NewReference: func() string {
			refs++
			return fmt.Sprintf("GEN-%d", refs)
		},
	})
}

func directRequest(ref string, amount string) *CreateRequest {
	return &CreateRequest{
		Reference: ref,
		Type:      "TRANSFER",
		Entries: []EntryRequest{{
			DebitAccount:  "cust.alice",
			CreditAccount: "cust.bob",
			Amount:        decimal.RequireFromString(amount),
			Currency:      "USD",
			Detail:        "wallet transfer",
			Kind:          ledger.KindAmount,
		}},
	}
}

func pendingInboundRequest(ref string, amount string) *CreateRequest {
	return &CreateRequest{
		Reference: ref,
		Type:      "DEPOSIT",
		Group:     GroupInbound,
		Pending:   true,
		Entries: []EntryRequest{{
			DebitAccount:  "settlement.usd",
			CreditAccount: "cust.alice",
			Amount:        decimal.RequireFromString(amount),
			Currency:      "USD",
			Detail:        "bank deposit",
			Kind:          ledger.KindAmount,
		}},
	}
}

func TestCreateDirectTransfer(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	detail, err := svc.Create(directRequest("TX-1", "25.00"), chart)
	require.NoError(t, err)

	assert.Equal(t, "TX-1", detail.Reference)
	assert.Equal(t, "TX-1", detail.Metadata["transactions"])

	require.Len(t, store.posted, 1)
	tx := store.posted[0]
	require.Len(t, tx.Entries, 6)
	assert.NoError(t, tx.CheckBalance())
	assert.ElementsMatch(t, []ledger.Layer{840, 4840, 5840}, tx.AffectedLayers())

	amount := decimal.RequireFromString("25.00")
	bob := chart.FindByCode("cust.bob")
	assert.True(t, tx.Impact(bob, 840).Equal(amount))
	assert.Equal(t, 1, store.snapshots)
}

func TestCreateMetadataFlattenedOntoTags(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	req := directRequest("TX-1", "10.00")
	req.Metadata = map[string]string{"channel": "mobile"}

	detail, err := svc.Create(req, chart)
	require.NoError(t, err)

	assert.Equal(t, "mobile", detail.Metadata["channel"])
	assert.Contains(t, detail.Metadata["account_ids"], "cust.alice")
	assert.True(t, store.posted[0].Meta.Contains("channel:mobile"))
	assert.Equal(t, "TRANSFER", store.posted[0].State.Type)
}

func TestCreateMissingAccountAbortsWithoutPosting(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	req := directRequest("TX-1", "10.00")
	req.Entries[0].CreditAccount = "cust.nobody"

	_, err := svc.Create(req, chart)

	var notFound *ledger.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "cust.nobody", notFound.Ref)
	assert.Empty(t, store.posted)
	assert.Zero(t, store.snapshots)
}

func TestCreateRejectsLimitBreach(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	req := directRequest("TX-1", "500.00")
	req.Limit = &Limit{MaxTransactionDebit: decimal.RequireFromString("100.00")}

	_, err := svc.Create(req, chart)

	var validation *ledger.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Empty(t, store.posted)
}

func TestCreatePendingInboundHoldsOnPendingLayer(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	_, err := svc.Create(pendingInboundRequest("TX-1", "100.00"), chart)
	require.NoError(t, err)

	require.Len(t, store.posted, 1)
	tx := store.posted[0]
	require.Len(t, tx.Entries, 6)
	assert.NoError(t, tx.CheckBalance())
	assert.ElementsMatch(t, []ledger.Layer{840, 1840}, tx.AffectedLayers())

	amount := decimal.RequireFromString("100.00")
	alice := chart.FindByCode("cust.alice")
	assert.True(t, tx.Impact(alice, 840).IsZero(), "base balance untouched until completion")
	assert.True(t, tx.Impact(alice, 1840).Equal(amount), "full amount visible as pending")

	// The held amount sits in the liability bridge, marked for alice.
	var marked *ledger.Entry
	for _, e := range tx.Entries {
		if e.Completion != nil {
			marked = e
		}
	}
	require.NotNil(t, marked)
	assert.Equal(t, "bridge.liabilities.usd", marked.Account.Code)
	assert.Equal(t, "cust.alice", marked.Completion.Account)
	assert.True(t, marked.Completion.Credit)
}

func TestCompletePendingInbound(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	_, err := svc.Create(pendingInboundRequest("TX-1", "100.00"), chart)
	require.NoError(t, err)

	detail, err := svc.Complete("TX-1")
	require.NoError(t, err)

	assert.Equal(t, "TX-1", detail.Reference)
	require.Len(t, store.posted, 2)

	original, completion := store.posted[0], store.posted[1]
	assert.NoError(t, completion.CheckBalance())
	assert.Equal(t, "TX-1", completion.State.Completes)
	assert.True(t, original.State.Completed)
	assert.Equal(t, completion.Detail, original.State.CompletionRef)

	amount := decimal.RequireFromString("100.00")
	alice := chart.FindByCode("cust.alice")
	base := original.Impact(alice, 840).Add(completion.Impact(alice, 840))
	pending := original.Impact(alice, 1840).Add(completion.Impact(alice, 1840))
	assert.True(t, base.Equal(amount), "completion lands the amount on the base layer")
	assert.True(t, pending.IsZero(), "pending layer fully unwound")

	// The pair is grouped under the original reference.
	require.NotNil(t, store.groups["TX-1"])
	assert.Len(t, store.groups["TX-1"].Transactions, 2)
}

func TestCompleteIsIdempotent(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	_, err := svc.Create(pendingInboundRequest("TX-1", "100.00"), chart)
	require.NoError(t, err)

	_, err = svc.Complete("TX-1")
	require.NoError(t, err)
	posted := len(store.posted)

	detail, err := svc.Complete("TX-1")
	require.NoError(t, err)

	assert.Equal(t, StatusAlreadyCompleted, detail.Metadata["status"])
	assert.Len(t, store.posted, posted, "no second completion posted")
}

func TestCompleteUnknownReference(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	_, err := svc.Complete("TX-404")

	var notFound *ledger.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestCompleteRequiresGroupAndType(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	tx := ledger.NewTransaction("TX-1")
	tx.Journal = store.journal
	alice := chart.FindByCode("cust.alice")
	bob := chart.FindByCode("cust.bob")
	amount := decimal.RequireFromString("10.00")
	tx.CreateDebit(alice, amount, "transfer", 840)
	tx.CreateCredit(bob, amount, "transfer", 840)
	require.NoError(t, store.Post(tx))

	_, err := svc.Complete("TX-1")

	var inconsistent *ledger.InconsistentStateError
	require.ErrorAs(t, err, &inconsistent)
	assert.Contains(t, inconsistent.Reason, "transaction group")
}

func TestCompleteDirectTransactionFails(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	req := directRequest("TX-1", "10.00")
	req.Group = "TRANSFERS"
	_, err := svc.Create(req, chart)
	require.NoError(t, err)

	_, err = svc.Complete("TX-1")

	var inconsistent *ledger.InconsistentStateError
	require.ErrorAs(t, err, &inconsistent)
	assert.Contains(t, inconsistent.Reason, "no pending entries")
}

func TestReverseSingleTransaction(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	_, err := svc.Create(directRequest("TX-1", "25.00"), chart)
	require.NoError(t, err)

	detail, err := svc.Reverse("TX-1", "RV-1")
	require.NoError(t, err)

	assert.Equal(t, "RV-1", detail.Reference)
	assert.Equal(t, "TX-1,RV-1", detail.Metadata["transactions"])

	require.Len(t, store.posted, 2)
	original, counter := store.posted[0], store.posted[1]
	assert.True(t, original.State.Reversed)
	assert.Equal(t, "RV-1", original.State.ReversalRef)
	assert.Equal(t, "TX-1", counter.State.Reverses)

	bob := chart.FindByCode("cust.bob")
	net := original.Impact(bob, 840).Add(counter.Impact(bob, 840))
	assert.True(t, net.IsZero(), "reversal nets every account to zero")
}

func TestReverseIsIdempotent(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	_, err := svc.Create(directRequest("TX-1", "25.00"), chart)
	require.NoError(t, err)

	_, err = svc.Reverse("TX-1", "RV-1")
	require.NoError(t, err)
	posted := len(store.posted)

	detail, err := svc.Reverse("TX-1", "RV-2")
	require.NoError(t, err)

	assert.Equal(t, StatusAlreadyReversed, detail.Metadata["status"])
	assert.Len(t, store.posted, posted, "no second counter transaction posted")
}

func TestReverseUnknownReference(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	_, err := svc.Reverse("TX-404", "RV-1")

	var notFound *ledger.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

// postGroupMember posts a balanced two-entry transaction and returns
// it, for group reversal tests.
func postGroupMember(t *testing.T, store *memStore, chart *ledger.Account, ref string, postDate time.Time) *ledger.Transaction {
	t.Helper()
	alice := chart.FindByCode("cust.alice")
	bob := chart.FindByCode("cust.bob")
	amount := decimal.RequireFromString("10.00")

	tx := ledger.NewTransaction(ref)
	tx.Journal = store.journal
	tx.PostDate = postDate
	tx.CreateDebit(alice, amount, "transfer", 840)
	tx.CreateCredit(bob, amount, "transfer", 840)
	require.NoError(t, store.Post(tx))
	return tx
}

func TestReverseGroupNewestFirst(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	first := postGroupMember(t, store, chart, "LEG-1", day)
	second := postGroupMember(t, store, chart, "LEG-2", day.Add(24*time.Hour))
	store.groups["GRP-1"] = &ledger.TransactionGroup{
		Name:         "GRP-1",
		Transactions: []*ledger.Transaction{first, second},
	}

	detail, err := svc.Reverse("GRP-1", "ignored")
	require.NoError(t, err)

	assert.Equal(t, "GRP-1", detail.Reference)
	assert.Equal(t, []string{"LEG-2", "LEG-1"}, store.reversedOrder)
	assert.True(t, first.State.Reversed)
	assert.True(t, second.State.Reversed)
}

func TestReverseGroupSamePostDateBreaksTieByID(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	first := postGroupMember(t, store, chart, "LEG-1", day)
	second := postGroupMember(t, store, chart, "LEG-2", day)
	store.groups["GRP-1"] = &ledger.TransactionGroup{
		Name:         "GRP-1",
		Transactions: []*ledger.Transaction{first, second},
	}

	_, err := svc.Reverse("GRP-1", "ignored")
	require.NoError(t, err)

	assert.Equal(t, []string{"LEG-2", "LEG-1"}, store.reversedOrder)
}

func TestReverseGroupPartiallyReversedFails(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	first := postGroupMember(t, store, chart, "LEG-1", day)
	second := postGroupMember(t, store, chart, "LEG-2", day)
	first.MarkReversed("RV-0")
	store.groups["GRP-1"] = &ledger.TransactionGroup{
		Name:         "GRP-1",
		Transactions: []*ledger.Transaction{first, second},
	}

	_, err := svc.Reverse("GRP-1", "ignored")

	var inconsistent *ledger.InconsistentStateError
	require.ErrorAs(t, err, &inconsistent)
	assert.False(t, second.State.Reversed, "no member reversed on failure")
}

func TestReverseGroupFullyReversedIsIdempotent(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	first := postGroupMember(t, store, chart, "LEG-1", day)
	second := postGroupMember(t, store, chart, "LEG-2", day)
	first.MarkReversed("RV-1")
	second.MarkReversed("RV-2")
	store.groups["GRP-1"] = &ledger.TransactionGroup{
		Name:         "GRP-1",
		Transactions: []*ledger.Transaction{first, second},
	}
	posted := len(store.posted)

	detail, err := svc.Reverse("GRP-1", "ignored")
	require.NoError(t, err)

	assert.Equal(t, StatusAlreadyReversed, detail.Metadata["status"])
	assert.Len(t, store.posted, posted)
}
