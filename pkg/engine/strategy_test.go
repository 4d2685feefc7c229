package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenkode/miniledger/pkg/ledger"
)

func TestSelectorDispatch(t *testing.T) {
	selector := NewDefaultSelector()

	tests := []struct {
		name    string
		ctx     *TransactionContext
		want    string
		wantErr bool
	}{
		{
			name: "non-pending goes direct",
			ctx:  &TransactionContext{Pending: false, Group: "TRANSFERS"},
			want: "direct",
		},
		{
			name: "pending inbound",
			ctx:  &TransactionContext{Pending: true, Group: GroupInbound},
			want: "pending-inbound",
		},
		{
			name: "pending bill payment",
			ctx:  &TransactionContext{Pending: true, Group: GroupBillPayment},
			want: "pending-bill-payment",
		},
		{
			name:    "pending with unknown group has no strategy",
			ctx:     &TransactionContext{Pending: true, Group: "UNKNOWN"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy, err := selector.Select(tt.ctx)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, strategy.Name())
		})
	}
}

// alwaysStrategy matches every context, for ambiguity tests.
type alwaysStrategy struct{ *DirectStrategy }

func (alwaysStrategy) Name() string                           { return "always" }
func (alwaysStrategy) CanHandle(ctx *TransactionContext) bool { return true }

func TestSelectorRejectsAmbiguousDispatch(t *testing.T) {
	selector := NewSelector(NewDirectStrategy(), alwaysStrategy{NewDirectStrategy()})

	_, err := selector.Select(&TransactionContext{Pending: false})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestExecutorRejectsUnbalancedBatch(t *testing.T) {
	chart := newTestChart()
	alice := chart.FindByCode("cust.alice")
	bob := chart.FindByCode("cust.bob")
	x := NewSpecExecutor()

	tx := ledger.NewTransaction("TX-1")
	err := x.Execute(tx, []EntrySpec{
		DebitSpec(alice, decimal.RequireFromString("10"), 840, "transfer"),
		CreditSpec(bob, decimal.RequireFromString("9"), 840, "transfer"),
	})

	var balanceErr *ledger.BalanceError
	require.ErrorAs(t, err, &balanceErr)
	assert.Empty(t, tx.Entries, "nothing attached on rejection")
}

func TestExecutorRejectsCompositeAccount(t *testing.T) {
	chart := newTestChart()
	alice := chart.FindByCode("cust.alice")
	x := NewSpecExecutor()

	tx := ledger.NewTransaction("TX-1")
	err := x.Execute(tx, []EntrySpec{
		DebitSpec(chart, decimal.RequireFromString("10"), 840, "transfer"),
		CreditSpec(alice, decimal.RequireFromString("10"), 840, "transfer"),
	})

	var validation *ledger.ValidationError
	require.ErrorAs(t, err, &validation)
}

func billPaymentRequest(ref string, entries ...EntryRequest) *CreateRequest {
	return &CreateRequest{
		Reference: ref,
		Type:      "AIRTIME",
		Group:     GroupBillPayment,
		Pending:   true,
		Entries:   entries,
	}
}

func TestBillPaymentLifecycle(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	amount := decimal.RequireFromString("50.00")
	commission := decimal.RequireFromString("1.50")
	req := billPaymentRequest("TX-1",
		EntryRequest{
			DebitAccount:  "cust.alice",
			CreditAccount: "biller.power",
			Amount:        amount,
			Currency:      "USD",
			Detail:        "power bill",
			Kind:          ledger.KindAmount,
		},
		EntryRequest{
			DebitAccount:  "expense.commissions",
			CreditAccount: "biller.power",
			Amount:        commission,
			Currency:      "USD",
			Detail:        "agent commission",
			Kind:          ledger.KindCommission,
		},
	)

	_, err := svc.Create(req, chart)
	require.NoError(t, err)

	require.Len(t, store.posted, 1)
	tx := store.posted[0]
	assert.NoError(t, tx.CheckBalance())

	biller := chart.FindByCode("biller.power")
	assert.True(t, tx.Impact(biller, 1840).Equal(amount.Add(commission)), "biller sees principal plus commission pending")
	assert.True(t, tx.Impact(biller, 840).IsZero())

	_, err = svc.Complete("TX-1")
	require.NoError(t, err)

	require.Len(t, store.posted, 2)
	completion := store.posted[1]
	assert.NoError(t, completion.CheckBalance())
	assert.True(t, tx.State.Completed)

	// Pending fully unwound and the bridge hold released on base.
	assert.True(t, tx.Impact(biller, 1840).Add(completion.Impact(biller, 1840)).IsZero())
	bridgeLiab := chart.FindByCode("bridge.liabilities.usd")
	assert.True(t, tx.Impact(bridgeLiab, 840).Add(completion.Impact(bridgeLiab, 840)).IsZero())
	assert.True(t, completion.Impact(biller, 840).IsPositive(), "biller settled on base layer")
}

func TestBillPaymentCommissionRequiresExpenseAccount(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	req := billPaymentRequest("TX-1", EntryRequest{
		DebitAccount:  "cust.alice",
		CreditAccount: "biller.power",
		Amount:        decimal.RequireFromString("1.50"),
		Currency:      "USD",
		Detail:        "agent commission",
		Kind:          ledger.KindCommission,
	})

	_, err := svc.Create(req, chart)

	var validation *ledger.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Empty(t, store.posted)
}

func TestDirectSkipLimitsSuppressesLimitEntries(t *testing.T) {
	chart := newTestChart()
	store := newMemStore(chart, usd)
	svc := newTestService(store)

	req := directRequest("TX-1", "10.00")
	req.Entries[0].SkipLimits = true

	_, err := svc.Create(req, chart)
	require.NoError(t, err)

	require.Len(t, store.posted, 1)
	assert.Len(t, store.posted[0].Entries, 2)
	assert.ElementsMatch(t, []ledger.Layer{840}, store.posted[0].AffectedLayers())
}

func TestBridgeResolutionIsDeterministic(t *testing.T) {
	chart := newTestChart()
	resolver := NewBridgeResolver()
	alice := chart.FindByCode("cust.alice")
	bob := chart.FindByCode("cust.bob")

	first, err := resolver.Resolve(alice, chart)
	require.NoError(t, err)
	second, err := resolver.Resolve(bob, chart)
	require.NoError(t, err)

	assert.Same(t, first.Asset, second.Asset)
	assert.Same(t, first.Liability, second.Liability)
	assert.Equal(t, "bridge.assets.usd", first.Asset.Code)
	assert.Equal(t, "bridge.liabilities.usd", first.Liability.Code)
}
