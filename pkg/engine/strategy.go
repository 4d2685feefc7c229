package engine

import (
	"fmt"
	"strings"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// Transaction groups with dedicated pending strategies.
const (
	GroupInbound     = "INBOUND"
	GroupBillPayment = "BILL_PAYMENT"
)

// Strategy decides which ledger layers a logical transfer touches.
// CreateEntries emits the specs for one entry request; Complete builds
// the completion entries that move pending amounts onto the base layer.
type Strategy interface {
	// Name identifies the strategy in errors and logs.
	Name() string

	// CanHandle reports whether the strategy applies to the context's
	// (type, group, pending) triple.
	CanHandle(ctx *TransactionContext) bool

	// CreateEntries turns one entry request into entry specs. The
	// union of emitted specs must independently satisfy the per-layer
	// balance law.
	CreateEntries(p *Payload) ([]EntrySpec, error)

	// Complete builds the completion entries for an original
	// transaction onto the completion transaction. currencies maps
	// currency code to its configured currency.
	Complete(original, completion *ledger.Transaction, currencies map[string]ledger.Currency) error
}

// Selector dispatches to the single applicable strategy for a context.
// Dispatch is total and explicit: a context matching zero or multiple
// strategies is a configuration error, never a runtime fallback.
type Selector struct {
	strategies []Strategy
}

// NewSelector creates a Selector over the given strategies.
func NewSelector(strategies ...Strategy) *Selector {
	return &Selector{strategies: strategies}
}

// NewDefaultSelector creates a Selector with the built-in strategies.
func NewDefaultSelector() *Selector {
	return NewSelector(
		NewDirectStrategy(),
		NewPendingInboundStrategy(),
		NewPendingBillPaymentStrategy(),
	)
}

// Select returns the one strategy that handles the context.
func (s *Selector) Select(ctx *TransactionContext) (Strategy, error) {
	var matches []string
	var selected Strategy
	for _, st := range s.strategies {
		if st.CanHandle(ctx) {
			matches = append(matches, st.Name())
			selected = st
		}
	}
	switch len(matches) {
	case 1:
		return selected, nil
	case 0:
		return nil, fmt.Errorf(
			"no entry strategy for type=%q group=%q pending=%v",
			ctx.Type, ctx.Group, ctx.Pending,
		)
	default:
		return nil, fmt.Errorf(
			"ambiguous entry strategy dispatch for type=%q group=%q pending=%v: %s",
			ctx.Type, ctx.Group, ctx.Pending, strings.Join(matches, ", "),
		)
	}
}
