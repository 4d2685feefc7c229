package engine

import (
	"github.com/greenkode/miniledger/pkg/ledger"
)

// Validator rejects a creation request before any entry is built.
type Validator interface {
	Validate(req *CreateRequest, ctx *TransactionContext) error
}

// CompositeValidator runs a fixed list of validators in order and
// fails on the first rejection.
type CompositeValidator struct {
	validators []Validator
}

// NewCompositeValidator creates a CompositeValidator.
func NewCompositeValidator(validators ...Validator) *CompositeValidator {
	return &CompositeValidator{validators: validators}
}

// NewStandardValidator wires the standard validation chain: account
// existence, currency consistency and transaction limits.
func NewStandardValidator() *CompositeValidator {
	return NewCompositeValidator(
		AccountExistenceValidator{},
		CurrencyConsistencyValidator{},
		TransactionLimitValidator{},
	)
}

// Validate implements Validator.
func (v *CompositeValidator) Validate(req *CreateRequest, ctx *TransactionContext) error {
	for _, inner := range v.validators {
		if err := inner.Validate(req, ctx); err != nil {
			return err
		}
	}
	return nil
}

// AccountExistenceValidator checks every referenced account code was
// resolved into the context.
type AccountExistenceValidator struct{}

// Validate implements Validator.
func (AccountExistenceValidator) Validate(req *CreateRequest, ctx *TransactionContext) error {
	for _, code := range req.AccountCodes() {
		if _, ok := ctx.Accounts[code]; !ok {
			return ledger.NewNotFound("account", code)
		}
	}
	return nil
}

// CurrencyConsistencyValidator checks both accounts of each entry and
// the entry amount share a single currency.
type CurrencyConsistencyValidator struct{}

// Validate implements Validator.
func (CurrencyConsistencyValidator) Validate(req *CreateRequest, ctx *TransactionContext) error {
	for _, entry := range req.Entries {
		credit, ok := ctx.Accounts[entry.CreditAccount]
		if !ok {
			return ledger.NewNotFound("account", entry.CreditAccount)
		}
		debit, ok := ctx.Accounts[entry.DebitAccount]
		if !ok {
			return ledger.NewNotFound("account", entry.DebitAccount)
		}
		if credit.CurrencyCode != debit.CurrencyCode {
			return ledger.NewValidation(
				"currency mismatch between credit account (%s) and debit account (%s)",
				credit.CurrencyCode, debit.CurrencyCode,
			)
		}
		if credit.CurrencyCode != entry.Currency {
			return ledger.NewValidation(
				"currency mismatch between accounts (%s) and transaction amount (%s)",
				credit.CurrencyCode, entry.Currency,
			)
		}
	}
	return nil
}

// TransactionLimitValidator bounds amount entries by the request's
// min/max debit limits. Entries flagged SkipLimits are exempt.
type TransactionLimitValidator struct{}

// Validate implements Validator.
func (TransactionLimitValidator) Validate(req *CreateRequest, ctx *TransactionContext) error {
	if req.Limit == nil {
		return nil
	}
	for _, entry := range req.Entries {
		if entry.SkipLimits || entry.Kind != ledger.KindAmount {
			continue
		}
		if entry.Amount.GreaterThan(req.Limit.MaxTransactionDebit) {
			return ledger.NewValidation(
				"maximum transaction debit exceeded: %s > %s",
				entry.Amount, req.Limit.MaxTransactionDebit,
			)
		}
		if entry.Amount.LessThan(req.Limit.MinTransactionDebit) {
			return ledger.NewValidation(
				"minimum transaction debit not met: %s < %s",
				entry.Amount, req.Limit.MinTransactionDebit,
			)
		}
	}
	return nil
}
