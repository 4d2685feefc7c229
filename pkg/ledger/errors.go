package ledger

import "fmt"

// NotFoundError reports a missing account, currency, journal,
// transaction or group. It always aborts the whole operation with no
// partial effect.
type NotFoundError struct {
	Kind string // "account", "currency", "journal", "transaction", "group"
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Ref)
}

// NewNotFound builds a NotFoundError.
func NewNotFound(kind, ref string) *NotFoundError {
	return &NotFoundError{Kind: kind, Ref: ref}
}

// InconsistentStateError reports a state that must never be silently
// repaired, such as a partially reversed transaction group or a
// completion candidate missing its group/type markers.
type InconsistentStateError struct {
	Reason string
}

func (e *InconsistentStateError) Error() string {
	return "inconsistent ledger state: " + e.Reason
}

// NewInconsistentState builds an InconsistentStateError.
func NewInconsistentState(format string, args ...any) *InconsistentStateError {
	return &InconsistentStateError{Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports a request rejected by a validator before any
// entry is built.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid transaction request: " + e.Reason
}

// NewValidation builds a ValidationError.
func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// BalanceError reports a violation of the per-layer double-entry
// balance law.
type BalanceError struct {
	Detail  string
	Layer   Layer
	Debits  string
	Credits string
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf(
		"transaction (%s) does not balance: debits=%s, credits=%s (layer=%d)",
		e.Detail, e.Debits, e.Credits, e.Layer,
	)
}
