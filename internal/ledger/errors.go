package ledger

import "fmt"

// ValidationError reports a malformed transaction. The transaction was not
// applied and the portfolio is untouched; the caller may correct the named
// field and retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid transaction: %s %s", e.Field, e.Reason)
}

// PositionNotFoundError reports a sell against a symbol the portfolio does
// not hold.
type PositionNotFoundError struct {
	Symbol string
}

func (e *PositionNotFoundError) Error() string {
	return fmt.Sprintf("no open position for %s", e.Symbol)
}

// InsufficientQuantityError reports a sell whose quantity exceeds the held
// quantity. The ledger rejects these instead of clamping so the journal
// stays replayable without losing shares.
type InsufficientQuantityError struct {
	Symbol    string
	Held      string
	Requested string
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("cannot sell %s of %s: only %s held", e.Requested, e.Symbol, e.Held)
}
