package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("ledger: required parameter is nil")

	// ErrEmptyGroup indicates a submitted group has no transactions.
	ErrEmptyGroup = errors.New("ledger: empty group")

	// ErrGroupTooLarge indicates more than MaxGroupSize transactions.
	ErrGroupTooLarge = errors.New("ledger: group too large")

	// ErrInvalidTxn indicates a malformed transaction.
	ErrInvalidTxn = errors.New("ledger: invalid transaction")

	// ErrBadSignature indicates a missing or invalid sender signature.
	ErrBadSignature = errors.New("ledger: bad signature")

	// ErrInsufficientFunds indicates a payment exceeds the sender balance.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrUnknownApp indicates the referenced application does not exist.
	ErrUnknownApp = errors.New("ledger: unknown application")

	// ErrUnknownProgram indicates no program is registered under the name.
	ErrUnknownProgram = errors.New("ledger: unknown program")

	// ErrUnknownAsset indicates the referenced asset does not exist.
	ErrUnknownAsset = errors.New("ledger: unknown asset")

	// ErrNotOptedIn indicates an account has not opted into an app or asset.
	ErrNotOptedIn = errors.New("ledger: account not opted in")

	// ErrAlreadyOptedIn indicates a duplicate application opt-in.
	ErrAlreadyOptedIn = errors.New("ledger: account already opted in")

	// ErrInsufficientAsset indicates the holder has fewer units than requested.
	ErrInsufficientAsset = errors.New("ledger: insufficient asset balance")

	// ErrNotClawback indicates a clawback by an account that is not the
	// asset's clawback address.
	ErrNotClawback = errors.New("ledger: sender is not the clawback address")

	// ErrProgramRejected indicates the application program rejected the call.
	ErrProgramRejected = errors.New("ledger: program rejected call")

	// ErrIndexOutOfRange indicates a group or account reference out of range.
	ErrIndexOutOfRange = errors.New("ledger: index out of range")

	// ErrGroupRejected is matched by every *RejectError.
	ErrGroupRejected = errors.New("ledger: group rejected")
)

// RejectError reports which transaction of a group caused its rejection.
type RejectError struct {
	Index int
	Err   error
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("ledger: group rejected at txn %d: %v", e.Index, e.Err)
}

// Unwrap exposes both ErrGroupRejected and the cause to errors.Is/As.
func (e *RejectError) Unwrap() []error {
	return []error{ErrGroupRejected, e.Err}
}

func reject(i int, err error) error {
	return &RejectError{Index: i, Err: err}
}
