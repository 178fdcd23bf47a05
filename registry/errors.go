package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPayment indicates the payment at PaymentSlot is missing or
	// does not pay at least the unitary price from the caller to the registry.
	ErrInvalidPayment = errors.New("registry: invalid payment")

	// ErrCapacityExceeded indicates MaxTokens tokens already exist.
	ErrCapacityExceeded = errors.New("registry: capacity exceeded")

	// ErrUnknownToken indicates no record exists for the token id.
	ErrUnknownToken = errors.New("registry: unknown token")

	// ErrLedgerOperationFailed indicates the ledger refused a requested
	// asset creation or transfer.
	ErrLedgerOperationFailed = errors.New("registry: ledger operation failed")

	// ErrDisallowedLifecycleTransition indicates an update or delete of the registry.
	ErrDisallowedLifecycleTransition = errors.New("registry: lifecycle transition not allowed")

	// ErrUnknownCallKind indicates an empty or unrecognized first argument.
	ErrUnknownCallKind = errors.New("registry: unknown call kind")

	// ErrInvalidArguments indicates malformed call arguments.
	ErrInvalidArguments = errors.New("registry: invalid arguments")

	// ErrUnauthorized indicates the caller may not perform the call under
	// the configured policy.
	ErrUnauthorized = errors.New("registry: unauthorized")

	// ErrNotInitialized indicates the global state lacks the registry keys.
	ErrNotInitialized = errors.New("registry: not initialized")

	// ErrAlreadyInitialized indicates creation over existing state.
	ErrAlreadyInitialized = errors.New("registry: already initialized")

	// ErrCorruptRecord indicates a stored token record cannot be decoded.
	ErrCorruptRecord = errors.New("registry: corrupt token record")
)

// Kind classifies registry errors for callers and metrics.
type Kind uint8

const (
	KindNone Kind = iota
	KindInvalidPayment
	KindCapacityExceeded
	KindUnknownToken
	KindLedgerOperationFailed
	KindDisallowedLifecycleTransition
	KindUnknownCallKind
	KindInvalidArguments
	KindUnauthorized
	KindNotInitialized
	KindAlreadyInitialized
	KindInternal
)

var kindNames = [...]string{
	KindNone:                          "",
	KindInvalidPayment:                "InvalidPayment",
	KindCapacityExceeded:              "CapacityExceeded",
	KindUnknownToken:                  "UnknownToken",
	KindLedgerOperationFailed:         "LedgerOperationFailed",
	KindDisallowedLifecycleTransition: "DisallowedLifecycleTransition",
	KindUnknownCallKind:               "UnknownCallKind",
	KindInvalidArguments:              "InvalidArguments",
	KindUnauthorized:                  "Unauthorized",
	KindNotInitialized:                "NotInitialized",
	KindAlreadyInitialized:            "AlreadyInitialized",
	KindInternal:                      "Internal",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

var kindOrder = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidPayment, KindInvalidPayment},
	{ErrCapacityExceeded, KindCapacityExceeded},
	{ErrUnknownToken, KindUnknownToken},
	{ErrLedgerOperationFailed, KindLedgerOperationFailed},
	{ErrDisallowedLifecycleTransition, KindDisallowedLifecycleTransition},
	{ErrUnknownCallKind, KindUnknownCallKind},
	{ErrInvalidArguments, KindInvalidArguments},
	{ErrUnauthorized, KindUnauthorized},
	{ErrNotInitialized, KindNotInitialized},
	{ErrAlreadyInitialized, KindAlreadyInitialized},
}

// KindOf returns the kind of the first registry sentinel wrapped by err,
// KindNone for nil and KindInternal for anything else.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, e := range kindOrder {
		if errors.Is(err, e.err) {
			return e.kind
		}
	}
	return KindInternal
}
