package oracle

import "errors"

// Failure kinds. Every kind except ErrUnexpectedForeignCall is absorbed at
// the verification boundary and rendered as a "0" verdict; the kind is kept
// for logs and metrics only.
var (
	ErrMalformedCall         = errors.New("malformed call")
	ErrUnexpectedForeignCall = errors.New("unexpected foreign call")
	ErrUnknownMethod         = errors.New("unknown method")
	ErrNotIncluded           = errors.New("transaction not included")
	ErrTransactionFailed     = errors.New("transaction failed on chain")
	ErrFieldMismatch         = errors.New("field mismatch")
	ErrConfigurationMissing  = errors.New("rpc endpoint not configured")
)
