package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/thaler-labs/donation-oracle/internal/metrics"
)

// RPC method names served by the oracle.
const (
	MethodVerifyDonation     = "verifyDonation"
	MethodResolveForeignCall = "resolve_foreign_call"
)

// Dispatcher routes an RPC method to the normalizer and verifier and
// encodes the verdict in the caller's wire format. Failure policy: every
// internal fault degrades to an encoded "0" verdict, except a foreign-call
// function mismatch and an unknown method, which surface as errors.
type Dispatcher struct {
	verifier *Verifier
	log      *slog.Logger
	mtr      *metrics.Metrics
}

// NewDispatcher builds a dispatcher over the verifier.
func NewDispatcher(verifier *Verifier, log *slog.Logger, mtr *metrics.Metrics) *Dispatcher {
	return &Dispatcher{verifier: verifier, log: log, mtr: mtr}
}

// Dispatch handles one JSON-RPC method invocation.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case MethodVerifyDonation:
		d.mtr.ForeignCalls()
		req, err := NormalizeDirect(params)
		if err != nil {
			d.log.Warn("malformed verifyDonation call", "error", err)
			return Verdict(false), nil
		}
		return Verdict(d.verifier.Verify(ctx, req)), nil

	case MethodResolveForeignCall:
		d.mtr.ForeignCalls()
		req, err := NormalizeForeignCall(MethodVerifyDonation, params)
		if err != nil {
			if errors.Is(err, ErrUnexpectedForeignCall) {
				// Protocol violation: the caller asked for a function this
				// oracle does not serve. Not a verification outcome.
				return nil, err
			}
			d.log.Warn("malformed foreign call", "error", err)
			return Verdict(false), nil
		}
		return Verdict(d.verifier.Verify(ctx, req)), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}
