package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/thaler-labs/donation-oracle/internal/config"
	"github.com/thaler-labs/donation-oracle/internal/metrics"
)

// Request is the canonical verification request every wire shape
// normalizes into. It is constructed per call and never mutated.
type Request struct {
	TxHash    common.Hash
	Sender    common.Address
	Recipient common.Address
	MinAmount *big.Int
}

// Verifier checks a donation transaction against its claimed properties.
type Verifier struct {
	reader LedgerReader // nil when no RPC endpoint is configured
	poller *Poller
	log    *slog.Logger
	mtr    *metrics.Metrics

	minConfirmations uint64
	maxAttempts      int
	initialDelay     time.Duration
}

// NewVerifier builds a verifier. reader may be nil; every verification
// then fails with a logged configuration error.
func NewVerifier(reader LedgerReader, cfg *config.Config, log *slog.Logger, mtr *metrics.Metrics) *Verifier {
	return &Verifier{
		reader:           reader,
		poller:           NewPoller(reader, log, mtr),
		log:              log,
		mtr:              mtr,
		minConfirmations: cfg.MinConfirmations,
		maxAttempts:      cfg.PollMaxAttempts,
		initialDelay:     cfg.PollInitialDelay(),
	}
}

// Verify returns whether the transaction satisfies the request. It never
// fails outward: every internal fault, including a missing configuration,
// resolves to false with the reason logged.
func (v *Verifier) Verify(ctx context.Context, req *Request) bool {
	if err := v.verify(ctx, req); err != nil {
		v.mtr.VerificationFailed()
		v.log.Warn("verification failed", "tx", req.TxHash.Hex(), "reason", err)
		return false
	}

	v.mtr.VerificationValid()
	v.log.Info("verification succeeded",
		"tx", req.TxHash.Hex(),
		"sender", req.Sender.Hex(),
		"recipient", req.Recipient.Hex(),
		"min_amount", req.MinAmount)
	return true
}

func (v *Verifier) verify(ctx context.Context, req *Request) error {
	if v.reader == nil {
		return ErrConfigurationMissing
	}

	receipt, err := v.poller.AwaitInclusion(ctx, req.TxHash, v.minConfirmations, v.maxAttempts, v.initialDelay)
	if err != nil {
		return err
	}
	if !receipt.Succeeded {
		return ErrTransactionFailed
	}

	tx, err := v.reader.Transaction(ctx, req.TxHash)
	if err != nil {
		return fmt.Errorf("fetch transaction: %w", err)
	}
	if tx == nil {
		// Receipt exists but the body is gone; count as unverifiable.
		return fmt.Errorf("%w: transaction body not found", ErrFieldMismatch)
	}

	// common.Address equality is byte equality, so hex casing of the
	// inputs cannot matter here.
	if tx.From != req.Sender {
		return fmt.Errorf("%w: sender is %s, expected %s", ErrFieldMismatch, tx.From.Hex(), req.Sender.Hex())
	}
	if tx.To == nil || *tx.To != req.Recipient {
		return fmt.Errorf("%w: recipient mismatch, expected %s", ErrFieldMismatch, req.Recipient.Hex())
	}
	if tx.Value.Cmp(req.MinAmount) < 0 {
		return fmt.Errorf("%w: amount %s below minimum %s", ErrFieldMismatch, tx.Value, req.MinAmount)
	}

	return nil
}
