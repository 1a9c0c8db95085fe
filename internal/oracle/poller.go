package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/thaler-labs/donation-oracle/internal/chain"
	"github.com/thaler-labs/donation-oracle/internal/metrics"
)

// LedgerReader is the chain collaborator the oracle polls. chain.Client
// satisfies it; tests inject fakes.
type LedgerReader interface {
	Receipt(ctx context.Context, txHash common.Hash) (*chain.Receipt, error)
	Transaction(ctx context.Context, txHash common.Hash) (*chain.Transaction, error)
}

const (
	backoffCap = 15 * time.Second
)

// Poller waits for a transaction to reach sufficient confirmation depth.
type Poller struct {
	reader LedgerReader
	log    *slog.Logger
	mtr    *metrics.Metrics

	// sleep is injectable so tests run without wall-clock waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller builds a poller over the given reader.
func NewPoller(reader LedgerReader, log *slog.Logger, mtr *metrics.Metrics) *Poller {
	return &Poller{
		reader: reader,
		log:    log,
		mtr:    mtr,
		sleep:  sleepCtx,
	}
}

// AwaitInclusion polls until the transaction is mined with at least
// minConfirmations, spending at most maxAttempts queries. The delay grows
// by 1.5x per non-error iteration, capped at 15s; transient query errors
// consume an attempt at the current delay without growing it. Exhausting
// the budget yields ErrNotIncluded.
func (p *Poller) AwaitInclusion(ctx context.Context, txHash common.Hash, minConfirmations uint64, maxAttempts int, initialDelay time.Duration) (*chain.Receipt, error) {
	delay := initialDelay

	for attempts := 1; attempts <= maxAttempts; attempts++ {
		p.mtr.PollAttempts()

		receipt, err := p.reader.Receipt(ctx, txHash)
		if err != nil {
			// Treated as "not yet available"; retry at the current delay.
			p.mtr.LedgerErrors()
			p.log.Warn("receipt query failed", "tx", txHash.Hex(), "attempt", attempts, "error", err)
			if err := p.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if receipt != nil && receipt.Confirmations >= minConfirmations {
			p.log.Debug("transaction included",
				"tx", txHash.Hex(),
				"block", receipt.BlockNumber,
				"confirmations", receipt.Confirmations,
				"gas_used", receipt.GasUsed)
			return receipt, nil
		}

		if receipt == nil {
			p.log.Debug("transaction not yet included", "tx", txHash.Hex(), "attempt", attempts, "max_attempts", maxAttempts)
		} else {
			p.log.Debug("waiting for confirmations",
				"tx", txHash.Hex(),
				"confirmations", receipt.Confirmations,
				"required", minConfirmations)
		}

		if err := p.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = nextDelay(delay)
	}

	return nil, fmt.Errorf("%w after %d attempts: %s", ErrNotIncluded, maxAttempts, txHash.Hex())
}

func nextDelay(d time.Duration) time.Duration {
	d = d * 3 / 2
	if d > backoffCap {
		d = backoffCap
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
