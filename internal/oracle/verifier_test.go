package oracle

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/thaler-labs/donation-oracle/internal/chain"
	"github.com/thaler-labs/donation-oracle/internal/config"
)

var (
	testSender    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testRecipient = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func testRequest(minAmount int64) *Request {
	return &Request{
		TxHash:    testHash,
		Sender:    testSender,
		Recipient: testRecipient,
		MinAmount: big.NewInt(minAmount),
	}
}

func successReader(value int64) *fakeReader {
	return &fakeReader{
		steps: []receiptStep{
			{rec: &chain.Receipt{BlockNumber: 100, Confirmations: 5, Succeeded: true, GasUsed: 21000}},
		},
		tx: &chain.Transaction{
			From:  testSender,
			To:    &testRecipient,
			Value: big.NewInt(value),
		},
	}
}

// testVerifier builds a verifier with instant sleeps.
func testVerifier(reader LedgerReader, minConfirmations uint64, maxAttempts int) *Verifier {
	cfg := &config.Config{
		MinConfirmations:   minConfirmations,
		PollMaxAttempts:    maxAttempts,
		PollInitialDelayMS: 1,
	}
	v := NewVerifier(reader, cfg, discardLogger(), nil)
	v.poller.sleep = func(context.Context, time.Duration) error { return nil }
	return v
}

func TestVerifySuccess(t *testing.T) {
	v := testVerifier(successReader(1500), 3, 10)

	if !v.Verify(context.Background(), testRequest(1000)) {
		t.Fatalf("expected valid verdict")
	}
}

func TestVerifyRecipientMismatch(t *testing.T) {
	reader := successReader(1500)
	other := common.HexToAddress("0x9999999999999999999999999999999999999999")
	reader.tx.To = &other

	v := testVerifier(reader, 3, 10)
	if v.Verify(context.Background(), testRequest(1000)) {
		t.Fatalf("expected invalid verdict on recipient mismatch")
	}
}

func TestVerifySenderMismatch(t *testing.T) {
	reader := successReader(1500)
	reader.tx.From = common.HexToAddress("0x9999999999999999999999999999999999999999")

	v := testVerifier(reader, 3, 10)
	if v.Verify(context.Background(), testRequest(1000)) {
		t.Fatalf("expected invalid verdict on sender mismatch")
	}
}

func TestVerifyAmountBoundary(t *testing.T) {
	// Equality passes; one below fails.
	v := testVerifier(successReader(1000), 3, 10)
	if !v.Verify(context.Background(), testRequest(1000)) {
		t.Fatalf("expected value == min to pass")
	}

	v = testVerifier(successReader(999), 3, 10)
	if v.Verify(context.Background(), testRequest(1000)) {
		t.Fatalf("expected value == min-1 to fail")
	}
}

func TestVerifyFailedReceipt(t *testing.T) {
	reader := successReader(1500)
	reader.steps = []receiptStep{
		{rec: &chain.Receipt{BlockNumber: 100, Confirmations: 5, Succeeded: false}},
	}

	v := testVerifier(reader, 3, 10)
	if v.Verify(context.Background(), testRequest(1000)) {
		t.Fatalf("expected invalid verdict for reverted transaction")
	}
}

func TestVerifyNeverEnoughConfirmations(t *testing.T) {
	reader := &fakeReader{steps: []receiptStep{
		{rec: &chain.Receipt{BlockNumber: 100, Confirmations: 1, Succeeded: true}},
	}}

	v := testVerifier(reader, 3, 5)
	if v.Verify(context.Background(), testRequest(1000)) {
		t.Fatalf("expected invalid verdict when confirmations never reach the minimum")
	}
	if reader.calls != 5 {
		t.Fatalf("expected the full attempt budget to be spent, got %d", reader.calls)
	}
}

func TestVerifyMissingTransactionBody(t *testing.T) {
	reader := successReader(1500)
	reader.tx = nil

	v := testVerifier(reader, 3, 10)
	if v.Verify(context.Background(), testRequest(1000)) {
		t.Fatalf("expected invalid verdict when the transaction body is missing")
	}
}

func TestVerifyContractCreationRecipient(t *testing.T) {
	reader := successReader(1500)
	reader.tx.To = nil

	v := testVerifier(reader, 3, 10)
	if v.Verify(context.Background(), testRequest(1000)) {
		t.Fatalf("expected invalid verdict for a transaction with no recipient")
	}
}

func TestVerifyNoReaderConfigured(t *testing.T) {
	v := testVerifier(nil, 3, 10)
	if v.Verify(context.Background(), testRequest(1000)) {
		t.Fatalf("expected invalid verdict without a configured endpoint")
	}
}

func TestVerifyDeterministic(t *testing.T) {
	// Same ledger data, same verdict.
	for i := 0; i < 3; i++ {
		v := testVerifier(successReader(1500), 3, 10)
		if !v.Verify(context.Background(), testRequest(1000)) {
			t.Fatalf("run %d: expected valid verdict", i)
		}
	}
}
