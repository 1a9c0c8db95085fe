package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func testDispatcher(reader LedgerReader) *Dispatcher {
	return NewDispatcher(testVerifier(reader, 3, 10), discardLogger(), nil)
}

func resultString(t *testing.T, res any) string {
	t.Helper()
	b, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	return string(b)
}

func TestDispatchVerifyDonation(t *testing.T) {
	d := testDispatcher(successReader(1500))
	params := fmt.Sprintf(`[{"Single":"0x%s"},{"Single":"0x%s%s"},{"Single":"0x%s%s"},{"Single":"0x3e8"}]`,
		hashHex, padding, senderHex, padding, recipientHex)

	res, err := d.Dispatch(context.Background(), MethodVerifyDonation, json.RawMessage(params))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resultString(t, res); got != `{"values":[{"Single":"1"}]}` {
		t.Fatalf("result: got %s", got)
	}
}

func TestDispatchResolveForeignCall(t *testing.T) {
	d := testDispatcher(successReader(1500))
	params := fmt.Sprintf(`[{"function":"verifyDonation","inputs":[["0x%s","0x%s","0x%s","1000"]]}]`,
		hashHex, senderHex, recipientHex)

	res, err := d.Dispatch(context.Background(), MethodResolveForeignCall, json.RawMessage(params))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resultString(t, res); got != `{"values":[{"Single":"1"}]}` {
		t.Fatalf("result: got %s", got)
	}
}

func TestDispatchUnexpectedFunctionPropagates(t *testing.T) {
	d := testDispatcher(successReader(1500))
	params := `[{"function":"otherFn","inputs":[["0x1","0x2","0x3","4"]]}]`

	_, err := d.Dispatch(context.Background(), MethodResolveForeignCall, json.RawMessage(params))
	if !errors.Is(err, ErrUnexpectedForeignCall) {
		t.Fatalf("expected ErrUnexpectedForeignCall, got %v", err)
	}
}

func TestDispatchMalformedDegradesToFalse(t *testing.T) {
	d := testDispatcher(successReader(1500))

	for _, method := range []string{MethodVerifyDonation, MethodResolveForeignCall} {
		res, err := d.Dispatch(context.Background(), method, json.RawMessage(`["only","two"]`))
		if err != nil {
			t.Fatalf("%s: malformed params must not error: %v", method, err)
		}
		if got := resultString(t, res); got != `{"values":[{"Single":"0"}]}` {
			t.Fatalf("%s: result: got %s", method, got)
		}
	}
}

func TestDispatchVerifierFaultDegradesToFalse(t *testing.T) {
	// No configured endpoint: the verdict is false, not an RPC error.
	d := testDispatcher(nil)
	params := fmt.Sprintf(`[{"function":"verifyDonation","inputs":[["0x%s","0x%s","0x%s","1000"]]}]`,
		hashHex, senderHex, recipientHex)

	res, err := d.Dispatch(context.Background(), MethodResolveForeignCall, json.RawMessage(params))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resultString(t, res); got != `{"values":[{"Single":"0"}]}` {
		t.Fatalf("result: got %s", got)
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	d := testDispatcher(successReader(1500))

	_, err := d.Dispatch(context.Background(), "eth_blockNumber", json.RawMessage(`[]`))
	if !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("expected ErrUnknownMethod, got %v", err)
	}
}
