package oracle

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// The zk toolchains that call this oracle have serialized the same logical
// 4-tuple (txHash, sender, recipient, minAmount) in three wire shapes over
// time: a flat positional array of strings, a foreign-call envelope
// wrapping that array, and a tagged single-value wrapper per field. All of
// them normalize into one canonical Request; none substitutes defaults for
// missing fields.

// taggedValue is the single-value variant of the circuit field wrapper,
// also used to encode verdicts back to the caller.
type taggedValue struct {
	Single *string  `json:"Single,omitempty"`
	Array  []string `json:"Array,omitempty"`
}

// ForeignCallResult is the response payload both oracle methods return:
// a values array holding one tagged "1"/"0".
type ForeignCallResult struct {
	Values []ForeignCallValue `json:"values"`
}

// ForeignCallValue is the tagged single-value wrapper in responses.
type ForeignCallValue struct {
	Single string `json:"Single"`
}

// Verdict encodes a boolean verification outcome in the foreign-call wire
// format.
func Verdict(ok bool) ForeignCallResult {
	v := "0"
	if ok {
		v = "1"
	}
	return ForeignCallResult{Values: []ForeignCallValue{{Single: v}}}
}

type foreignCallEnvelope struct {
	Function string            `json:"function"`
	Inputs   []json.RawMessage `json:"inputs"`
}

// field is one positional parameter before canonicalization. Tagged
// fields came out of a circuit, so their amounts are raw hex; plain
// string fields carry decimal amounts unless 0x-prefixed.
type field struct {
	value  string
	tagged bool
}

// NormalizeDirect parses the parameters of a direct verifyDonation call:
// four positional values, each either a tagged single-value wrapper or a
// bare string.
func NormalizeDirect(params json.RawMessage) (*Request, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(params, &elems); err != nil {
		return nil, fmt.Errorf("%w: params is not an array", ErrMalformedCall)
	}
	if len(elems) != 4 {
		return nil, fmt.Errorf("%w: expected 4 parameters, got %d", ErrMalformedCall, len(elems))
	}

	fields := make([]field, 0, 4)
	for i, raw := range elems {
		f, err := parseField(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %d: %v", ErrMalformedCall, i, err)
		}
		fields = append(fields, f)
	}

	return buildRequest(fields)
}

// NormalizeForeignCall parses a resolve_foreign_call envelope. The
// function name must match expectedFunction; anything else is a protocol
// violation, not a failed verification. Inputs arrive either as one nested
// 4-element array (historical) or as four unwrapped values.
func NormalizeForeignCall(expectedFunction string, params json.RawMessage) (*Request, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(params, &elems); err != nil || len(elems) == 0 {
		return nil, fmt.Errorf("%w: params is not a non-empty array", ErrMalformedCall)
	}

	var env foreignCallEnvelope
	if err := json.Unmarshal(elems[0], &env); err != nil {
		return nil, fmt.Errorf("%w: bad envelope: %v", ErrMalformedCall, err)
	}
	if env.Function != expectedFunction {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedForeignCall, env.Function)
	}

	fields, err := unwrapInputs(env.Inputs)
	if err != nil {
		return nil, err
	}
	return buildRequest(fields)
}

func unwrapInputs(inputs []json.RawMessage) ([]field, error) {
	switch len(inputs) {
	case 1:
		var nested []string
		if err := json.Unmarshal(inputs[0], &nested); err != nil {
			return nil, fmt.Errorf("%w: inputs[0] is not a string array", ErrMalformedCall)
		}
		if len(nested) != 4 {
			return nil, fmt.Errorf("%w: expected 4 inputs, got %d", ErrMalformedCall, len(nested))
		}
		fields := make([]field, 0, 4)
		for _, s := range nested {
			fields = append(fields, field{value: s})
		}
		return fields, nil
	case 4:
		fields := make([]field, 0, 4)
		for i, raw := range inputs {
			f, err := parseField(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: input %d: %v", ErrMalformedCall, i, err)
			}
			fields = append(fields, f)
		}
		return fields, nil
	default:
		return nil, fmt.Errorf("%w: expected 1 or 4 inputs, got %d", ErrMalformedCall, len(inputs))
	}
}

// parseField accepts a bare string, a tagged single-value wrapper, or a
// one-element string array.
func parseField(raw json.RawMessage) (field, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return field{value: s}, nil
	}

	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) != 1 {
			return field{}, fmt.Errorf("expected a single value, got %d", len(arr))
		}
		return field{value: arr[0]}, nil
	}

	var tag taggedValue
	if err := json.Unmarshal(raw, &tag); err != nil {
		return field{}, fmt.Errorf("unrecognized value shape")
	}
	if tag.Single == nil || tag.Array != nil {
		return field{}, fmt.Errorf("expected a Single-tagged value")
	}
	return field{value: *tag.Single, tagged: true}, nil
}

func buildRequest(fields []field) (*Request, error) {
	txHash, err := parseHash(fields[0].value)
	if err != nil {
		return nil, fmt.Errorf("%w: tx hash: %v", ErrMalformedCall, err)
	}
	sender, err := parseAddress(fields[1].value)
	if err != nil {
		return nil, fmt.Errorf("%w: sender: %v", ErrMalformedCall, err)
	}
	recipient, err := parseAddress(fields[2].value)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient: %v", ErrMalformedCall, err)
	}
	minAmount, err := parseAmount(fields[3].value, fields[3].tagged)
	if err != nil {
		return nil, fmt.Errorf("%w: min amount: %v", ErrMalformedCall, err)
	}

	return &Request{
		TxHash:    txHash,
		Sender:    sender,
		Recipient: recipient,
		MinAmount: minAmount,
	}, nil
}

// decodeHexField decodes hex with or without a 0x prefix, tolerating an
// odd nibble count by left-padding.
func decodeHexField(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, fmt.Errorf("empty hex value")
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %v", err)
	}
	return b, nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := decodeHexField(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	return common.BytesToHash(b), nil
}

// parseAddress accepts a native 20-byte address or a 32-byte field element
// whose 12 leading bytes are zero padding.
func parseAddress(s string) (common.Address, error) {
	b, err := decodeHexField(s)
	if err != nil {
		return common.Address{}, err
	}
	switch len(b) {
	case common.AddressLength:
		return common.BytesToAddress(b), nil
	case common.HashLength:
		for _, pad := range b[:common.HashLength-common.AddressLength] {
			if pad != 0 {
				return common.Address{}, fmt.Errorf("32-byte value is not a padded address")
			}
		}
		return common.BytesToAddress(b[common.HashLength-common.AddressLength:]), nil
	default:
		return common.Address{}, fmt.Errorf("expected 20 or 32 bytes, got %d", len(b))
	}
}

// parseAmount reads a non-negative arbitrary-precision integer. Tagged
// circuit values are raw hex; plain strings are decimal unless
// 0x-prefixed.
func parseAmount(s string, tagged bool) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}

	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	} else if tagged {
		base = 16
	}

	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	return n, nil
}
