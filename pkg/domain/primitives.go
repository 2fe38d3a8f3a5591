// Package domain defines the typed primitives shared across vaultgate.
// Parsing enforces validity at trust boundaries so services never see
// malformed principals, request ids, or amounts.
package domain

import (
	"strconv"
	"unicode"

	dErrors "vaultgate/pkg/domain-errors"
)

// Principal is an address-like account identifier that owns a balance.
type Principal string

// RequestID is the opaque, globally unique identifier the verification
// oracle assigns to a dispatched request. It is never minted locally.
type RequestID string

// Amount is a non-negative fund quantity. The unsigned type makes negative
// balances unrepresentable; overflow is guarded at the ledger layer.
type Amount uint64

const maxIdentifierLen = 128

// ParsePrincipal validates an account identifier from an API boundary.
func ParsePrincipal(s string) (Principal, error) {
	if err := validateIdentifier(s, "principal"); err != nil {
		return "", err
	}
	return Principal(s), nil
}

// ParseRequestID validates an oracle-assigned request identifier.
func ParseRequestID(s string) (RequestID, error) {
	if err := validateIdentifier(s, "request_id"); err != nil {
		return "", err
	}
	return RequestID(s), nil
}

func validateIdentifier(s, field string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	if len(s) > maxIdentifierLen {
		return dErrors.New(dErrors.CodeInvalidInput, field+" exceeds maximum length")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return dErrors.New(dErrors.CodeInvalidInput, field+" contains whitespace or control characters")
		}
	}
	return nil
}

func (p Principal) String() string { return string(p) }

// IsNil reports whether the principal is empty.
func (p Principal) IsNil() bool { return p == "" }

func (r RequestID) String() string { return string(r) }

// IsNil reports whether the request id is empty.
func (r RequestID) IsNil() bool { return r == "" }

// IsZero reports whether the amount is zero. Zero amounts are rejected at
// dispatch time before any state changes.
func (a Amount) IsZero() bool { return a == 0 }

// DecimalString renders the amount as a base-10 string for oracle arguments.
func (a Amount) DecimalString() string {
	return strconv.FormatUint(uint64(a), 10)
}

// ParseAmount parses a decimal amount string from an API boundary.
func ParseAmount(s string) (Amount, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "amount must be a non-negative decimal integer")
	}
	return Amount(v), nil
}
