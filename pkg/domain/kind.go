package domain

import dErrors "vaultgate/pkg/domain-errors"

// RequestKind distinguishes deposit and withdrawal verification requests.
type RequestKind string

const (
	KindDeposit    RequestKind = "deposit"
	KindWithdrawal RequestKind = "withdrawal"
)

// Oracle wire codes for the first dispatch argument.
const (
	wireCodeDeposit    = "0"
	wireCodeWithdrawal = "1"
)

// WireCode returns the kind encoding the oracle protocol expects in args[0].
func (k RequestKind) WireCode() string {
	if k == KindWithdrawal {
		return wireCodeWithdrawal
	}
	return wireCodeDeposit
}

// IsValid reports whether the kind is one of the two known values.
func (k RequestKind) IsValid() bool {
	return k == KindDeposit || k == KindWithdrawal
}

func (k RequestKind) String() string { return string(k) }

// ParseRequestKind validates a kind string from storage or an API boundary.
func ParseRequestKind(s string) (RequestKind, error) {
	k := RequestKind(s)
	if !k.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown request kind: "+s)
	}
	return k, nil
}
