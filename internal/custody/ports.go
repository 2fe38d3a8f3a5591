package custody

import (
	"context"

	"vaultgate/internal/admin"
	id "vaultgate/pkg/domain"
)

// VerificationRequest is the dispatch payload handed to the oracle. Args
// follow the oracle protocol: args[0] is the kind wire code ("0" deposit,
// "1" withdrawal), args[1] the requester identifier, and for withdrawals
// args[2] the amount as a decimal string.
type VerificationRequest struct {
	Endpoint       string
	Script         string
	Secrets        []byte
	Args           []string
	SubscriptionID string
	GasLimit       uint64
}

// Oracle is the external collaborator that runs the verification check
// off-path. Dispatch returns the oracle-assigned request id; the outcome
// arrives later, if ever, through the reconciler callback.
type Oracle interface {
	Dispatch(ctx context.Context, req VerificationRequest) (id.RequestID, error)
}

// SettingsSource supplies the current oracle settings snapshot at dispatch
// time, so administrative updates take effect without a restart.
type SettingsSource interface {
	Get(ctx context.Context) (admin.OracleSettings, error)
}

func buildArgs(kind id.RequestKind, requester id.Principal, amount id.Amount) []string {
	args := []string{kind.WireCode(), requester.String()}
	if kind == id.KindWithdrawal {
		args = append(args, amount.DecimalString())
	}
	return args
}
