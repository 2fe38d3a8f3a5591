package oracle

import (
	"context"

	"github.com/google/uuid"

	"vaultgate/internal/custody"
	id "vaultgate/pkg/domain"
)

// Local is a development oracle that assigns request ids without contacting
// anything. Outcomes must then be driven by hand through the callback
// endpoint, which makes it useful for local runs and demos.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

func (*Local) Dispatch(_ context.Context, _ custody.VerificationRequest) (id.RequestID, error) {
	return id.RequestID(uuid.NewString()), nil
}
