package testutil

import (
	"context"
	"time"

	"vaultgate/pkg/requestcontext"
)

// Context returns a background context carrying a fixed request id and time,
// so service unit tests exercise the same context plumbing as HTTP requests.
func Context(requestID string, now time.Time) context.Context {
	ctx := requestcontext.WithRequestID(context.Background(), requestID)
	return requestcontext.WithTime(ctx, now)
}
