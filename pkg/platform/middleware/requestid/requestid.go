// Package requestid assigns a correlation id to every inbound request so log
// lines and emitted events can be tied back to the originating call.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"vaultgate/pkg/requestcontext"
)

// Header carries the correlation id on requests and responses.
const Header = "X-Request-Id"

// Middleware propagates an inbound X-Request-Id or mints a fresh UUID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(Header)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(Header, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
