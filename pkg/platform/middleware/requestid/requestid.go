// Package requestid propagates X-Request-ID into the request context.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"clientpulse/pkg/requestcontext"
)

// Header is the request and response header carrying the request ID.
const Header = "X-Request-ID"

// Middleware reuses an inbound X-Request-ID or generates one, echoes it on
// the response, and stores it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(Header)
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}
		w.Header().Set(Header, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
