// Package requesttime provides middleware that pins one "now" per request.
// Every timestamp written while serving the request (audit events, queue
// entries, refresh staging) uses the same value.
package requesttime

import (
	"net/http"
	"time"

	"clientpulse/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request
// and stores it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
