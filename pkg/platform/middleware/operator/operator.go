// Package operator records who performed an admin action. Authentication is
// handled in front of this service; the header is trusted as-is.
package operator

import (
	"net/http"
	"strings"

	"clientpulse/pkg/requestcontext"
)

// Header names the acting operator.
const Header = "X-Operator"

// Middleware copies the operator header into the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op := strings.TrimSpace(r.Header.Get(Header))
		if op == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := requestcontext.WithOperator(r.Context(), op)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
