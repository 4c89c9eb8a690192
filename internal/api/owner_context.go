package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/ignite/campaign-mailer/internal/pkg/httputil"
)

// OwnerHeader carries the authenticated account id, set by the auth layer
// in front of this service.
const OwnerHeader = "X-User-ID"

type ownerContextKey struct{}

// RequireOwner rejects requests without an owner identity and stores the
// owner id in the request context.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if owner == "" {
			httputil.Unauthorized(w, "invalid user session")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
	})
}

// WithOwner returns a context carrying ownerID.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, ownerID)
}

// OwnerFrom returns the owner id stored by RequireOwner, or "".
func OwnerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerContextKey{}).(string)
	return owner
}
