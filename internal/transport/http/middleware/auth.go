package middleware

import (
	"context"
	"net/http"

	"github.com/fcl-miniapp/internal/domain"
)

// InitDataHeader carries the signed Telegram WebApp init data.
const InitDataHeader = "X-Telegram-Init-Data"

type contextKey string

const (
	identityKey contextKey = "identity"
	initDataKey contextKey = "init_data"
)

type identityVerifier interface {
	Verify(initData string) (domain.VerifiedIdentity, error)
}

// Auth returns middleware that verifies the init data header and injects the
// identity and the raw credential into the request context.
func Auth(v identityVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(InitDataHeader)
			if raw == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing "+InitDataHeader)
				return
			}
			identity, err := v.Verify(raw)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity, raw)))
		})
	}
}

// WithIdentity stores a verified identity and its source credential in ctx.
func WithIdentity(ctx context.Context, identity domain.VerifiedIdentity, initData string) context.Context {
	ctx = context.WithValue(ctx, identityKey, identity)
	return context.WithValue(ctx, initDataKey, initData)
}

// IdentityFromContext extracts the verified identity from the request context.
func IdentityFromContext(ctx context.Context) (domain.VerifiedIdentity, bool) {
	id, ok := ctx.Value(identityKey).(domain.VerifiedIdentity)
	return id, ok
}

// InitDataFromContext returns the raw init data the identity was verified from.
func InitDataFromContext(ctx context.Context) string {
	s, _ := ctx.Value(initDataKey).(string)
	return s
}
