package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/driftlabs/driftbox/internal/auth"
	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/logging"
)

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID string
	Email  string
}

type ctxKey int

const principalKey ctxKey = 0

// PrincipalFrom extracts the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// WithPrincipal returns a context carrying the principal. Exported for
// handler tests.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// BearerToken pulls the token out of an Authorization header.
func BearerToken(header string) (string, error) {
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", common.ErrUnauthorized
	}
	return strings.TrimPrefix(header, "Bearer "), nil
}

// Authenticate verifies the bearer token and injects the principal.
// Expired and malformed tokens both map to 401, with distinct messages.
func Authenticate(secret []byte, log logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			Error(r.Context(), w, log, err)
			return
		}

		claims, err := auth.ParseToken(token, secret)
		if err != nil {
			Error(r.Context(), w, log, err)
			return
		}

		ctx := WithPrincipal(r.Context(), Principal{UserID: claims.UserID, Email: claims.Email})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
