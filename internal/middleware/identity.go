package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkordes/tripboard/backend/internal/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity returns the authenticated member name from the request context,
// or "" for anonymous requests.
func Identity(ctx context.Context) string {
	name, _ := ctx.Value(identityKey).(string)
	return name
}

// NewIdentityHandler returns a middleware that attaches the member identity
// from a Bearer token to the request context. It fails open: a missing,
// expired, or malformed token logs a warning and lets the request proceed
// anonymously. With an empty secret the middleware is a no-op.
func NewIdentityHandler(secret []byte, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(token, secret)
			if err != nil {
				log.WarnContext(r.Context(), "identity token rejected, proceeding anonymously", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			name := claims.Name
			if name == "" {
				name = claims.Subject
			}
			ctx := context.WithValue(r.Context(), identityKey, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
