package middleware

import (
	"context"
	"net/http"
	"strings"

	"nomina/internal/domain/auth"
	"nomina/internal/requestctx"
)

type ctxKey int

const ctxKeyUser ctxKey = iota

// Auth attaches the bearer token's user to the context. Requests without a
// valid token pass through anonymously; RequirePermission rejects them.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, strings.TrimSpace(token))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user := claims.User()
			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithUser(ctx context.Context, user auth.UserContext) context.Context {
	ctx = context.WithValue(ctx, ctxKeyUser, user)
	return requestctx.WithActor(ctx, user.UserID)
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}
