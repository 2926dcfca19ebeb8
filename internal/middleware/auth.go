package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type contextKey int

const UserIDKey contextKey = iota

var ErrUnauthorized = errors.New("unauthorized")

// Verifier turns a bearer token into a user id.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Verifiers tries each verifier in order and accepts the first success.
type Verifiers []Verifier

func (vs Verifiers) Verify(ctx context.Context, token string) (string, error) {
	for _, v := range vs {
		if uid, err := v.Verify(ctx, token); err == nil {
			return uid, nil
		}
	}
	return "", ErrUnauthorized
}

// AuthMiddleware rejects requests without a valid token and stores the user id
// in the request context. Browsers cannot set headers on websocket upgrades,
// so the token query parameter is accepted too.
func AuthMiddleware(v Verifier) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			uid, err := v.Verify(r.Context(), token)
			if err != nil || uid == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next(w, r.WithContext(WithUserID(r.Context(), uid)))
		}
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, UserIDKey, uid)
}

func UserID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(UserIDKey).(string)
	return uid, ok && uid != ""
}
