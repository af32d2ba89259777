package middleware

import (
	"context"
	"net/http"

	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/api"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	DomainIDKey contextKey = "domain_id"
)

// RequireUser extracts the caller identity from the X-User-ID header and the
// optional knowledge domain from X-Domain-ID. Requests without a user are
// rejected.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			api.Error(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		if domainID := r.Header.Get("X-Domain-ID"); domainID != "" {
			ctx = context.WithValue(ctx, DomainIDKey, domainID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

func GetDomainID(ctx context.Context) string {
	domainID, _ := ctx.Value(DomainIDKey).(string)
	return domainID
}
