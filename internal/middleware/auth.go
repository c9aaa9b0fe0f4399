package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/xelth-com/orderbot/internal/utils"
)

type contextKey string

const SubjectContextKey contextKey = "subject"

// WebChatAuth verifies web-chat JWT tokens. Browsers cannot set headers on a
// websocket handshake, so the token may also come from the "token" query
// parameter.
func WebChatAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.URL.Query().Get("token")
			if tokenString == "" {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					http.Error(w, "Authorization required", http.StatusUnauthorized)
					return
				}

				// Bearer token
				parts := strings.Split(authHeader, " ")
				if len(parts) != 2 || parts[0] != "Bearer" {
					http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
					return
				}
				tokenString = parts[1]
			}

			subject, err := utils.WebChatSubject(tokenString, secret)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			// Add subject to context
			ctx := context.WithValue(r.Context(), SubjectContextKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext returns the subject stored by WebChatAuth
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(SubjectContextKey).(string)
	return sub, ok && sub != ""
}
