package router

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shandysiswandi/preschool/internal/pkg/jwt"
)

// middlewareAuthentication requires a valid bearer token and stores its claims
// in the request context. A nil verifier lets everything through.
func middlewareAuthentication(verifier jwt.JWT) Middleware {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeJSON(w, map[string]string{"message": "Authentication required"}, http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				slog.DebugContext(r.Context(), "rejected bearer token", "route", matchedRoutePath(r), "error", err)
				writeJSON(w, map[string]string{"message": "Invalid or expired token"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}
