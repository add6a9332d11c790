package auth

import (
	"net/http"
	"strings"

	"UsersAPI/internal/apperror"
	"UsersAPI/internal/logger"
)

// Middleware rejects requests without a valid bearer token and stores the
// token claims in the request context.
func (v *JWTValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			apperror.Write(w, apperror.Unauthorized("Authorization header must be Bearer {token}", nil))
			return
		}
		claims, err := v.ValidateToken(token)
		if err != nil {
			logger.Warn("auth_rejected", map[string]any{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
			apperror.Write(w, apperror.Unauthorized("Invalid token", err))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
