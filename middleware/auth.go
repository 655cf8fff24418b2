package middleware

import (
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/mvavassori/portfolio-pulse/utils"
)

// AdminMiddleware guards the administrative endpoints (analytics
// clear, portfolio writes) behind a bearer token with role=admin.
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			utils.WriteError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(tokenString, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.WriteError(w, http.StatusUnauthorized, "Invalid Authorization header")
			return
		}

		token, err := utils.ValidateToken(parts[1])
		if err != nil || !token.Valid {
			utils.WriteError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			utils.WriteError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		role, _ := claims["role"].(string)
		if role != "admin" {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}
