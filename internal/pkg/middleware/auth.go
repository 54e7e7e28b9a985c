package middleware

import (
	"crypto/subtle"
	"net/http"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
)

// APIKeyAuth returns a middleware that requires a matching X-API-Key header.
// An empty configured key disables authentication.
func APIKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				apperrors.WriteErrorWithStatus(w, http.StatusUnauthorized,
					apperrors.New(apperrors.CodeUnauthorized, "invalid or missing API key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
