package http

import (
	"net/http"
	"strings"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/httputil"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/middleware"
)

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// actorFromRequest returns the identity attached by the auth middleware, or
// the anonymous actor.
func actorFromRequest(r *http.Request) domain.Actor {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return domain.Actor{}
	}
	return domain.Actor{UserID: claims.UserID, IsAdmin: claims.IsAdmin()}
}
