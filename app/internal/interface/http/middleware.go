package http

import (
	"errors"
	"net/http"
	"strings"

	authuc "github.com/akurin/identity-server-demo/app/internal/usecase/auth"
)

var (
	errUnauthenticated = errors.New("unauthenticated")
	errForbidden       = errors.New("forbidden")
)

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			respondError(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}

		principal, err := a.authSvc.Authenticate(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			respondError(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}

		next.ServeHTTP(w, r.WithContext(authuc.WithPrincipal(r.Context(), principal)))
	})
}

func (a *API) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := authuc.PrincipalFrom(r.Context())
			if principal == nil {
				respondError(w, http.StatusUnauthorized, errUnauthenticated)
				return
			}
			if !principal.IsInRole(role) {
				respondError(w, http.StatusForbidden, errForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
