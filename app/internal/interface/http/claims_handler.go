package http

import (
	"net/http"

	domuser "github.com/akurin/identity-server-demo/app/internal/domain/user"
	authuc "github.com/akurin/identity-server-demo/app/internal/usecase/auth"
)

type claimResponse struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (a *API) handleClaims(w http.ResponseWriter, r *http.Request) {
	principal := authuc.PrincipalFrom(r.Context())
	if principal == nil {
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}
	if principal.IsInRole(domuser.RoleAdmin) {
		a.log.Info("Admin")
	}

	resp := make([]claimResponse, 0, len(principal.Claims))
	for _, c := range principal.Claims {
		resp = append(resp, claimResponse{Type: c.Type, Value: c.Value})
	}
	writeJSON(w, http.StatusOK, resp)
}
