package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/akurin/identity-server-demo/app/internal/domain/oidc"
	authuc "github.com/akurin/identity-server-demo/app/internal/usecase/auth"
)

const (
	jwksPath     = "/.well-known/openid-configuration/jwks"
	tokenPath    = "/connect/token"
	userInfoPath = "/connect/userinfo"
)

type discoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	JWKSURI                           string   `json:"jwks_uri"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserInfoEndpoint                  string   `json:"userinfo_endpoint"`
	ScopesSupported                   []string `json:"scopes_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
}

func (a *API) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	base := strings.TrimRight(a.issuer, "/")
	writeJSON(w, http.StatusOK, discoveryDocument{
		Issuer:                            a.issuer,
		JWKSURI:                           base + jwksPath,
		TokenEndpoint:                     base + tokenPath,
		UserInfoEndpoint:                  base + userInfoPath,
		ScopesSupported:                   a.registry.ScopesSupported(),
		ClaimsSupported:                   a.registry.ClaimsSupported(),
		GrantTypesSupported:               []string{oidc.GrantClientCredentials, oidc.GrantPassword},
		ResponseTypesSupported:            []string{"token"},
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValuesSupported:  []string{"RS256"},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post"},
	})
}

func (a *API) handleJWKS(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.keys.JWKS())
}

func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, authuc.ProtocolError{Code: authuc.CodeInvalidRequest, Description: "malformed form body"})
		return
	}
	form := r.PostForm

	req := authuc.TokenRequest{
		GrantType:    form.Get("grant_type"),
		ClientID:     form.Get("client_id"),
		ClientSecret: form.Get("client_secret"),
		Scope:        form.Get("scope"),
		UserName:     form.Get("username"),
		Password:     form.Get("password"),
	}
	if id, secret, ok := r.BasicAuth(); ok {
		req.ClientID = unescapeBasic(id)
		req.ClientSecret = unescapeBasic(secret)
	}

	resp, err := a.authSvc.Token(r.Context(), req)
	if err != nil {
		var perr *authuc.ProtocolError
		if !errors.As(err, &perr) {
			a.log.WithError(err).Error("token request failed")
			handleDomainError(w, err)
			return
		}
		status := http.StatusBadRequest
		if perr.Code == authuc.CodeInvalidClient {
			w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
			status = http.StatusUnauthorized
		}
		a.log.WithField("client_id", req.ClientID).WithField("error", perr.Code).Info("token request rejected")
		writeJSON(w, status, perr)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}

	info, err := a.authSvc.UserInfo(r.Context(), token)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, info)
	case errors.Is(err, authuc.ErrInvalidToken):
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
	case errors.Is(err, authuc.ErrInsufficientScope):
		w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
		respondError(w, http.StatusForbidden, errForbidden)
	default:
		handleDomainError(w, err)
	}
}

// unescapeBasic undoes the form encoding RFC 6749 applies to Basic credentials.
func unescapeBasic(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
}
