package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akurin/identity-server-demo/app/internal/domain/claim"
	"github.com/akurin/identity-server-demo/app/internal/domain/oidc"
	domuser "github.com/akurin/identity-server-demo/app/internal/domain/user"
)

// TokenSigner signs and validates access tokens. The signer stamps the issuer.
type TokenSigner interface {
	Sign(payload map[string]any) (string, error)
	Parse(token string) (map[string]any, error)
}

// UserDirectory is the part of the membership service tokens are built from.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*domuser.User, error)
	FindByName(ctx context.Context, userName string) (*domuser.User, error)
	CheckPassword(ctx context.Context, u *domuser.User, password string) error
	GetClaims(ctx context.Context, u *domuser.User) ([]claim.Claim, error)
	GetRoles(ctx context.Context, u *domuser.User) ([]string, error)
	GetRoleClaimsForUser(ctx context.Context, u *domuser.User) ([]claim.Claim, error)
}

type Service struct {
	registry *oidc.Registry
	users    UserDirectory
	signer   TokenSigner
	lifetime time.Duration
	now      func() time.Time
}

func NewService(registry *oidc.Registry, users UserDirectory, signer TokenSigner, lifetime time.Duration) *Service {
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	return &Service{
		registry: registry,
		users:    users,
		signer:   signer,
		lifetime: lifetime,
		now:      time.Now,
	}
}

type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Scope        string
	UserName     string
	Password     string
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Token runs the client_credentials and password grants. Protocol failures
// are returned as *ProtocolError.
func (s *Service) Token(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	switch req.GrantType {
	case "":
		return nil, protocolError(CodeInvalidRequest, "grant_type is required")
	case oidc.GrantClientCredentials, oidc.GrantPassword:
	default:
		return nil, protocolError(CodeUnsupportedGrantType, req.GrantType)
	}

	client, err := s.authenticateClient(req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrant(req.GrantType) {
		return nil, protocolError(CodeUnauthorizedClient, req.GrantType)
	}

	resources, err := s.resolveScopes(client, req.Scope)
	if err != nil {
		return nil, err
	}

	lifetime := s.lifetime
	if client.AccessTokenLifetime > 0 {
		lifetime = client.AccessTokenLifetime
	}
	now := s.now()
	payload := map[string]any{
		"nbf":       now.Unix(),
		"iat":       now.Unix(),
		"exp":       now.Add(lifetime).Unix(),
		"client_id": client.ClientID,
		"scope":     resources.Scopes,
		"jti":       uuid.NewString(),
	}
	if aud := resources.APINames(); len(aud) > 0 {
		payload["aud"] = aud
	}

	switch req.GrantType {
	case oidc.GrantClientCredentials:
		if resources.HasIdentity() {
			return nil, protocolError(CodeInvalidScope, "identity scopes require a user")
		}
	case oidc.GrantPassword:
		u, err := s.authenticateUser(ctx, req.UserName, req.Password)
		if err != nil {
			return nil, err
		}
		payload[claim.TypeSubject] = u.ID
		payload["auth_time"] = now.Unix()
		payload["idp"] = "local"
		payload["amr"] = []string{"pwd"}

		var requested []string
		for _, api := range resources.APIs {
			requested = append(requested, api.UserClaims...)
		}
		claims, err := s.userClaims(ctx, u, requested)
		if err != nil {
			return nil, err
		}
		if err := claim.AppendPayload(payload, claims...); err != nil {
			return nil, err
		}
	}

	token, err := s.signer.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(lifetime / time.Second),
		Scope:       strings.Join(resources.Scopes, " "),
	}, nil
}

// Authenticate validates a bearer token and returns its principal.
func (s *Service) Authenticate(token string) (*Principal, error) {
	payload, err := s.signer.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return PrincipalFromPayload(payload), nil
}

// UserInfo returns the identity claims released by the openid scopes of token.
func (s *Service) UserInfo(ctx context.Context, token string) (map[string]any, error) {
	payload, err := s.signer.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub, _ := payload[claim.TypeSubject].(string)
	scopes := scopesOf(payload)
	if sub == "" || !containsString(scopes, oidc.ScopeOpenID) {
		return nil, ErrInsufficientScope
	}

	var requested []string
	for _, scope := range scopes {
		res, err := s.registry.Resolve([]string{scope})
		if err != nil {
			continue
		}
		for _, id := range res.Identity {
			requested = append(requested, id.UserClaims...)
		}
	}

	u, err := s.users.FindByID(ctx, sub)
	if err != nil {
		if errors.Is(err, domuser.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	claims, err := s.userClaims(ctx, u, requested)
	if err != nil {
		return nil, err
	}

	out := map[string]any{claim.TypeSubject: u.ID}
	if err := claim.AppendPayload(out, claims...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) authenticateClient(id, secret string) (*oidc.Client, error) {
	if id == "" {
		return nil, protocolError(CodeInvalidClient, "client_id is required")
	}
	client, err := s.registry.FindClient(id)
	if err != nil {
		return nil, protocolError(CodeInvalidClient, "unknown client")
	}
	if !client.VerifySecret(secret) {
		return nil, protocolError(CodeInvalidClient, "invalid client secret")
	}
	return client, nil
}

// resolveScopes uses every allowed scope of the client when none is requested.
func (s *Service) resolveScopes(client *oidc.Client, raw string) (*oidc.Resources, error) {
	scopes := oidc.ParseScopes(raw)
	if len(scopes) == 0 {
		scopes = client.AllowedScopes
	}
	for _, scope := range scopes {
		if !client.AllowsScope(scope) {
			return nil, protocolError(CodeInvalidScope, scope)
		}
	}
	resources, err := s.registry.Resolve(scopes)
	if err != nil {
		return nil, protocolError(CodeInvalidScope, err.Error())
	}
	return resources, nil
}

func (s *Service) authenticateUser(ctx context.Context, userName, password string) (*domuser.User, error) {
	if userName == "" || password == "" {
		return nil, protocolError(CodeInvalidRequest, "username and password are required")
	}
	u, err := s.users.FindByName(ctx, userName)
	if err != nil {
		if errors.Is(err, domuser.ErrUserNotFound) {
			return nil, protocolError(CodeInvalidGrant, "invalid username or password")
		}
		return nil, err
	}
	if err := s.users.CheckPassword(ctx, u, password); err != nil {
		if errors.Is(err, domuser.ErrInvalidCredential) || errors.Is(err, domuser.ErrMissingPasswordHash) {
			return nil, protocolError(CodeInvalidGrant, "invalid username or password")
		}
		return nil, err
	}
	return u, nil
}

// userClaims gathers the user's stored claims, role names and role claims,
// keeping only the requested claim types.
func (s *Service) userClaims(ctx context.Context, u *domuser.User, requested []string) ([]claim.Claim, error) {
	if len(requested) == 0 {
		return nil, nil
	}
	want := make(map[string]bool, len(requested))
	for _, t := range requested {
		want[t] = true
	}

	stored, err := s.users.GetClaims(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("load claims of %s: %w", u.UserName, err)
	}
	all := append([]claim.Claim(nil), stored...)

	if want[claim.TypeRole] {
		roles, err := s.users.GetRoles(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("load roles of %s: %w", u.UserName, err)
		}
		for _, r := range roles {
			all = append(all, claim.String(claim.TypeRole, r))
		}
	}
	roleClaims, err := s.users.GetRoleClaimsForUser(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("load role claims of %s: %w", u.UserName, err)
	}
	all = append(all, roleClaims...)

	seen := map[claim.Claim]bool{}
	var out []claim.Claim
	for _, c := range all {
		if !want[c.Type] || c.Type == claim.TypeSubject || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

func scopesOf(payload map[string]any) []string {
	switch v := payload["scope"].(type) {
	case string:
		return strings.Fields(v)
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
