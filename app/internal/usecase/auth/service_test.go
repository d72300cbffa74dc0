package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akurin/identity-server-demo/app/internal/domain/claim"
	"github.com/akurin/identity-server-demo/app/internal/domain/oidc"
	"github.com/akurin/identity-server-demo/app/internal/infra/persistence/sqldb"
	"github.com/akurin/identity-server-demo/app/internal/infra/persistence/sqldb/sqldbtest"
	"github.com/akurin/identity-server-demo/app/internal/infra/security"
	"github.com/akurin/identity-server-demo/app/internal/usecase/membership"
	"github.com/akurin/identity-server-demo/app/internal/usecase/seed"
)

const testIssuer = "http://localhost:5000"

type fixture struct {
	svc     *Service
	signer  *security.JWTService
	members *membership.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := sqldbtest.Open(t)
	members := membership.NewService(
		sqldb.NewUserRepository(db),
		sqldb.NewUserRoleRepository(db),
		security.NewBcryptService(4),
		membership.DefaultPasswordPolicy(),
	)
	require.NoError(t, seed.NewSeeder(members, sqldbtest.Logger()).EnsureSeedData(context.Background()))

	cred, err := security.DeveloperSigningCredential("")
	require.NoError(t, err)
	signer := security.NewJWTService(testIssuer, cred)

	return &fixture{
		svc:     NewService(oidc.DefaultRegistry(), members, signer, time.Hour),
		signer:  signer,
		members: members,
	}
}

func requireProtocolError(t *testing.T, err error, code string) {
	t.Helper()
	var perr *ProtocolError
	require.True(t, errors.As(err, &perr), "expected protocol error, got %v", err)
	require.Equal(t, code, perr.Code)
}

func passwordRequest(scope string) TokenRequest {
	return TokenRequest{
		GrantType:    oidc.GrantPassword,
		ClientID:     "ro.client",
		ClientSecret: oidc.DefaultSecret,
		Scope:        scope,
		UserName:     seed.Alice,
		Password:     seed.DefaultPassword,
	}
}

func TestService_Token_ClientCredentials(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Token(context.Background(), TokenRequest{
		GrantType:    oidc.GrantClientCredentials,
		ClientID:     "client",
		ClientSecret: oidc.DefaultSecret,
	})
	require.NoError(t, err)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, int64(3600), resp.ExpiresIn)
	require.Equal(t, "api1", resp.Scope)

	payload, err := f.signer.Parse(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testIssuer, payload["iss"])
	require.Equal(t, "client", payload["client_id"])
	require.Equal(t, []any{"api1"}, payload["aud"])
	require.Equal(t, []any{"api1"}, payload["scope"])
	require.NotEmpty(t, payload["jti"])
	require.NotContains(t, payload, "sub")
}

func TestService_Token_PasswordGrantIncludesRoleClaims(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Token(context.Background(), passwordRequest("openid api1"))
	require.NoError(t, err)

	payload, err := f.signer.Parse(resp.AccessToken)
	require.NoError(t, err)
	alice, err := f.members.FindByName(context.Background(), seed.Alice)
	require.NoError(t, err)

	require.Equal(t, alice.ID, payload["sub"])
	require.Equal(t, "local", payload["idp"])
	require.Equal(t, []any{"pwd"}, payload["amr"])
	require.Equal(t, "Admin", payload["role"])
	require.Equal(t, []any{"projects.view", "projects.edit"}, payload["permission"])
	require.Equal(t, seed.Alice, payload["name"])
	require.NotContains(t, payload, "website")

	principal, err := f.svc.Authenticate(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, alice.ID, principal.Subject)
	require.Equal(t, "ro.client", principal.ClientID)
	require.True(t, principal.IsInRole("Admin"))
}

func TestService_Token_BobIsNotAdmin(t *testing.T) {
	f := newFixture(t)
	req := passwordRequest("api1")
	req.UserName = seed.Bob

	resp, err := f.svc.Token(context.Background(), req)
	require.NoError(t, err)
	principal, err := f.svc.Authenticate(resp.AccessToken)
	require.NoError(t, err)
	require.False(t, principal.IsInRole("Admin"))
}

func TestService_Token_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  TokenRequest
		code string
	}{
		{
			name: "missing grant type",
			req:  TokenRequest{ClientID: "client", ClientSecret: oidc.DefaultSecret},
			code: CodeInvalidRequest,
		},
		{
			name: "unsupported grant type",
			req:  TokenRequest{GrantType: "authorization_code", ClientID: "client", ClientSecret: oidc.DefaultSecret},
			code: CodeUnsupportedGrantType,
		},
		{
			name: "bad client secret",
			req:  TokenRequest{GrantType: oidc.GrantClientCredentials, ClientID: "client", ClientSecret: "wrong"},
			code: CodeInvalidClient,
		},
		{
			name: "unknown client",
			req:  TokenRequest{GrantType: oidc.GrantClientCredentials, ClientID: "nope", ClientSecret: oidc.DefaultSecret},
			code: CodeInvalidClient,
		},
		{
			name: "grant not allowed for client",
			req:  TokenRequest{GrantType: oidc.GrantPassword, ClientID: "client", ClientSecret: oidc.DefaultSecret, UserName: seed.Alice, Password: seed.DefaultPassword},
			code: CodeUnauthorizedClient,
		},
		{
			name: "scope not allowed for client",
			req:  TokenRequest{GrantType: oidc.GrantClientCredentials, ClientID: "client", ClientSecret: oidc.DefaultSecret, Scope: "openid"},
			code: CodeInvalidScope,
		},
		{
			name: "wrong password",
			req: func() TokenRequest {
				r := passwordRequest("api1")
				r.Password = "wrong"
				return r
			}(),
			code: CodeInvalidGrant,
		},
		{
			name: "unknown user",
			req: func() TokenRequest {
				r := passwordRequest("api1")
				r.UserName = "ghost@example.com"
				return r
			}(),
			code: CodeInvalidGrant,
		},
		{
			name: "missing password",
			req: func() TokenRequest {
				r := passwordRequest("api1")
				r.Password = ""
				return r
			}(),
			code: CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Token(ctx, tt.req)
			requireProtocolError(t, err, tt.code)
		})
	}
}

func TestService_UserInfo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Token(ctx, passwordRequest("openid profile email address roles"))
	require.NoError(t, err)

	info, err := f.svc.UserInfo(ctx, resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "Alice", info[claim.TypeGivenName])
	require.Equal(t, true, info[claim.TypeEmailVerified])
	require.Equal(t, "http://alice.com", info[claim.TypeWebSite])
	require.Equal(t, "Admin", info[claim.TypeRole])
	address, ok := info[claim.TypeAddress].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Heidelberg", address["locality"])
	require.NotContains(t, info, claim.TypePermission)
}

func TestService_UserInfo_RequiresOpenIDScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Token(ctx, passwordRequest("api1"))
	require.NoError(t, err)
	_, err = f.svc.UserInfo(ctx, resp.AccessToken)
	require.ErrorIs(t, err, ErrInsufficientScope)

	_, err = f.svc.UserInfo(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPrincipalFromContext(t *testing.T) {
	require.Nil(t, PrincipalFrom(context.Background()))

	p := PrincipalFromPayload(map[string]any{
		"sub":  "42",
		"role": []any{"Admin", "User"},
	})
	ctx := WithPrincipal(context.Background(), p)
	require.Same(t, p, PrincipalFrom(ctx))
	require.Equal(t, "42", p.Subject)
	require.True(t, p.IsInRole("User"))
	require.False(t, p.IsInRole("Guest"))
}
