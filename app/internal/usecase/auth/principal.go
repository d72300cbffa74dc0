package auth

import (
	"context"

	"github.com/akurin/identity-server-demo/app/internal/domain/claim"
)

// Principal is the authenticated caller behind a bearer token.
type Principal struct {
	Subject  string
	ClientID string
	Claims   []claim.Claim
}

// PrincipalFromPayload builds a principal from a validated token payload.
func PrincipalFromPayload(payload map[string]any) *Principal {
	p := &Principal{Claims: claim.FromPayload(payload)}
	for _, c := range p.Claims {
		switch c.Type {
		case claim.TypeSubject:
			p.Subject = c.Value
		case "client_id":
			p.ClientID = c.Value
		}
	}
	return p
}

func (p *Principal) IsInRole(role string) bool {
	for _, c := range p.Claims {
		if c.Type == claim.TypeRole && c.Value == role {
			return true
		}
	}
	return false
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
