package userrole

import (
	"context"

	"github.com/akurin/identity-server-demo/app/internal/domain/claim"
)

type Repository interface {
	Create(ctx context.Context, role *UserRole) error
	GetByName(ctx context.Context, normalizedName string) (*UserRole, error)

	AddClaim(ctx context.Context, roleID string, c claim.Claim) error
	ListClaims(ctx context.Context, roleID string) ([]claim.Claim, error)

	// Membership rows of the user_roles association table.
	AddMember(ctx context.Context, userID, roleID string) error
	IsMember(ctx context.Context, userID, roleID string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]*UserRole, error)
}
