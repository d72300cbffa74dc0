package user

import (
	"context"

	"github.com/akurin/identity-server-demo/app/internal/domain/claim"
)

// Repository persists users and their claims. Lookups by name and email take
// the normalized form.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUserName(ctx context.Context, normalizedUserName string) (*User, error)
	GetByEmail(ctx context.Context, normalizedEmail string) (*User, error)
	List(ctx context.Context, filter ListUsersFilter) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error

	AddClaims(ctx context.Context, userID string, claims []claim.Claim) error
	ListClaims(ctx context.Context, userID string) ([]claim.Claim, error)
}
