package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/akurin/identity-server-demo/app/internal/domain/claim"
	domuser "github.com/akurin/identity-server-demo/app/internal/domain/user"
	domrole "github.com/akurin/identity-server-demo/app/internal/domain/userrole"
)

const (
	Alice = "alice@example.com"
	Bob   = "bob@example.com"

	DefaultPassword = "P@ssw0rd"

	addressJSON = `{"street_address":"One Hacker Way","locality":"Heidelberg","postal_code":69118,"country":"Germany"}`
)

// Membership is what the seeder needs from the membership service.
type Membership interface {
	CreateUser(ctx context.Context, u *domuser.User, password string) error
	FindByName(ctx context.Context, userName string) (*domuser.User, error)
	AddClaims(ctx context.Context, u *domuser.User, claims ...claim.Claim) error
	AddToRole(ctx context.Context, u *domuser.User, roleName string) error
	IsInRole(ctx context.Context, u *domuser.User, roleName string) (bool, error)
	CreateRole(ctx context.Context, role *domrole.UserRole) error
	FindRoleByName(ctx context.Context, name string) (*domrole.UserRole, error)
	AddRoleClaim(ctx context.Context, role *domrole.UserRole, c claim.Claim) error
}

type Seeder struct {
	members Membership
	log     logrus.FieldLogger
}

func NewSeeder(members Membership, log logrus.FieldLogger) *Seeder {
	return &Seeder{members: members, log: log}
}

// EnsureSeedData creates the Admin role and the alice and bob demo accounts.
// Every step is skipped when its result already exists, so a failed run can
// simply be repeated.
func (s *Seeder) EnsureSeedData(ctx context.Context) error {
	if err := s.createAdminRole(ctx); err != nil {
		return err
	}
	alice, err := s.ensureUser(ctx, "alice", Alice, aliceClaims())
	if err != nil {
		return err
	}
	if err := s.makeAdmin(ctx, alice); err != nil {
		return err
	}
	if _, err := s.ensureUser(ctx, "bob", Bob, bobClaims()); err != nil {
		return err
	}
	return nil
}

func (s *Seeder) createAdminRole(ctx context.Context) error {
	_, err := s.members.FindRoleByName(ctx, domuser.RoleAdmin)
	if err == nil {
		s.log.Info("admin role already exists")
		return nil
	}
	if !errors.Is(err, domrole.ErrRoleNotFound) {
		return fmt.Errorf("find admin role: %w", err)
	}

	role := &domrole.UserRole{Name: domuser.RoleAdmin}
	if err := s.members.CreateRole(ctx, role); err != nil {
		return fmt.Errorf("create admin role: %w", err)
	}
	for _, p := range []string{"projects.view", "projects.edit"} {
		if err := s.members.AddRoleClaim(ctx, role, claim.String(claim.TypePermission, p)); err != nil {
			return fmt.Errorf("add permission %s to admin role: %w", p, err)
		}
	}
	s.log.Info("admin role created")
	return nil
}

func (s *Seeder) ensureUser(ctx context.Context, label, userName string, claims []claim.Claim) (*domuser.User, error) {
	u, err := s.members.FindByName(ctx, userName)
	if err == nil {
		s.log.Infof("%s already exists", label)
		return u, nil
	}
	if !errors.Is(err, domuser.ErrUserNotFound) {
		return nil, fmt.Errorf("find %s: %w", label, err)
	}

	u = &domuser.User{UserName: userName, Email: userName}
	if err := s.members.CreateUser(ctx, u, DefaultPassword); err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	if err := s.members.AddClaims(ctx, u, claims...); err != nil {
		return nil, fmt.Errorf("add claims to %s: %w", label, err)
	}
	s.log.Infof("%s created", label)
	return u, nil
}

func (s *Seeder) makeAdmin(ctx context.Context, alice *domuser.User) error {
	isAdmin, err := s.members.IsInRole(ctx, alice, domuser.RoleAdmin)
	if err != nil {
		return fmt.Errorf("check alice admin role: %w", err)
	}
	if isAdmin {
		s.log.Info("alice already has admin role")
		return nil
	}
	if err := s.members.AddToRole(ctx, alice, domuser.RoleAdmin); err != nil {
		return fmt.Errorf("make alice admin: %w", err)
	}
	s.log.Info("alice is admin now")
	return nil
}

func aliceClaims() []claim.Claim {
	return []claim.Claim{
		claim.String(claim.TypeName, Alice),
		claim.String(claim.TypeGivenName, "Alice"),
		claim.String(claim.TypeFamilyName, "Smith"),
		claim.String(claim.TypeEmail, Alice),
		claim.Bool(claim.TypeEmailVerified, true),
		claim.String(claim.TypeWebSite, "http://alice.com"),
		claim.JSON(claim.TypeAddress, addressJSON),
	}
}

func bobClaims() []claim.Claim {
	return []claim.Claim{
		claim.String(claim.TypeName, Bob),
		claim.String(claim.TypeGivenName, "Bob"),
		claim.String(claim.TypeFamilyName, "Smith"),
		claim.String(claim.TypeEmail, "BobSmith@email.com"),
		claim.Bool(claim.TypeEmailVerified, true),
		claim.String(claim.TypeWebSite, "http://bob.com"),
		claim.JSON(claim.TypeAddress, addressJSON),
		claim.String("location", "somewhere"),
	}
}
