package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/akurin/identity-server-demo/app/internal/domain/claim"
	domuser "github.com/akurin/identity-server-demo/app/internal/domain/user"
	domrole "github.com/akurin/identity-server-demo/app/internal/domain/userrole"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error
}

// Service is the user and role manager: credential hashing, lookups,
// role membership and claim management on top of the repositories.
type Service struct {
	users  domuser.Repository
	roles  domrole.Repository
	hasher PasswordHasher
	policy PasswordPolicy
}

func NewService(users domuser.Repository, roles domrole.Repository, hasher PasswordHasher, policy PasswordPolicy) *Service {
	return &Service{
		users:  users,
		roles:  roles,
		hasher: hasher,
		policy: policy,
	}
}

// CreateUser validates and stores u with a hashed password. u.ID and the
// normalized fields are filled in.
func (s *Service) CreateUser(ctx context.Context, u *domuser.User, password string) error {
	u.UserName = strings.TrimSpace(u.UserName)
	if u.UserName == "" || !domuser.ValidUserName(u.UserName) {
		return fmt.Errorf("%q: %w", u.UserName, domuser.ErrInvalidUserName)
	}
	if err := s.policy.Validate(password); err != nil {
		return err
	}

	if _, err := s.users.GetByUserName(ctx, domuser.Normalize(u.UserName)); err == nil {
		return fmt.Errorf("%s: %w", u.UserName, domuser.ErrDuplicateUserName)
	} else if !errors.Is(err, domuser.ErrUserNotFound) {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.PasswordHash = hash
	u.SecurityStamp = uuid.NewString()
	normalize(u)

	if err := s.users.Create(ctx, u); err != nil {
		return fmt.Errorf("create user %s: %w", u.UserName, err)
	}
	return nil
}

func (s *Service) FindByID(ctx context.Context, id string) (*domuser.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) FindByName(ctx context.Context, userName string) (*domuser.User, error) {
	if strings.TrimSpace(userName) == "" {
		return nil, domuser.ErrUserNotFound
	}
	return s.users.GetByUserName(ctx, domuser.Normalize(userName))
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*domuser.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, domuser.ErrUserNotFound
	}
	return s.users.GetByEmail(ctx, domuser.Normalize(email))
}

func (s *Service) ListUsers(ctx context.Context) ([]*domuser.User, error) {
	return s.users.List(ctx, domuser.ListUsersFilter{})
}

// UsersInRole returns the members of the named role.
func (s *Service) UsersInRole(ctx context.Context, roleName string) ([]*domuser.User, error) {
	role, err := s.FindRoleByName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	return s.users.List(ctx, domuser.ListUsersFilter{RoleID: &role.ID})
}

// Update persists u after re-normalizing its user name and email.
func (s *Service) Update(ctx context.Context, u *domuser.User) error {
	if u == nil {
		return domuser.ErrUserNotFound
	}
	if !domuser.ValidUserName(u.UserName) {
		return fmt.Errorf("%q: %w", u.UserName, domuser.ErrInvalidUserName)
	}
	normalize(u)
	return s.users.Update(ctx, u)
}

func (s *Service) Delete(ctx context.Context, u *domuser.User) error {
	if u == nil {
		return domuser.ErrUserNotFound
	}
	return s.users.Delete(ctx, u.ID)
}

// CheckPassword reports ErrInvalidCredential when password does not match.
func (s *Service) CheckPassword(ctx context.Context, u *domuser.User, password string) error {
	if u.PasswordHash == "" {
		return domuser.ErrMissingPasswordHash
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return domuser.ErrInvalidCredential
	}
	return nil
}

func (s *Service) AddToRole(ctx context.Context, u *domuser.User, roleName string) error {
	role, err := s.FindRoleByName(ctx, roleName)
	if err != nil {
		return err
	}
	if err := s.roles.AddMember(ctx, u.ID, role.ID); err != nil {
		if errors.Is(err, domrole.ErrMembershipExisted) {
			return fmt.Errorf("%s in %s: %w", u.UserName, role.Name, domuser.ErrUserAlreadyInRole)
		}
		return err
	}
	return nil
}

func (s *Service) IsInRole(ctx context.Context, u *domuser.User, roleName string) (bool, error) {
	role, err := s.FindRoleByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, domrole.ErrRoleNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.roles.IsMember(ctx, u.ID, role.ID)
}

// GetRoles returns the names of the roles u belongs to.
func (s *Service) GetRoles(ctx context.Context, u *domuser.User) ([]string, error) {
	roles, err := s.roles.ListForUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

// GetRoleClaimsForUser collects the claims attached to every role of u.
func (s *Service) GetRoleClaimsForUser(ctx context.Context, u *domuser.User) ([]claim.Claim, error) {
	roles, err := s.roles.ListForUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	var out []claim.Claim
	for _, r := range roles {
		claims, err := s.roles.ListClaims(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, claims...)
	}
	return out, nil
}

func (s *Service) AddClaims(ctx context.Context, u *domuser.User, claims ...claim.Claim) error {
	for _, c := range claims {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return s.users.AddClaims(ctx, u.ID, claims)
}

func (s *Service) GetClaims(ctx context.Context, u *domuser.User) ([]claim.Claim, error) {
	return s.users.ListClaims(ctx, u.ID)
}

func (s *Service) CreateRole(ctx context.Context, role *domrole.UserRole) error {
	role.Name = strings.TrimSpace(role.Name)
	if role.Name == "" {
		return domrole.ErrInvalidRoleName
	}
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	role.NormalizedName = domuser.Normalize(role.Name)
	if err := s.roles.Create(ctx, role); err != nil {
		return fmt.Errorf("create role %s: %w", role.Name, err)
	}
	return nil
}

func (s *Service) FindRoleByName(ctx context.Context, name string) (*domrole.UserRole, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domrole.ErrRoleNotFound
	}
	return s.roles.GetByName(ctx, domuser.Normalize(name))
}

func (s *Service) AddRoleClaim(ctx context.Context, role *domrole.UserRole, c claim.Claim) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.roles.AddClaim(ctx, role.ID, c)
}

func (s *Service) GetRoleClaims(ctx context.Context, role *domrole.UserRole) ([]claim.Claim, error) {
	return s.roles.ListClaims(ctx, role.ID)
}

func normalize(u *domuser.User) {
	u.NormalizedUserName = domuser.Normalize(u.UserName)
	u.NormalizedEmail = domuser.Normalize(u.Email)
}
