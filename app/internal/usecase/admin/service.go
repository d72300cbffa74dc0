package admin

import (
	"context"
	"errors"
	"strings"

	domuser "github.com/akurin/identity-server-demo/app/internal/domain/user"
	domrole "github.com/akurin/identity-server-demo/app/internal/domain/userrole"
)

// Membership is the subset of the membership service the admin pages use.
type Membership interface {
	CreateUser(ctx context.Context, u *domuser.User, password string) error
	FindByName(ctx context.Context, userName string) (*domuser.User, error)
	FindByEmail(ctx context.Context, email string) (*domuser.User, error)
	ListUsers(ctx context.Context) ([]*domuser.User, error)
	UsersInRole(ctx context.Context, roleName string) ([]*domuser.User, error)
	Update(ctx context.Context, u *domuser.User) error
	Delete(ctx context.Context, u *domuser.User) error
	AddToRole(ctx context.Context, u *domuser.User, roleName string) error
	IsInRole(ctx context.Context, u *domuser.User, roleName string) (bool, error)
}

// View is the (email, isAdmin) projection shown on the admin pages.
type View struct {
	Email   string
	IsAdmin bool
}

type CreateInput struct {
	Email    string
	IsAdmin  bool
	Password string
}

type Service struct {
	members Membership
}

func NewService(members Membership) *Service {
	return &Service{members: members}
}

// List projects every user. A missing Admin role means nobody is an admin.
func (s *Service) List(ctx context.Context) ([]View, error) {
	users, err := s.members.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	admins, err := s.members.UsersInRole(ctx, domuser.RoleAdmin)
	if err != nil && !errors.Is(err, domrole.ErrRoleNotFound) {
		return nil, err
	}
	adminIDs := make(map[string]bool, len(admins))
	for _, a := range admins {
		adminIDs[a.ID] = true
	}

	views := make([]View, 0, len(users))
	for _, u := range users {
		views = append(views, View{
			Email:   u.UserName,
			IsAdmin: adminIDs[u.ID],
		})
	}
	return views, nil
}

func (s *Service) Details(ctx context.Context, id string) (*View, error) {
	return s.viewByName(ctx, id)
}

// EditView returns the current state shown on the edit form.
func (s *Service) EditView(ctx context.Context, id string) (*View, error) {
	return s.viewByName(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) error {
	u := &domuser.User{
		UserName: strings.TrimSpace(in.Email),
		Email:    strings.TrimSpace(in.Email),
	}
	if err := s.members.CreateUser(ctx, u, in.Password); err != nil {
		return err
	}
	if in.IsAdmin {
		return s.members.AddToRole(ctx, u, domuser.RoleAdmin)
	}
	return nil
}

// Edit saves the edit form. The path id must equal the submitted email, so
// the email itself can never change here, and clearing IsAdmin does not
// revoke an existing Admin membership.
func (s *Service) Edit(ctx context.Context, id string, in View) error {
	if id != in.Email {
		return domuser.ErrUserNotFound
	}

	u, err := s.members.FindByName(ctx, id)
	if err != nil {
		return err
	}
	if err := s.members.Update(ctx, u); err != nil {
		return err
	}

	if !in.IsAdmin {
		return nil
	}
	isAdmin, err := s.members.IsInRole(ctx, u, domuser.RoleAdmin)
	if err != nil {
		return err
	}
	if isAdmin {
		return nil
	}
	return s.members.AddToRole(ctx, u, domuser.RoleAdmin)
}

// Delete removes the user whose email equals id.
func (s *Service) Delete(ctx context.Context, id string) error {
	u, err := s.members.FindByEmail(ctx, id)
	if err != nil {
		return err
	}
	return s.members.Delete(ctx, u)
}

func (s *Service) viewByName(ctx context.Context, id string) (*View, error) {
	if id == "" {
		return nil, domuser.ErrUserNotFound
	}
	u, err := s.members.FindByName(ctx, id)
	if err != nil {
		return nil, err
	}
	isAdmin, err := s.members.IsInRole(ctx, u, domuser.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return &View{Email: u.Email, IsAdmin: isAdmin}, nil
}
