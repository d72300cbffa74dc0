package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/akurin/identity-server-demo/app/internal/domain/claim"
	domuser "github.com/akurin/identity-server-demo/app/internal/domain/user"
	domrole "github.com/akurin/identity-server-demo/app/internal/domain/userrole"
	"github.com/akurin/identity-server-demo/app/internal/infra/persistence/sqldb"
	"github.com/akurin/identity-server-demo/app/internal/infra/persistence/sqldb/sqldbtest"
	"github.com/akurin/identity-server-demo/app/internal/infra/security"
	"github.com/akurin/identity-server-demo/app/internal/usecase/membership"
)

func newMembership(t *testing.T) *membership.Service {
	t.Helper()
	db := sqldbtest.Open(t)
	return membership.NewService(
		sqldb.NewUserRepository(db),
		sqldb.NewUserRoleRepository(db),
		security.NewBcryptService(4),
		membership.DefaultPasswordPolicy(),
	)
}

func messages(hook *test.Hook) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		out = append(out, e.Message)
	}
	return out
}

func TestSeeder_EnsureSeedData(t *testing.T) {
	ctx := context.Background()
	members := newMembership(t)
	log, hook := test.NewNullLogger()

	require.NoError(t, NewSeeder(members, log).EnsureSeedData(ctx))
	require.Equal(t, []string{
		"admin role created",
		"alice created",
		"alice is admin now",
		"bob created",
	}, messages(hook))

	role, err := members.FindRoleByName(ctx, domuser.RoleAdmin)
	require.NoError(t, err)
	roleClaims, err := members.GetRoleClaims(ctx, role)
	require.NoError(t, err)
	require.Equal(t, []claim.Claim{
		claim.String(claim.TypePermission, "projects.view"),
		claim.String(claim.TypePermission, "projects.edit"),
	}, roleClaims)

	alice, err := members.FindByName(ctx, Alice)
	require.NoError(t, err)
	require.NoError(t, members.CheckPassword(ctx, alice, DefaultPassword))
	isAdmin, err := members.IsInRole(ctx, alice, domuser.RoleAdmin)
	require.NoError(t, err)
	require.True(t, isAdmin)
	aliceClaims, err := members.GetClaims(ctx, alice)
	require.NoError(t, err)
	require.Len(t, aliceClaims, 7)
	for _, c := range aliceClaims {
		require.NoError(t, c.Validate())
	}

	bob, err := members.FindByName(ctx, Bob)
	require.NoError(t, err)
	isAdmin, err = members.IsInRole(ctx, bob, domuser.RoleAdmin)
	require.NoError(t, err)
	require.False(t, isAdmin)
	bobClaims, err := members.GetClaims(ctx, bob)
	require.NoError(t, err)
	require.Contains(t, bobClaims, claim.String("location", "somewhere"))
	require.Contains(t, bobClaims, claim.String(claim.TypeEmail, "BobSmith@email.com"))
}

func TestSeeder_EnsureSeedData_Idempotent(t *testing.T) {
	ctx := context.Background()
	members := newMembership(t)
	log, hook := test.NewNullLogger()
	seeder := NewSeeder(members, log)

	require.NoError(t, seeder.EnsureSeedData(ctx))
	hook.Reset()
	require.NoError(t, seeder.EnsureSeedData(ctx))
	require.Equal(t, []string{
		"admin role already exists",
		"alice already exists",
		"alice already has admin role",
		"bob already exists",
	}, messages(hook))

	users, err := members.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	admins, err := members.UsersInRole(ctx, domuser.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	require.Equal(t, Alice, admins[0].UserName)

	role, err := members.FindRoleByName(ctx, domuser.RoleAdmin)
	require.NoError(t, err)
	roleClaims, err := members.GetRoleClaims(ctx, role)
	require.NoError(t, err)
	require.Len(t, roleClaims, 2)

	alice, err := members.FindByName(ctx, Alice)
	require.NoError(t, err)
	aliceClaims, err := members.GetClaims(ctx, alice)
	require.NoError(t, err)
	require.Len(t, aliceClaims, 7)
}

func TestSeeder_EnsureSeedData_ResumesPartialRun(t *testing.T) {
	ctx := context.Background()
	members := newMembership(t)
	log, hook := test.NewNullLogger()

	require.NoError(t, members.CreateRole(ctx, &domrole.UserRole{Name: domuser.RoleAdmin}))
	require.NoError(t, members.CreateUser(ctx, &domuser.User{UserName: Alice, Email: Alice}, DefaultPassword))

	require.NoError(t, NewSeeder(members, log).EnsureSeedData(ctx))
	require.Equal(t, []string{
		"admin role already exists",
		"alice already exists",
		"alice is admin now",
		"bob created",
	}, messages(hook))
}

type failingMembership struct {
	Membership
	err error
}

func (f failingMembership) FindRoleByName(ctx context.Context, name string) (*domrole.UserRole, error) {
	return nil, domrole.ErrRoleNotFound
}

func (f failingMembership) CreateRole(ctx context.Context, role *domrole.UserRole) error {
	return f.err
}

func TestSeeder_EnsureSeedData_WrapsFailures(t *testing.T) {
	boom := errors.New("boom")
	log, _ := test.NewNullLogger()

	err := NewSeeder(failingMembership{err: boom}, log).EnsureSeedData(context.Background())
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "create admin role")
}
