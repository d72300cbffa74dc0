package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	domuser "github.com/akurin/identity-server-demo/app/internal/domain/user"
	domrole "github.com/akurin/identity-server-demo/app/internal/domain/userrole"
	"github.com/akurin/identity-server-demo/app/internal/infra/persistence/sqldb"
	"github.com/akurin/identity-server-demo/app/internal/infra/persistence/sqldb/sqldbtest"
	"github.com/akurin/identity-server-demo/app/internal/infra/security"
	"github.com/akurin/identity-server-demo/app/internal/usecase/membership"
)

func newTestService(t *testing.T, withAdminRole bool) (*Service, *membership.Service) {
	t.Helper()
	db := sqldbtest.Open(t)
	members := membership.NewService(
		sqldb.NewUserRepository(db),
		sqldb.NewUserRoleRepository(db),
		security.NewBcryptService(4),
		membership.DefaultPasswordPolicy(),
	)
	if withAdminRole {
		require.NoError(t, members.CreateRole(context.Background(), &domrole.UserRole{Name: domuser.RoleAdmin}))
	}
	return NewService(members), members
}

func findView(t *testing.T, views []View, email string) View {
	t.Helper()
	for _, v := range views {
		if v.Email == email {
			return v
		}
	}
	t.Fatalf("user %s not listed in %v", email, views)
	return View{}
}

func TestService_List_ReflectsMembership(t *testing.T) {
	ctx := context.Background()
	svc, members := newTestService(t, true)

	require.NoError(t, svc.Create(ctx, CreateInput{Email: "carol@example.com", Password: "P@ssw0rd"}))

	views, err := svc.List(ctx)
	require.NoError(t, err)
	require.False(t, findView(t, views, "carol@example.com").IsAdmin)

	u, err := members.FindByName(ctx, "carol@example.com")
	require.NoError(t, err)
	require.NoError(t, members.AddToRole(ctx, u, domuser.RoleAdmin))

	views, err = svc.List(ctx)
	require.NoError(t, err)
	require.True(t, findView(t, views, "carol@example.com").IsAdmin)
}

func TestService_List_EmptyAndWithoutAdminRole(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, false)

	views, err := svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, views)

	require.NoError(t, svc.Create(ctx, CreateInput{Email: "dave@example.com", Password: "P@ssw0rd"}))
	views, err = svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []View{{Email: "dave@example.com"}}, views)
}

func TestService_Create_AdminFlag(t *testing.T) {
	ctx := context.Background()
	svc, members := newTestService(t, true)

	require.NoError(t, svc.Create(ctx, CreateInput{Email: "admin2@example.com", IsAdmin: true, Password: "P@ssw0rd"}))
	require.NoError(t, svc.Create(ctx, CreateInput{Email: "plain@example.com", IsAdmin: false, Password: "P@ssw0rd"}))

	view, err := svc.Details(ctx, "admin2@example.com")
	require.NoError(t, err)
	require.Equal(t, &View{Email: "admin2@example.com", IsAdmin: true}, view)

	view, err = svc.Details(ctx, "plain@example.com")
	require.NoError(t, err)
	require.False(t, view.IsAdmin)

	admins, err := members.UsersInRole(ctx, domuser.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	require.Equal(t, "admin2@example.com", admins[0].UserName)
}

func TestService_Create_SurfacesMembershipErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, true)

	require.NoError(t, svc.Create(ctx, CreateInput{Email: "dup@example.com", Password: "P@ssw0rd"}))
	err := svc.Create(ctx, CreateInput{Email: "dup@example.com", Password: "P@ssw0rd"})
	require.ErrorIs(t, err, domuser.ErrDuplicateUserName)

	err = svc.Create(ctx, CreateInput{Email: "weak@example.com", Password: "123"})
	require.ErrorIs(t, err, domuser.ErrPasswordPolicy)
}

func TestService_Details_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, true)

	_, err := svc.Details(ctx, "")
	require.ErrorIs(t, err, domuser.ErrUserNotFound)
	_, err = svc.Details(ctx, "ghost@example.com")
	require.ErrorIs(t, err, domuser.ErrUserNotFound)
	_, err = svc.EditView(ctx, "ghost@example.com")
	require.ErrorIs(t, err, domuser.ErrUserNotFound)
}

func TestService_Edit_MismatchedIDIsNotFoundAndNoOp(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, true)
	require.NoError(t, svc.Create(ctx, CreateInput{Email: "erin@example.com", Password: "P@ssw0rd"}))

	err := svc.Edit(ctx, "erin@example.com", View{Email: "renamed@example.com", IsAdmin: true})
	require.ErrorIs(t, err, domuser.ErrUserNotFound)

	view, err := svc.Details(ctx, "erin@example.com")
	require.NoError(t, err)
	require.Equal(t, &View{Email: "erin@example.com", IsAdmin: false}, view)
	_, err = svc.Details(ctx, "renamed@example.com")
	require.ErrorIs(t, err, domuser.ErrUserNotFound)
}

func TestService_Edit_GrantsButNeverRevokesAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, true)
	require.NoError(t, svc.Create(ctx, CreateInput{Email: "frank@example.com", Password: "P@ssw0rd"}))

	require.NoError(t, svc.Edit(ctx, "frank@example.com", View{Email: "frank@example.com", IsAdmin: true}))
	view, err := svc.EditView(ctx, "frank@example.com")
	require.NoError(t, err)
	require.True(t, view.IsAdmin)

	// Granting twice is harmless.
	require.NoError(t, svc.Edit(ctx, "frank@example.com", View{Email: "frank@example.com", IsAdmin: true}))

	require.NoError(t, svc.Edit(ctx, "frank@example.com", View{Email: "frank@example.com", IsAdmin: false}))
	view, err = svc.EditView(ctx, "frank@example.com")
	require.NoError(t, err)
	require.True(t, view.IsAdmin, "clearing IsAdmin must not revoke the Admin role")
}

func TestService_Edit_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t, true)

	err := svc.Edit(context.Background(), "ghost@example.com", View{Email: "ghost@example.com"})
	require.ErrorIs(t, err, domuser.ErrUserNotFound)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, true)
	require.NoError(t, svc.Create(ctx, CreateInput{Email: "gina@example.com", IsAdmin: true, Password: "P@ssw0rd"}))

	require.ErrorIs(t, svc.Delete(ctx, "ghost@example.com"), domuser.ErrUserNotFound)

	require.NoError(t, svc.Delete(ctx, "gina@example.com"))
	views, err := svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, views)
}

type failingMembership struct {
	Membership
	err error
}

func (f failingMembership) ListUsers(ctx context.Context) ([]*domuser.User, error) {
	return nil, f.err
}

func TestService_List_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(failingMembership{err: boom})

	_, err := svc.List(context.Background())
	require.ErrorIs(t, err, boom)
}
