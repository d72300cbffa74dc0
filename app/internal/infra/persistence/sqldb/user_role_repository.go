package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/akurin/identity-server-demo/app/internal/domain/claim"
	domrole "github.com/akurin/identity-server-demo/app/internal/domain/userrole"
)

type UserRoleRepository struct {
	db *DB
}

func NewUserRoleRepository(db *DB) *UserRoleRepository {
	return &UserRoleRepository{db: db}
}

func (r *UserRoleRepository) Create(ctx context.Context, role *domrole.UserRole) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
        INSERT INTO roles (id, name, normalized_name)
        VALUES (?, ?, ?)`),
		role.ID, role.Name, role.NormalizedName,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domrole.ErrRoleNameExisted
		}
		return err
	}
	return nil
}

func (r *UserRoleRepository) getOne(ctx context.Context, where string, arg any) (*domrole.UserRole, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`
        SELECT id, name, normalized_name
        FROM roles
        WHERE `+where), arg)

	var role domrole.UserRole
	if err := row.Scan(&role.ID, &role.Name, &role.NormalizedName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domrole.ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *UserRoleRepository) GetByName(ctx context.Context, normalizedName string) (*domrole.UserRole, error) {
	return r.getOne(ctx, `normalized_name = ?`, normalizedName)
}

func (r *UserRoleRepository) ListForUser(ctx context.Context, userID string) ([]*domrole.UserRole, error) {
	return r.queryRoles(ctx, `
        SELECT r.id, r.name, r.normalized_name
        FROM roles r
        JOIN user_roles ur ON ur.role_id = r.id
        WHERE ur.user_id = ?
        ORDER BY r.normalized_name`, userID)
}

func (r *UserRoleRepository) queryRoles(ctx context.Context, query string, args ...any) ([]*domrole.UserRole, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*domrole.UserRole
	for rows.Next() {
		var role domrole.UserRole
		if err := rows.Scan(&role.ID, &role.Name, &role.NormalizedName); err != nil {
			return nil, err
		}
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}

func (r *UserRoleRepository) AddClaim(ctx context.Context, roleID string, c claim.Claim) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		return roleClaimsTable.insert(ctx, r.db, tx, roleID, []claim.Claim{c})
	})
}

func (r *UserRoleRepository) ListClaims(ctx context.Context, roleID string) ([]claim.Claim, error) {
	return roleClaimsTable.list(ctx, r.db, r.db, roleID)
}

func (r *UserRoleRepository) AddMember(ctx context.Context, userID, roleID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
        INSERT INTO user_roles (user_id, role_id)
        VALUES (?, ?)`),
		userID, roleID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domrole.ErrMembershipExisted
		}
		return err
	}
	return nil
}

func (r *UserRoleRepository) IsMember(ctx context.Context, userID, roleID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`
        SELECT COUNT(*) FROM user_roles WHERE user_id = ? AND role_id = ?`),
		userID, roleID,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
