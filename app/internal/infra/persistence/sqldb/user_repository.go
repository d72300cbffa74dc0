package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/akurin/identity-server-demo/app/internal/domain/claim"
	dom "github.com/akurin/identity-server-demo/app/internal/domain/user"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `u.id, u.user_name, u.normalized_user_name, u.email, u.normalized_email, u.password_hash, u.security_stamp`

func scanUser(row interface{ Scan(dest ...any) error }) (*dom.User, error) {
	var u dom.User
	if err := row.Scan(&u.ID, &u.UserName, &u.NormalizedUserName, &u.Email, &u.NormalizedEmail, &u.PasswordHash, &u.SecurityStamp); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *dom.User) error {
	now := nowMillis()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
        INSERT INTO users (id, user_name, normalized_user_name, email, normalized_email, password_hash, security_stamp, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		u.ID, u.UserName, u.NormalizedUserName, u.Email, u.NormalizedEmail, u.PasswordHash, u.SecurityStamp, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return dom.ErrDuplicateUserName
		}
		return err
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*dom.User, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`
        SELECT `+userColumns+`
        FROM users u
        WHERE `+where+`
        ORDER BY u.created_at, u.id
        LIMIT 1`), arg)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dom.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*dom.User, error) {
	return r.getOne(ctx, `u.id = ?`, id)
}

func (r *UserRepository) GetByUserName(ctx context.Context, normalizedUserName string) (*dom.User, error) {
	return r.getOne(ctx, `u.normalized_user_name = ?`, normalizedUserName)
}

func (r *UserRepository) GetByEmail(ctx context.Context, normalizedEmail string) (*dom.User, error) {
	return r.getOne(ctx, `u.normalized_email = ?`, normalizedEmail)
}

func (r *UserRepository) List(ctx context.Context, filter dom.ListUsersFilter) ([]*dom.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u`
	args := []any{}
	if filter.RoleID != nil {
		query += ` JOIN user_roles ur ON ur.user_id = u.id WHERE ur.role_id = ?`
		args = append(args, *filter.RoleID)
	}
	query += ` ORDER BY u.created_at, u.id`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*dom.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, u *dom.User) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
        UPDATE users
        SET user_name = ?, normalized_user_name = ?, email = ?, normalized_email = ?,
            password_hash = ?, security_stamp = ?, updated_at = ?
        WHERE id = ?`),
		u.UserName, u.NormalizedUserName, u.Email, u.NormalizedEmail,
		u.PasswordHash, u.SecurityStamp, nowMillis(), u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return dom.ErrDuplicateUserName
		}
		return err
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return dom.ErrUserNotFound
	}
	return nil
}

// Delete removes the user together with its claims and role memberships.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if err := userClaimsTable.deleteAll(ctx, r.db, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM user_roles WHERE user_id = ?`), id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
		if err != nil {
			return err
		}
		rows, _ := res.RowsAffected()
		if rows == 0 {
			return dom.ErrUserNotFound
		}
		return nil
	})
}

func (r *UserRepository) AddClaims(ctx context.Context, userID string, claims []claim.Claim) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		return userClaimsTable.insert(ctx, r.db, tx, userID, claims)
	})
}

func (r *UserRepository) ListClaims(ctx context.Context, userID string) ([]claim.Claim, error) {
	return userClaimsTable.list(ctx, r.db, r.db, userID)
}
