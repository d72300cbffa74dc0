package sqldb

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/akurin/identity-server-demo/app/internal/domain/claim"
)

// claimTable describes one of the claim tables (user_claims, role_claims).
type claimTable struct {
	name     string
	ownerCol string
}

var (
	userClaimsTable = claimTable{name: "user_claims", ownerCol: "user_id"}
	roleClaimsTable = claimTable{name: "role_claims", ownerCol: "role_id"}
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (t claimTable) insert(ctx context.Context, db *DB, q queryer, ownerID string, claims []claim.Claim) error {
	var next int
	if err := q.QueryRowContext(ctx,
		db.Rebind(`SELECT COALESCE(MAX(ordinal), 0) FROM `+t.name+` WHERE `+t.ownerCol+` = ?`),
		ownerID,
	).Scan(&next); err != nil {
		return err
	}

	stmt := db.Rebind(`INSERT INTO ` + t.name + ` (id, ` + t.ownerCol + `, claim_type, claim_value, value_type, ordinal)
        VALUES (?, ?, ?, ?, ?, ?)`)
	for _, c := range claims {
		next++
		if _, err := q.ExecContext(ctx, stmt,
			uuid.NewString(), ownerID, c.Type, c.Value, string(c.Kind()), next,
		); err != nil {
			return err
		}
	}
	return nil
}

func (t claimTable) list(ctx context.Context, db *DB, q queryer, ownerID string) ([]claim.Claim, error) {
	rows, err := q.QueryContext(ctx,
		db.Rebind(`SELECT claim_type, claim_value, value_type FROM `+t.name+` WHERE `+t.ownerCol+` = ? ORDER BY ordinal`),
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []claim.Claim
	for rows.Next() {
		var c claim.Claim
		var valueType string
		if err := rows.Scan(&c.Type, &c.Value, &valueType); err != nil {
			return nil, err
		}
		c.ValueType = claim.ValueType(valueType)
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func (t claimTable) deleteAll(ctx context.Context, db *DB, q queryer, ownerID string) error {
	_, err := q.ExecContext(ctx, db.Rebind(`DELETE FROM `+t.name+` WHERE `+t.ownerCol+` = ?`), ownerID)
	return err
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
