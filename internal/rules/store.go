// internal/rules/store.go
//
// Small query helpers for role-based access control.
//
// Context
// -------
// The access model lives entirely inside the tenant database:
//
//	role        (id PK, name, enabled)
//	role_acl    (role_id, component, action, permitted)
//	user_role   (user_id, role_id)
//
// Middleware needs fast answers to two questions:
//  1. Which role names does user X have?          → UserRoles()
//  2. Is any of them allowed component/action?    → RoleAllowed()
//
// A billing manager, for example, holds a role permitted for
// ("billing", "coupon.write").
package rules

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// UserRoles returns the enabled role names bound to userID.
func UserRoles(ctx context.Context, db *sqlx.DB, userID int64) ([]string, error) {
	const q = `SELECT r.name
                 FROM user_role ur
                 JOIN role r ON r.id = ur.role_id
                WHERE ur.user_id = ? AND r.enabled = TRUE`

	roles := make([]string, 0, 4)
	if err := db.SelectContext(ctx, &roles, q, userID); err != nil {
		return nil, err
	}
	return roles, nil
}

// RoleAllowed reports whether any of roles is permitted for component and
// action.  An empty roles slice returns false, nil.
func RoleAllowed(ctx context.Context, db *sqlx.DB, roles []string, component, action string) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}

	q, args, err := sqlx.In(`SELECT 1
            FROM role_acl ra
            JOIN role r ON r.id = ra.role_id
           WHERE r.name IN (?)
             AND ra.component = ?
             AND ra.action   = ?
             AND ra.permitted = TRUE
           LIMIT 1`, roles, component, action)
	if err != nil {
		return false, err
	}

	var hit int
	err = db.GetContext(ctx, &hit, db.Rebind(q), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
