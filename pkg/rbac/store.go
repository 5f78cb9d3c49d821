package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/storage/postgres"
)

const roleSelect = `
	SELECT r.id, r.name, r.description, r.created_at, r.updated_at,
		COALESCE(array_agg(rpm.product_module_id ORDER BY rpm.product_module_id)
			FILTER (WHERE rpm.product_module_id IS NOT NULL), '{}')
	FROM roles r
	LEFT JOIN role_product_modules rpm ON rpm.role_id = r.id
`

// Store handles role persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new role store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRole(row scanner) (*Role, error) {
	role := &Role{}
	err := row.Scan(
		&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt,
		pq.Array(&role.ProductModuleIDs),
	)
	return role, err
}

// ListRoles returns every role ordered by name
func (s *Store) ListRoles(ctx context.Context) ([]*Role, error) {
	return s.list(ctx, roleSelect+` GROUP BY r.id ORDER BY r.name, r.id`)
}

// ListRolesHeldByOrganization returns the distinct roles held by users of the organization
func (s *Store) ListRolesHeldByOrganization(ctx context.Context, orgID int64) ([]*Role, error) {
	query := roleSelect + `
		WHERE r.id IN (
			SELECT DISTINCT role_id FROM users
			WHERE organization_id = $1 AND role_id IS NOT NULL
		)
		GROUP BY r.id
		ORDER BY r.name, r.id`
	return s.list(ctx, query, orgID)
}

// RoleHeldOutsideOrganization reports whether a user of any other organization holds the role
func (s *Store) RoleHeldOutsideOrganization(ctx context.Context, roleID, orgID int64) (bool, error) {
	var held bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM users
			WHERE role_id = $1 AND organization_id IS DISTINCT FROM $2
		)`, roleID, orgID,
	).Scan(&held)
	if err != nil {
		return false, fmt.Errorf("failed to check role holders: %w", err)
	}
	return held, nil
}

func (s *Store) list(ctx context.Context, query string, args ...interface{}) ([]*Role, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole retrieves a role by ID
func (s *Store) GetRole(ctx context.Context, id int64) (*Role, error) {
	role, err := scanRole(s.db.QueryRowContext(ctx, roleSelect+` WHERE r.id = $1 GROUP BY r.id`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Role not found with id: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// RoleNameExists reports whether a role other than excludeID already uses the name
func (s *Store) RoleNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM roles WHERE name = $1 AND id <> $2)`, name, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check role name: %w", err)
	}
	return exists, nil
}

// CreateRole inserts the role and its product modules in one transaction
func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	return postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO roles (name, description)
			VALUES ($1, $2)
			RETURNING id, created_at, updated_at
		`, role.Name, role.Description).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
		if postgres.IsUniqueViolation(err) {
			return apperrors.Duplicate("Role with name '%s' already exists", role.Name)
		}
		if err != nil {
			return fmt.Errorf("failed to create role: %w", err)
		}
		return insertProductModules(ctx, tx, role.ID, role.ProductModuleIDs)
	})
}

// UpdateRole replaces the role's name, description and product modules
func (s *Store) UpdateRole(ctx context.Context, role *Role) error {
	return postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE roles
			SET name = $2, description = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING created_at, updated_at
		`, role.ID, role.Name, role.Description).Scan(&role.CreatedAt, &role.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("Role not found with id: %d", role.ID)
		}
		if postgres.IsUniqueViolation(err) {
			return apperrors.Duplicate("Role with name '%s' already exists", role.Name)
		}
		if err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM role_product_modules WHERE role_id = $1`, role.ID); err != nil {
			return fmt.Errorf("failed to clear role product modules: %w", err)
		}
		return insertProductModules(ctx, tx, role.ID, role.ProductModuleIDs)
	})
}

func insertProductModules(ctx context.Context, tx *sql.Tx, roleID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO role_product_modules (role_id, product_module_id)
		SELECT $1, pm_id FROM (SELECT DISTINCT unnest($2::bigint[]) AS pm_id) ids
	`, roleID, pq.Array(ids))
	if postgres.IsForeignKeyViolation(err) {
		return apperrors.NotFound("Product module not found")
	}
	if err != nil {
		return fmt.Errorf("failed to assign role product modules: %w", err)
	}
	return nil
}

// DeleteRole deletes a role. Users holding it are left without a role.
func (s *Store) DeleteRole(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("Role not found with id: %d", id)
	}
	return nil
}
