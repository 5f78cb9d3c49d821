package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/storage/postgres"
)

const userColumns = `id, email, password_hash, organization_id, is_superadmin, is_global_superadmin,
	role_id, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.OrganizationID, &u.IsSuperadmin,
		&u.IsGlobalSuperadmin, &u.RoleID, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// PostgresService implements the Service interface using PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// CreateUser inserts a user. Emails are unique regardless of case.
func (s *PostgresService) CreateUser(ctx context.Context, user *User) error {
	user.Email = normalizeEmail(user.Email)

	query := `
		INSERT INTO users (email, password_hash, organization_id, is_superadmin, is_global_superadmin, role_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.OrganizationID,
		user.IsSuperadmin, user.IsGlobalSuperadmin, user.RoleID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return apperrors.Duplicate("User with email '%s' already exists", user.Email)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (s *PostgresService) GetUser(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("User not found with id: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email, ignoring case
func (s *PostgresService) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = $1`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, normalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("User not found with email: %s", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// EmailTaken reports whether another user already uses the email
func (s *PostgresService) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = $1 AND id <> $2)`,
		normalizeEmail(email), excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// ListByOrganization lists the users of an organization
func (s *PostgresService) ListByOrganization(ctx context.Context, orgID int64) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE organization_id = $1 ORDER BY LOWER(email), id`
	return s.list(ctx, query, orgID)
}

// ListSuperadmins lists the organization's superadmins
func (s *PostgresService) ListSuperadmins(ctx context.Context, orgID int64) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE organization_id = $1 AND is_superadmin = TRUE
		ORDER BY LOWER(email), id`
	return s.list(ctx, query, orgID)
}

func (s *PostgresService) list(ctx context.Context, query string, args ...interface{}) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var list []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// UpdateUser persists the mutable user fields
func (s *PostgresService) UpdateUser(ctx context.Context, user *User) error {
	user.Email = normalizeEmail(user.Email)

	query := `
		UPDATE users
		SET email = $2, password_hash = $3, role_id = $4, is_superadmin = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.RoleID, user.IsSuperadmin,
	).Scan(&user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("User not found with id: %d", user.ID)
	}
	if postgres.IsUniqueViolation(err) {
		return apperrors.Duplicate("Email already exists")
	}
	if postgres.IsForeignKeyViolation(err) {
		return apperrors.NotFound("Role not found with id: %d", derefOrZero(user.RoleID))
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// DeleteUser deletes a user
func (s *PostgresService) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("User not found with id: %d", id)
	}
	return nil
}

// CountUsers returns the number of users
func (s *PostgresService) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func derefOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
