package capacity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/storage/postgres"
)

const teamColumns = `id, product_id, name, description, is_active, created_at, updated_at`

func scanTeam(row scanner) (*Team, error) {
	t := &Team{}
	err := row.Scan(&t.ID, &t.ProductID, &t.Name, &t.Description, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func errTeamNameTaken() error {
	return apperrors.Duplicate("Team name already exists for this product")
}

// ListTeams returns the product's active teams
func (s *PostgresService) ListTeams(ctx context.Context, productID int64) ([]*Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+teamColumns+` FROM teams
		WHERE product_id = $1 AND is_active
		ORDER BY LOWER(name), id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := []*Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// GetTeam returns a team of the product, active or not
func (s *PostgresService) GetTeam(ctx context.Context, productID, teamID int64) (*Team, error) {
	t, err := scanTeam(s.db.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = $1 AND product_id = $2`, teamID, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Team not found with id: %d", teamID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return t, nil
}

func (s *PostgresService) teamNameTaken(ctx context.Context, productID int64, name string, excludeID int64) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM teams
			WHERE product_id = $1 AND LOWER(name) = $2 AND is_active AND id <> $3
		)
	`, productID, strings.ToLower(name), excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check team name: %w", err)
	}
	return taken, nil
}

// CreateTeam adds a team to the product
func (s *PostgresService) CreateTeam(ctx context.Context, team *Team) error {
	taken, err := s.teamNameTaken(ctx, team.ProductID, team.Name, 0)
	if err != nil {
		return err
	}
	if taken {
		return errTeamNameTaken()
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO teams (product_id, name, description, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, team.ProductID, team.Name, team.Description, team.IsActive).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return errTeamNameTaken()
	}
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// UpdateTeam updates a team of the product
func (s *PostgresService) UpdateTeam(ctx context.Context, team *Team) error {
	taken, err := s.teamNameTaken(ctx, team.ProductID, team.Name, team.ID)
	if err != nil {
		return err
	}
	if taken {
		return errTeamNameTaken()
	}

	err = s.db.QueryRowContext(ctx, `
		UPDATE teams
		SET name = $3, description = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1 AND product_id = $2
		RETURNING created_at, updated_at
	`, team.ID, team.ProductID, team.Name, team.Description, team.IsActive).Scan(&team.CreatedAt, &team.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("Team not found with id: %d", team.ID)
	}
	if postgres.IsUniqueViolation(err) {
		return errTeamNameTaken()
	}
	if err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}
	return nil
}

// DeactivateTeam soft-deletes a team
func (s *PostgresService) DeactivateTeam(ctx context.Context, productID, teamID int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE teams SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND product_id = $2
	`, teamID, productID)
	if err != nil {
		return fmt.Errorf("failed to deactivate team: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("Team not found with id: %d", teamID)
	}
	return nil
}

// CountActiveTeams returns the number of active teams across all products
func (s *PostgresService) CountActiveTeams(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams WHERE is_active`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}
	return count, nil
}
