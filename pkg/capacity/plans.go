package capacity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/storage/postgres"
)

const planColumns = `id, product_id, year, quarter, effort_unit, created_at, updated_at`

func scanPlan(row scanner) (*Plan, error) {
	p := &Plan{}
	err := row.Scan(&p.ID, &p.ProductID, &p.Year, &p.Quarter, &p.EffortUnit, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// FindPlan returns the quarter's plan with its efforts
func (s *PostgresService) FindPlan(ctx context.Context, productID int64, year, quarter int) (*Plan, error) {
	plan, err := scanPlan(s.db.QueryRowContext(ctx, `
		SELECT `+planColumns+` FROM capacity_plans
		WHERE product_id = $1 AND year = $2 AND quarter = $3
	`, productID, year, quarter))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Capacity plan not found for Q%d %d", quarter, year)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capacity plan: %w", err)
	}

	if plan.EpicEfforts, err = s.listEfforts(ctx, s.db, plan.ID); err != nil {
		return nil, err
	}
	return plan, nil
}

// GetOrSeedPlan returns the quarter's plan, creating it on first access. A new plan gets one
// zero-effort row per seeded epic and active team.
func (s *PostgresService) GetOrSeedPlan(ctx context.Context, productID int64, year, quarter int, seed SeedFunc) (*Plan, error) {
	var plan *Plan
	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		created, err := scanPlan(tx.QueryRowContext(ctx, `
			INSERT INTO capacity_plans (product_id, year, quarter)
			VALUES ($1, $2, $3)
			ON CONFLICT (product_id, year, quarter) DO NOTHING
			RETURNING `+planColumns,
			productID, year, quarter))
		if errors.Is(err, sql.ErrNoRows) {
			plan, err = scanPlan(tx.QueryRowContext(ctx, `
				SELECT `+planColumns+` FROM capacity_plans
				WHERE product_id = $1 AND year = $2 AND quarter = $3
			`, productID, year, quarter))
			if err != nil {
				return fmt.Errorf("failed to get capacity plan: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to create capacity plan: %w", err)
		}
		plan = created

		if seed == nil {
			return nil
		}
		epics, err := seed(ctx)
		if err != nil {
			return fmt.Errorf("failed to load seed epics: %w", err)
		}
		for _, epic := range epics {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO epic_efforts (capacity_plan_id, epic_id, epic_name, team_id, effort_days)
				SELECT $1, $2, $3, id, 0 FROM teams WHERE product_id = $4 AND is_active
				ON CONFLICT (capacity_plan_id, epic_id, team_id) DO NOTHING
			`, plan.ID, epic.EpicID, epic.EpicName, productID)
			if err != nil {
				return fmt.Errorf("failed to seed epic %s: %w", epic.EpicID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if plan.EpicEfforts, err = s.listEfforts(ctx, s.db, plan.ID); err != nil {
		return nil, err
	}
	return plan, nil
}

// SavePlan upserts the quarter's plan and the submitted efforts. A nil effortUnit keeps the
// current unit.
func (s *PostgresService) SavePlan(ctx context.Context, productID int64, year, quarter int, effortUnit *string, efforts []EpicEffort) (*Plan, error) {
	teamIDs := make([]int64, 0, len(efforts))
	for _, e := range efforts {
		if e.EpicID == "" {
			return nil, apperrors.Validation("every epic effort needs an epicId")
		}
		if e.EffortDays < 0 {
			return nil, apperrors.Validation("effortDays must not be negative")
		}
		teamIDs = append(teamIDs, e.TeamID)
	}

	var plan *Plan
	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		plan, err = scanPlan(tx.QueryRowContext(ctx, `
			INSERT INTO capacity_plans (product_id, year, quarter, effort_unit)
			VALUES ($1, $2, $3, COALESCE($4::varchar, 'days'))
			ON CONFLICT (product_id, year, quarter) DO UPDATE
			SET effort_unit = COALESCE($4::varchar, capacity_plans.effort_unit), updated_at = NOW()
			RETURNING `+planColumns,
			productID, year, quarter, effortUnit))
		if err != nil {
			return fmt.Errorf("failed to save capacity plan: %w", err)
		}

		if len(efforts) == 0 {
			return nil
		}
		if err := checkTeamsBelong(ctx, tx, productID, teamIDs); err != nil {
			return err
		}

		for _, e := range efforts {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO epic_efforts (capacity_plan_id, epic_id, epic_name, team_id, effort_days, notes)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (capacity_plan_id, epic_id, team_id) DO UPDATE
				SET effort_days = EXCLUDED.effort_days, notes = EXCLUDED.notes, updated_at = NOW()
			`, plan.ID, e.EpicID, e.EpicName, e.TeamID, e.EffortDays, e.Notes)
			if err != nil {
				return fmt.Errorf("failed to save effort for epic %s: %w", e.EpicID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if plan.EpicEfforts, err = s.listEfforts(ctx, s.db, plan.ID); err != nil {
		return nil, err
	}
	return plan, nil
}

func checkTeamsBelong(ctx context.Context, q postgres.Querier, productID int64, teamIDs []int64) error {
	rows, err := q.QueryContext(ctx,
		`SELECT id FROM teams WHERE product_id = $1 AND id = ANY($2)`, productID, pq.Array(teamIDs))
	if err != nil {
		return fmt.Errorf("failed to check teams: %w", err)
	}
	defer rows.Close()

	found := make(map[int64]bool, len(teamIDs))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan team id: %w", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range teamIDs {
		if !found[id] {
			return apperrors.Validation("Team %d does not belong to product %d", id, productID)
		}
	}
	return nil
}

func (s *PostgresService) listEfforts(ctx context.Context, q postgres.Querier, planID int64) ([]EpicEffort, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, epic_id, epic_name, team_id, effort_days, notes
		FROM epic_efforts
		WHERE capacity_plan_id = $1
		ORDER BY epic_name, team_id
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list epic efforts: %w", err)
	}
	defer rows.Close()

	efforts := []EpicEffort{}
	for rows.Next() {
		var e EpicEffort
		if err := rows.Scan(&e.ID, &e.EpicID, &e.EpicName, &e.TeamID, &e.EffortDays, &e.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan epic effort: %w", err)
		}
		efforts = append(efforts, e)
	}
	return efforts, rows.Err()
}
