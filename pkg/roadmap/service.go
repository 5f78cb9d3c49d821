package roadmap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/capacity"
	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/platinummonkey/prodhub/pkg/storage/postgres"
)

const itemColumns = `ri.epic_id, ri.epic_name, ri.epic_description, ri.priority, ri.status,
	ri.estimated_effort, ri.assigned_team, ri.reach, ri.impact, ri.confidence, ri.rice_score,
	ri.effort_rating, ri.start_date, ri.end_date, ri.initiative_name, ri.theme_name, ri.theme_color`

const roadmapColumns = `id, product_id, year, quarter, created_at, updated_at`

// PostgresService stores roadmaps in PostgreSQL
type PostgresService struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewPostgresService creates a new PostgresService. metrics may be nil.
func NewPostgresService(db *sql.DB, metrics *observability.Metrics) *PostgresService {
	return &PostgresService{db: db, metrics: metrics}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRoadmap(row scanner) (*Roadmap, error) {
	rm := &Roadmap{}
	err := row.Scan(&rm.ID, &rm.ProductID, &rm.Year, &rm.Quarter, &rm.CreatedAt, &rm.UpdatedAt)
	return rm, err
}

func scanItem(row scanner, prefix ...interface{}) (Item, error) {
	var item Item
	var start, end *time.Time
	dest := append(prefix,
		&item.EpicID, &item.EpicName, &item.EpicDescription, &item.Priority, &item.Status,
		&item.EstimatedEffort, &item.AssignedTeam, &item.Reach, &item.Impact, &item.Confidence,
		&item.RiceScore, &item.EffortRating, &start, &end,
		&item.InitiativeName, &item.ThemeName, &item.ThemeColor,
	)
	if err := row.Scan(dest...); err != nil {
		return item, err
	}
	item.StartDate = formatDate(start)
	item.EndDate = formatDate(end)
	return item, nil
}

// ListRoadmaps returns every roadmap of the product with its items
func (s *PostgresService) ListRoadmaps(ctx context.Context, productID int64) ([]*Roadmap, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+roadmapColumns+` FROM quarterly_roadmaps
		WHERE product_id = $1
		ORDER BY year, quarter
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roadmaps: %w", err)
	}

	roadmaps := []*Roadmap{}
	byID := make(map[int64]*Roadmap)
	for rows.Next() {
		rm, err := scanRoadmap(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan roadmap: %w", err)
		}
		rm.Items = []Item{}
		roadmaps = append(roadmaps, rm)
		byID[rm.ID] = rm
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(roadmaps) == 0 {
		return roadmaps, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT ri.roadmap_id, `+itemColumns+` FROM roadmap_items ri
		WHERE ri.product_id = $1
		ORDER BY ri.roadmap_id, ri.position
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roadmap items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var roadmapID int64
		item, err := scanItem(itemRows, &roadmapID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roadmap item: %w", err)
		}
		if rm, ok := byID[roadmapID]; ok {
			rm.Items = append(rm.Items, item)
		}
	}
	return roadmaps, itemRows.Err()
}

// GetRoadmap returns the quarter's roadmap with its items
func (s *PostgresService) GetRoadmap(ctx context.Context, productID int64, year, quarter int) (*Roadmap, error) {
	rm, err := scanRoadmap(s.db.QueryRowContext(ctx, `
		SELECT `+roadmapColumns+` FROM quarterly_roadmaps
		WHERE product_id = $1 AND year = $2 AND quarter = $3
	`, productID, year, quarter))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Roadmap not found for Q%d %d", quarter, year)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get roadmap: %w", err)
	}

	if rm.Items, err = s.listItems(ctx, rm.ID); err != nil {
		return nil, err
	}
	return rm, nil
}

func (s *PostgresService) listItems(ctx context.Context, roadmapID int64) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM roadmap_items ri
		WHERE ri.roadmap_id = $1
		ORDER BY ri.position
	`, roadmapID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roadmap items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roadmap item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveRoadmap creates or replaces the quarter's roadmap. The save is rejected with a Conflict
// when an incoming epic is scheduled in another quarter of the product.
func (s *PostgresService) SaveRoadmap(ctx context.Context, productID int64, year, quarter int, items []Item) (*Roadmap, error) {
	if err := ValidatePeriod(year, quarter); err != nil {
		return nil, err
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}

	rm := &Roadmap{ProductID: productID, Year: year, Quarter: quarter, Items: items}
	if rm.Items == nil {
		rm.Items = []Item{}
	}

	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if len(items) > 0 {
			scheduled, err := scheduledElsewhere(ctx, tx, productID, year, quarter, items)
			if err != nil {
				return err
			}
			if conflicts := FindConflicts(items, scheduled); len(conflicts) > 0 {
				return ConflictError(conflicts)
			}
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO quarterly_roadmaps (product_id, year, quarter)
			VALUES ($1, $2, $3)
			ON CONFLICT (product_id, year, quarter) DO UPDATE SET updated_at = NOW()
			RETURNING id, created_at, updated_at
		`, productID, year, quarter).Scan(&rm.ID, &rm.CreatedAt, &rm.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to save roadmap: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM roadmap_items WHERE roadmap_id = $1`, rm.ID); err != nil {
			return fmt.Errorf("failed to clear roadmap items: %w", err)
		}

		for i, item := range items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO roadmap_items (roadmap_id, product_id, epic_id, epic_name, epic_description,
					priority, status, estimated_effort, assigned_team, reach, impact, confidence, rice_score,
					effort_rating, start_date, end_date, initiative_name, theme_name, theme_color, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
			`, rm.ID, productID, item.EpicID, item.EpicName, item.EpicDescription,
				item.Priority, item.Status, item.EstimatedEffort, item.AssignedTeam,
				item.Reach, item.Impact, item.Confidence, item.RiceScore, item.EffortRating,
				dateArg(item.StartDate), dateArg(item.EndDate),
				item.InitiativeName, item.ThemeName, item.ThemeColor, i)
			if postgres.IsUniqueViolation(err) {
				return apperrors.Conflict([]string{item.EpicName},
					"The following epics are already assigned to other quarters: %s", item.EpicName)
			}
			if err != nil {
				return fmt.Errorf("failed to insert roadmap item %s: %w", item.EpicID, err)
			}
		}
		return nil
	})
	s.recordSave(err)
	if err != nil {
		return nil, err
	}
	return rm, nil
}

func scheduledElsewhere(ctx context.Context, q postgres.Querier, productID int64, year, quarter int, items []Item) ([]Placement, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.EpicID
	}

	rows, err := q.QueryContext(ctx, `
		SELECT ri.epic_id, ri.epic_name, qr.year, qr.quarter
		FROM roadmap_items ri
		JOIN quarterly_roadmaps qr ON qr.id = ri.roadmap_id
		WHERE qr.product_id = $1
			AND NOT (qr.year = $2 AND qr.quarter = $3)
			AND ri.epic_id = ANY($4)
		ORDER BY qr.year, qr.quarter, ri.position
	`, productID, year, quarter, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to check epic conflicts: %w", err)
	}
	defer rows.Close()

	var placements []Placement
	for rows.Next() {
		var p Placement
		if err := rows.Scan(&p.EpicID, &p.EpicName, &p.Year, &p.Quarter); err != nil {
			return nil, fmt.Errorf("failed to scan placement: %w", err)
		}
		placements = append(placements, p)
	}
	return placements, rows.Err()
}

func (s *PostgresService) recordSave(err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	switch {
	case err == nil:
	case apperrors.KindOf(err) == apperrors.KindConflict:
		outcome = "conflict"
		s.metrics.RoadmapConflictsTotal.Inc()
	case apperrors.KindOf(err) == apperrors.KindValidation:
		outcome = "invalid"
	default:
		outcome = "error"
	}
	s.metrics.RoadmapSavesTotal.WithLabelValues(outcome).Inc()
}

func dateArg(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// DeleteRoadmap deletes the quarter's roadmap and its items
func (s *PostgresService) DeleteRoadmap(ctx context.Context, productID int64, year, quarter int) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM quarterly_roadmaps WHERE product_id = $1 AND year = $2 AND quarter = $3
	`, productID, year, quarter)
	if err != nil {
		return fmt.Errorf("failed to delete roadmap: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("Roadmap not found for Q%d %d", quarter, year)
	}
	return nil
}

// ListYears returns the years that have at least one roadmap
func (s *PostgresService) ListYears(ctx context.Context, productID int64) ([]int, error) {
	return s.listInts(ctx, `SELECT DISTINCT year FROM quarterly_roadmaps WHERE product_id = $1 ORDER BY year`, productID)
}

// ListQuarters returns the quarters of year that have a roadmap
func (s *PostgresService) ListQuarters(ctx context.Context, productID int64, year int) ([]int, error) {
	return s.listInts(ctx, `
		SELECT DISTINCT quarter FROM quarterly_roadmaps
		WHERE product_id = $1 AND year = $2
		ORDER BY quarter
	`, productID, year)
}

func (s *PostgresService) listInts(ctx context.Context, query string, args ...interface{}) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list roadmap periods: %w", err)
	}
	defer rows.Close()

	values := []int{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan roadmap period: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// AssignedEpicIDs returns the epic ids scheduled in any roadmap of the product. When exclude is
// set, epics of that quarter are left out.
func (s *PostgresService) AssignedEpicIDs(ctx context.Context, productID int64, exclude *Period) ([]string, error) {
	query := `
		SELECT DISTINCT ri.epic_id
		FROM roadmap_items ri
		JOIN quarterly_roadmaps qr ON qr.id = ri.roadmap_id
		WHERE qr.product_id = $1`
	args := []interface{}{productID}
	if exclude != nil {
		query += ` AND NOT (qr.year = $2 AND qr.quarter = $3)`
		args = append(args, exclude.Year, exclude.Quarter)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned epics: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan epic id: %w", err)
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, rows.Err()
}

// Period is a (year, quarter) pair
type Period struct {
	Year    int
	Quarter int
}

// UpdateEffortRating sets the stored rating of one epic in the quarter's roadmap
func (s *PostgresService) UpdateEffortRating(ctx context.Context, productID int64, year, quarter int, epicID string, rating *int) error {
	if err := ValidateRating(rating); err != nil {
		return err
	}

	var roadmapID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM quarterly_roadmaps WHERE product_id = $1 AND year = $2 AND quarter = $3
	`, productID, year, quarter).Scan(&roadmapID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("Roadmap not found for Q%d %d", quarter, year)
	}
	if err != nil {
		return fmt.Errorf("failed to get roadmap: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE roadmap_items SET effort_rating = $3 WHERE roadmap_id = $1 AND epic_id = $2
	`, roadmapID, epicID, rating)
	if err != nil {
		return fmt.Errorf("failed to update effort rating: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("Epic %s not found in roadmap for Q%d %d", epicID, quarter, year)
	}
	return nil
}

// RoadmapEpics returns the epics of the quarter's roadmap, or none when there is no roadmap
func (s *PostgresService) RoadmapEpics(ctx context.Context, productID int64, year, quarter int) ([]capacity.EpicRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ri.epic_id, ri.epic_name
		FROM roadmap_items ri
		JOIN quarterly_roadmaps qr ON qr.id = ri.roadmap_id
		WHERE qr.product_id = $1 AND qr.year = $2 AND qr.quarter = $3
		ORDER BY ri.position
	`, productID, year, quarter)
	if err != nil {
		return nil, fmt.Errorf("failed to list roadmap epics: %w", err)
	}
	defer rows.Close()

	var epics []capacity.EpicRef
	for rows.Next() {
		var e capacity.EpicRef
		if err := rows.Scan(&e.EpicID, &e.EpicName); err != nil {
			return nil, fmt.Errorf("failed to scan roadmap epic: %w", err)
		}
		epics = append(epics, e)
	}
	return epics, rows.Err()
}
