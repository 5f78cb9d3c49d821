package backlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/storage/postgres"
)

const epicColumns = `e.epic_id, e.name, e.description, e.priority, e.status,
	e.initiative_name, e.theme_name, e.theme_color`

// PostgresService stores backlogs in PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// GetBacklog returns the product's backlog
func (s *PostgresService) GetBacklog(ctx context.Context, productID int64) (*Backlog, error) {
	b := &Backlog{ProductID: productID}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at FROM product_backlogs WHERE product_id = $1
	`, productID).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Backlog not found for product: %d", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backlog: %w", err)
	}

	epics, err := s.listEpics(ctx, `SELECT `+epicColumns+` FROM backlog_epics e
		WHERE e.backlog_id = $1 ORDER BY e.position`, b.ID)
	if err != nil {
		return nil, err
	}
	b.Epics = epics
	return b, nil
}

// EpicsByID indexes the product's backlog epics by epic id. A product without a backlog
// yields an empty map.
func (s *PostgresService) EpicsByID(ctx context.Context, productID int64) (map[string]Epic, error) {
	epics, err := s.listEpics(ctx, `SELECT `+epicColumns+` FROM backlog_epics e
		JOIN product_backlogs b ON b.id = e.backlog_id
		WHERE b.product_id = $1`, productID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Epic, len(epics))
	for _, e := range epics {
		byID[e.EpicID] = e
	}
	return byID, nil
}

func (s *PostgresService) listEpics(ctx context.Context, query string, args ...interface{}) ([]Epic, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list epics: %w", err)
	}
	defer rows.Close()

	epics := []Epic{}
	for rows.Next() {
		var e Epic
		if err := rows.Scan(
			&e.EpicID, &e.Name, &e.Description, &e.Priority, &e.Status,
			&e.InitiativeName, &e.ThemeName, &e.ThemeColor,
		); err != nil {
			return nil, fmt.Errorf("failed to scan epic: %w", err)
		}
		epics = append(epics, e)
	}
	return epics, rows.Err()
}

// SaveBacklog creates or replaces the product's backlog
func (s *PostgresService) SaveBacklog(ctx context.Context, productID int64, epics []Epic) (*Backlog, error) {
	seen := make(map[string]bool, len(epics))
	for _, e := range epics {
		if e.EpicID == "" {
			return nil, apperrors.Validation("every epic needs an id")
		}
		if seen[e.EpicID] {
			return nil, apperrors.Validation("epic %s is listed more than once", e.EpicID)
		}
		seen[e.EpicID] = true
	}

	b := &Backlog{ProductID: productID, Epics: epics}
	if b.Epics == nil {
		b.Epics = []Epic{}
	}

	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO product_backlogs (product_id)
			VALUES ($1)
			ON CONFLICT (product_id) DO UPDATE SET updated_at = NOW()
			RETURNING id, created_at, updated_at
		`, productID).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to save backlog: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM backlog_epics WHERE backlog_id = $1`, b.ID); err != nil {
			return fmt.Errorf("failed to clear backlog epics: %w", err)
		}

		for i, e := range epics {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO backlog_epics (backlog_id, epic_id, name, description, priority, status,
					initiative_name, theme_name, theme_color, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, b.ID, e.EpicID, e.Name, e.Description, e.Priority, e.Status,
				e.InitiativeName, e.ThemeName, e.ThemeColor, i)
			if err != nil {
				return fmt.Errorf("failed to insert epic %s: %w", e.EpicID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}
