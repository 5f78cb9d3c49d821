package hypothesis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
)

// Hypothesis is the product hypothesis document
type Hypothesis struct {
	ID                  int64     `json:"id"`
	ProductID           int64     `json:"productId"`
	HypothesisStatement string    `json:"hypothesisStatement"`
	SuccessMetrics      string    `json:"successMetrics"`
	Assumptions         string    `json:"assumptions"`
	Initiatives         string    `json:"initiatives"`
	Themes              string    `json:"themes"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// PostgresService stores hypotheses in PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// GetHypothesis returns the product's hypothesis
func (s *PostgresService) GetHypothesis(ctx context.Context, productID int64) (*Hypothesis, error) {
	h := &Hypothesis{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, hypothesis_statement, success_metrics, assumptions, initiatives, themes,
			created_at, updated_at
		FROM product_hypotheses
		WHERE product_id = $1
	`, productID).Scan(
		&h.ID, &h.ProductID, &h.HypothesisStatement, &h.SuccessMetrics, &h.Assumptions,
		&h.Initiatives, &h.Themes, &h.CreatedAt, &h.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Hypothesis not found for product: %d", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hypothesis: %w", err)
	}
	return h, nil
}

// SaveHypothesis creates or replaces the product's hypothesis
func (s *PostgresService) SaveHypothesis(ctx context.Context, h *Hypothesis) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO product_hypotheses (product_id, hypothesis_statement, success_metrics, assumptions,
			initiatives, themes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (product_id) DO UPDATE
		SET hypothesis_statement = EXCLUDED.hypothesis_statement,
			success_metrics = EXCLUDED.success_metrics,
			assumptions = EXCLUDED.assumptions,
			initiatives = EXCLUDED.initiatives,
			themes = EXCLUDED.themes,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, h.ProductID, h.HypothesisStatement, h.SuccessMetrics, h.Assumptions, h.Initiatives, h.Themes).
		Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save hypothesis: %w", err)
	}
	return nil
}
