package capacity

import (
	"context"
	"fmt"
)

// ListRatingConfigs returns the product's effort rating configs
func (s *PostgresService) ListRatingConfigs(ctx context.Context, productID int64) ([]RatingConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, unit_type, star1_max, star2_max, star3_max, star4_max, created_at, updated_at
		FROM effort_rating_configs
		WHERE product_id = $1
		ORDER BY id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rating configs: %w", err)
	}
	defer rows.Close()

	configs := []RatingConfig{}
	for rows.Next() {
		var c RatingConfig
		if err := rows.Scan(
			&c.ID, &c.ProductID, &c.UnitType, &c.Star1Max, &c.Star2Max, &c.Star3Max, &c.Star4Max,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rating config: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// UpsertRatingConfig creates or replaces the product's config for cfg.UnitType
func (s *PostgresService) UpsertRatingConfig(ctx context.Context, cfg *RatingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO effort_rating_configs (product_id, unit_type, star1_max, star2_max, star3_max, star4_max)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (product_id, unit_type) DO UPDATE
		SET star1_max = EXCLUDED.star1_max,
			star2_max = EXCLUDED.star2_max,
			star3_max = EXCLUDED.star3_max,
			star4_max = EXCLUDED.star4_max,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, cfg.ProductID, cfg.UnitType, cfg.Star1Max, cfg.Star2Max, cfg.Star3Max, cfg.Star4Max).
		Scan(&cfg.ID, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save rating config: %w", err)
	}
	return nil
}
