//go:build integration

package postgres

import (
	"context"
	"io"
	"testing"

	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Integration(t *testing.T) {
	db, cleanup := SetupPostgresContainer(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("re-running is a no-op", func(t *testing.T) {
		logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
		require.NoError(t, RunMigrations(ctx, db, logger))

		pending, err := PendingMigrations(ctx, db)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("epic may only be scheduled once per product", func(t *testing.T) {
		var productID, q1, q2 int64
		require.NoError(t, db.QueryRowContext(ctx,
			`INSERT INTO products (name) VALUES ('Checkout') RETURNING id`).Scan(&productID))
		require.NoError(t, db.QueryRowContext(ctx,
			`INSERT INTO quarterly_roadmaps (product_id, year, quarter) VALUES ($1, 2025, 1) RETURNING id`,
			productID).Scan(&q1))
		require.NoError(t, db.QueryRowContext(ctx,
			`INSERT INTO quarterly_roadmaps (product_id, year, quarter) VALUES ($1, 2025, 2) RETURNING id`,
			productID).Scan(&q2))

		_, err := db.ExecContext(ctx,
			`INSERT INTO roadmap_items (roadmap_id, product_id, epic_id) VALUES ($1, $2, 'E-1')`, q1, productID)
		require.NoError(t, err)

		_, err = db.ExecContext(ctx,
			`INSERT INTO roadmap_items (roadmap_id, product_id, epic_id) VALUES ($1, $2, 'E-1')`, q2, productID)
		require.Error(t, err)
		assert.True(t, IsUniqueViolation(err))
		assert.Equal(t, "roadmap_items_product_epic_key", ConstraintName(err))
	})

	t.Run("deleting an organization removes users and orphans products", func(t *testing.T) {
		var orgID, userID, productID int64
		require.NoError(t, db.QueryRowContext(ctx,
			`INSERT INTO organizations (name) VALUES ('Acme') RETURNING id`).Scan(&orgID))
		require.NoError(t, db.QueryRowContext(ctx,
			`INSERT INTO users (email, password_hash, organization_id) VALUES ('u1@acme.io', 'x', $1) RETURNING id`,
			orgID).Scan(&userID))
		require.NoError(t, db.QueryRowContext(ctx,
			`INSERT INTO products (name, user_id, organization_id) VALUES ('P1', $1, $2) RETURNING id`,
			userID, orgID).Scan(&productID))

		_, err := db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, orgID)
		require.NoError(t, err)

		var users int
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE id = $1`, userID).Scan(&users))
		assert.Zero(t, users)

		var owner, org *int64
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT user_id, organization_id FROM products WHERE id = $1`, productID).Scan(&owner, &org))
		assert.Nil(t, owner)
		assert.Nil(t, org)
	})
}
