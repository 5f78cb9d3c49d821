package capacity

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertRatingConfig(t *testing.T) {
	t.Run("invalid thresholds never reach the database", func(t *testing.T) {
		svc, mock := newMockService(t)

		err := svc.UpsertRatingConfig(context.Background(), &RatingConfig{ProductID: 3, UnitType: "days", Star1Max: 9, Star2Max: 3})
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("upserted", func(t *testing.T) {
		svc, mock := newMockService(t)
		now := time.Now()

		mock.ExpectQuery("INSERT INTO effort_rating_configs(.+)ON CONFLICT \\(product_id, unit_type\\) DO UPDATE").
			WithArgs(int64(3), "days", 5, 10, 20, 40).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(2), now, now))

		cfg := &RatingConfig{ProductID: 3, UnitType: "days", Star1Max: 5, Star2Max: 10, Star3Max: 20, Star4Max: 40}
		require.NoError(t, svc.UpsertRatingConfig(context.Background(), cfg))
		assert.Equal(t, int64(2), cfg.ID)
	})
}

func TestListRatingConfigs(t *testing.T) {
	svc, mock := newMockService(t)
	now := time.Now()

	mock.ExpectQuery("FROM effort_rating_configs").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "product_id", "unit_type", "star1_max", "star2_max", "star3_max", "star4_max", "created_at", "updated_at",
		}).AddRow(int64(2), int64(3), "days", 5, 10, 20, 40, now, now))

	configs, err := svc.ListRatingConfigs(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, 40, configs[0].Star4Max)
}
