package roadmap

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	roadmapRowColumns = []string{"id", "product_id", "year", "quarter", "created_at", "updated_at"}
	itemRowColumns    = []string{
		"epic_id", "epic_name", "epic_description", "priority", "status", "estimated_effort",
		"assigned_team", "reach", "impact", "confidence", "rice_score", "effort_rating",
		"start_date", "end_date", "initiative_name", "theme_name", "theme_color",
	}
)

func newMockService(t *testing.T) (*PostgresService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresService(db, nil), mock
}

func intPtr(v int) *int { return &v }

func TestGetRoadmap(t *testing.T) {
	t.Run("loads items in order", func(t *testing.T) {
		svc, mock := newMockService(t)
		now := time.Now()
		start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery("SELECT (.+) FROM quarterly_roadmaps").
			WithArgs(int64(5), 2025, 2).
			WillReturnRows(sqlmock.NewRows(roadmapRowColumns).AddRow(int64(21), int64(5), 2025, 2, now, now))
		mock.ExpectQuery("SELECT (.+) FROM roadmap_items ri WHERE ri.roadmap_id = \\$1").
			WithArgs(int64(21)).
			WillReturnRows(sqlmock.NewRows(itemRowColumns).
				AddRow("e1", "Checkout", "", "high", "planned", "", "", nil, nil, nil, nil, int64(3), start, nil, "Growth", nil, nil))

		rm, err := svc.GetRoadmap(context.Background(), 5, 2025, 2)
		require.NoError(t, err)
		require.Len(t, rm.Items, 1)
		item := rm.Items[0]
		assert.Equal(t, "2025-04-01", item.StartDate)
		assert.Empty(t, item.EndDate)
		require.NotNil(t, item.EffortRating)
		assert.Equal(t, 3, *item.EffortRating)
		require.NotNil(t, item.InitiativeName)
		assert.Equal(t, "Growth", *item.InitiativeName)
		assert.Nil(t, item.ThemeName)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		svc, mock := newMockService(t)

		mock.ExpectQuery("SELECT (.+) FROM quarterly_roadmaps").
			WithArgs(int64(5), 2025, 2).
			WillReturnRows(sqlmock.NewRows(roadmapRowColumns))

		_, err := svc.GetRoadmap(context.Background(), 5, 2025, 2)
		assert.True(t, apperrors.IsNotFound(err))
		assert.Contains(t, err.Error(), "Q2 2025")
	})
}

func TestListRoadmaps(t *testing.T) {
	svc, mock := newMockService(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM quarterly_roadmaps WHERE product_id = \\$1").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(roadmapRowColumns).
			AddRow(int64(21), int64(5), 2025, 1, now, now).
			AddRow(int64(22), int64(5), 2025, 2, now, now))
	mock.ExpectQuery("SELECT ri.roadmap_id, (.+) FROM roadmap_items ri WHERE ri.product_id = \\$1").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(append([]string{"roadmap_id"}, itemRowColumns...)).
			AddRow(int64(22), "e1", "Checkout", "", "", "", "", "", nil, nil, nil, nil, nil, nil, nil, nil, nil, nil).
			AddRow(int64(22), "e2", "Search", "", "", "", "", "", nil, nil, nil, nil, nil, nil, nil, nil, nil, nil))

	list, err := svc.ListRoadmaps(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Empty(t, list[0].Items)
	assert.NotNil(t, list[0].Items)
	assert.Len(t, list[1].Items, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRoadmap(t *testing.T) {
	items := []Item{{EpicID: "e1", EpicName: "Checkout", Priority: "high", EffortRating: intPtr(3), StartDate: "2025-04-01"}}

	t.Run("replaces items", func(t *testing.T) {
		svc, mock := newMockService(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM roadmap_items ri JOIN quarterly_roadmaps").
			WithArgs(int64(5), 2025, 2, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"epic_id", "epic_name", "year", "quarter"}))
		mock.ExpectQuery("INSERT INTO quarterly_roadmaps").
			WithArgs(int64(5), 2025, 2).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(21), now, now))
		mock.ExpectExec("DELETE FROM roadmap_items WHERE roadmap_id = \\$1").
			WithArgs(int64(21)).
			WillReturnResult(sqlmock.NewResult(0, 4))
		mock.ExpectExec("INSERT INTO roadmap_items").
			WithArgs(int64(21), int64(5), "e1", "Checkout", "", "high", "", "", "",
				nil, nil, nil, nil, int64(3), "2025-04-01", nil, nil, nil, nil, int64(0)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		rm, err := svc.SaveRoadmap(context.Background(), 5, 2025, 2, items)
		require.NoError(t, err)
		assert.Equal(t, int64(21), rm.ID)
		assert.Len(t, rm.Items, 1)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("epic scheduled elsewhere rolls back without writes", func(t *testing.T) {
		svc, mock := newMockService(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM roadmap_items ri JOIN quarterly_roadmaps").
			WithArgs(int64(5), 2025, 2, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"epic_id", "epic_name", "year", "quarter"}).
				AddRow("e1", "Checkout", 2025, 1))
		mock.ExpectRollback()

		_, err := svc.SaveRoadmap(context.Background(), 5, 2025, 2, items)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.KindConflict, appErr.Kind)
		assert.Equal(t, "The following epics are already assigned to other quarters: Checkout (Q1 2025)", appErr.Message)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent insert maps to conflict", func(t *testing.T) {
		svc, mock := newMockService(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM roadmap_items ri JOIN quarterly_roadmaps").
			WillReturnRows(sqlmock.NewRows([]string{"epic_id", "epic_name", "year", "quarter"}))
		mock.ExpectQuery("INSERT INTO quarterly_roadmaps").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(21), now, now))
		mock.ExpectExec("DELETE FROM roadmap_items").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO roadmap_items").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "roadmap_items_product_epic_key"})
		mock.ExpectRollback()

		_, err := svc.SaveRoadmap(context.Background(), 5, 2025, 2, items)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty roadmap skips conflict scan", func(t *testing.T) {
		svc, mock := newMockService(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO quarterly_roadmaps").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(21), now, now))
		mock.ExpectExec("DELETE FROM roadmap_items").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		rm, err := svc.SaveRoadmap(context.Background(), 5, 2025, 2, nil)
		require.NoError(t, err)
		assert.NotNil(t, rm.Items)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid input never opens a transaction", func(t *testing.T) {
		svc, mock := newMockService(t)

		_, err := svc.SaveRoadmap(context.Background(), 5, 2025, 5, items)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

		_, err = svc.SaveRoadmap(context.Background(), 5, 2025, 2, []Item{{EpicID: "e1"}, {EpicID: "e1"}})
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteRoadmap(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectExec("DELETE FROM quarterly_roadmaps").
		WithArgs(int64(5), 2024, 4).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.DeleteRoadmap(context.Background(), 5, 2024, 4)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListYearsAndQuarters(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT DISTINCT year FROM quarterly_roadmaps").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"year"}).AddRow(2024).AddRow(2025))
	mock.ExpectQuery("SELECT DISTINCT quarter FROM quarterly_roadmaps").
		WithArgs(int64(5), 2025).
		WillReturnRows(sqlmock.NewRows([]string{"quarter"}).AddRow(1).AddRow(3))

	years, err := svc.ListYears(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2025}, years)

	quarters, err := svc.ListQuarters(context.Background(), 5, 2025)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, quarters)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignedEpicIDs(t *testing.T) {
	t.Run("all quarters", func(t *testing.T) {
		svc, mock := newMockService(t)

		mock.ExpectQuery("SELECT DISTINCT ri.epic_id").
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"epic_id"}).AddRow("e2").AddRow("e1"))

		ids, err := svc.AssignedEpicIDs(context.Background(), 5, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"e1", "e2"}, ids)
	})

	t.Run("excluding a quarter", func(t *testing.T) {
		svc, mock := newMockService(t)

		mock.ExpectQuery("SELECT DISTINCT ri.epic_id (.+) AND NOT \\(qr.year = \\$2 AND qr.quarter = \\$3\\)").
			WithArgs(int64(5), 2025, 2).
			WillReturnRows(sqlmock.NewRows([]string{"epic_id"}))

		ids, err := svc.AssignedEpicIDs(context.Background(), 5, &Period{Year: 2025, Quarter: 2})
		require.NoError(t, err)
		assert.Empty(t, ids)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateEffortRating(t *testing.T) {
	t.Run("updates the item", func(t *testing.T) {
		svc, mock := newMockService(t)

		mock.ExpectQuery("SELECT id FROM quarterly_roadmaps").
			WithArgs(int64(5), 2025, 2).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(21)))
		mock.ExpectExec("UPDATE roadmap_items SET effort_rating").
			WithArgs(int64(21), "e1", int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, svc.UpdateEffortRating(context.Background(), 5, 2025, 2, "e1", intPtr(4)))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing roadmap", func(t *testing.T) {
		svc, mock := newMockService(t)

		mock.ExpectQuery("SELECT id FROM quarterly_roadmaps").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		err := svc.UpdateEffortRating(context.Background(), 5, 2025, 2, "e1", intPtr(4))
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("missing item", func(t *testing.T) {
		svc, mock := newMockService(t)

		mock.ExpectQuery("SELECT id FROM quarterly_roadmaps").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(21)))
		mock.ExpectExec("UPDATE roadmap_items").WillReturnResult(sqlmock.NewResult(0, 0))

		err := svc.UpdateEffortRating(context.Background(), 5, 2025, 2, "e9", intPtr(4))
		assert.True(t, apperrors.IsNotFound(err))
		assert.Contains(t, err.Error(), "e9")
	})

	t.Run("out of range", func(t *testing.T) {
		svc, _ := newMockService(t)

		err := svc.UpdateEffortRating(context.Background(), 5, 2025, 2, "e1", intPtr(6))
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})
}

func TestRoadmapEpics(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT ri.epic_id, ri.epic_name").
		WithArgs(int64(5), 2025, 2).
		WillReturnRows(sqlmock.NewRows([]string{"epic_id", "epic_name"}).AddRow("e1", "Checkout"))

	epics, err := svc.RoadmapEpics(context.Background(), 5, 2025, 2)
	require.NoError(t, err)
	require.Len(t, epics, 1)
	assert.Equal(t, "Checkout", epics[0].EpicName)
}
