package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteJSON(w, http.StatusCreated, map[string]int{"id": 7}))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":7}`, w.Body.String())
}

func TestWriteMessage(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteMessage(w, "Team deleted successfully"))
	assert.JSONEq(t, `{"message":"Team deleted successfully"}`, w.Body.String())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperrors.Kind
		want int
	}{
		{apperrors.KindValidation, http.StatusBadRequest},
		{apperrors.KindDuplicateResource, http.StatusBadRequest},
		{apperrors.KindUnauthorized, http.StatusUnauthorized},
		{apperrors.KindForbidden, http.StatusForbidden},
		{apperrors.KindNotFound, http.StatusNotFound},
		{apperrors.KindConflict, http.StatusConflict},
		{apperrors.KindInvalidState, http.StatusConflict},
		{apperrors.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.kind))
		})
	}
}

func TestWriteAppError(t *testing.T) {
	t.Run("classified error keeps message and details", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "/api/products/1/roadmap/2025/3", nil)

		WriteAppError(w, r, apperrors.Conflict([]string{"Checkout (Q2 2025)"},
			"The following epics are already assigned to other quarters: Checkout (Q2 2025)"))

		assert.Equal(t, http.StatusConflict, w.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "The following epics are already assigned to other quarters: Checkout (Q2 2025)", body.Error)
		assert.Equal(t, "conflict", body.Message)
		assert.Equal(t, []interface{}{"Checkout (Q2 2025)"}, body.Details)
	})

	t.Run("unclassified error is hidden and logged", func(t *testing.T) {
		var logs bytes.Buffer
		logger := observability.NewLogger(observability.InfoLevel, &logs)

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/products", nil)
		r = r.WithContext(observability.WithLogger(r.Context(), logger))

		WriteAppError(w, r, errors.New("pq: relation \"products\" does not exist"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
		assert.Contains(t, logs.String(), "relation")
	})
}
