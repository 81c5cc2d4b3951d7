package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type brokenJSON struct{}

func (brokenJSON) MarshalJSON() ([]byte, error) {
	return nil, errors.New("boom")
}

func TestWriteJSON(t *testing.T) {
	t.Run("encodes with status", func(t *testing.T) {
		rec := httptest.NewRecorder()

		writeJSON(rec, http.StatusAccepted, map[string]int{"n": 1})

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"n":1}`, rec.Body.String())
	})

	t.Run("encode failure becomes 500", func(t *testing.T) {
		rec := httptest.NewRecorder()

		writeJSON(rec, http.StatusOK, brokenJSON{})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "failed to encode response")
	})
}
