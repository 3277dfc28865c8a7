package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkghttp "github.com/afo-asso/membership-api/pkg/http"
)

func TestWriteError_Envelope(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, http.StatusBadRequest, "test_error", "Requête invalide")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Requête invalide", resp.Message)
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name     string
		write    func(http.ResponseWriter, string)
		wantCode int
		wantErr  string
	}{
		{"bad request", pkghttp.WriteBadRequest, http.StatusBadRequest, "bad_request"},
		{"unauthorized", pkghttp.WriteUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", pkghttp.WriteForbidden, http.StatusForbidden, "forbidden"},
		{"not found", pkghttp.WriteNotFound, http.StatusNotFound, "not_found"},
		{"conflict", pkghttp.WriteConflict, http.StatusConflict, "conflict"},
		{"internal", pkghttp.WriteInternalError, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w, "message")

			assert.Equal(t, tt.wantCode, w.Code)

			var resp pkghttp.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp.Error)
			assert.Equal(t, "message", resp.Message)
		})
	}
}
