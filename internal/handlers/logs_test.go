package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afo-asso/membership-api/internal/models"
	"github.com/afo-asso/membership-api/internal/repositories"
	"github.com/afo-asso/membership-api/internal/services"
)

func TestLogHandler_ListLogs_PassesFilterAndPagination(t *testing.T) {
	var gotFilter repositories.LogFilter
	var gotPage, gotLimit int

	mock := &MockAuditService{
		ListFunc: func(ctx context.Context, filter repositories.LogFilter, page, limit int) (*services.LogPage, error) {
			gotFilter = filter
			gotPage = page
			gotLimit = limit
			return &services.LogPage{
				Logs: []*models.ActionLog{
					{
						ID:          "log-1",
						UserID:      "admin-1",
						UserEmail:   "ousmane.sow@example.com",
						UserName:    "Ousmane Sow",
						UserRole:    models.RoleAdmin,
						Action:      models.ActionCotisationPayee,
						TargetType:  "cotisation",
						Description: "Paiement enregistré",
						CreatedAt:   time.Now(),
					},
				},
				Page:  2,
				Limit: 10,
				Total: 11,
				Pages: 2,
			}, nil
		},
	}
	handler := NewLogHandler(mock)

	req := httptest.NewRequest(http.MethodGet, "/logs?action="+models.ActionCotisationPayee+"&page=2&limit=10&start_date=2026-01-01", nil)
	rec := httptest.NewRecorder()

	handler.ListLogs(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ActionCotisationPayee, gotFilter.Action)
	require.NotNil(t, gotFilter.StartDate)
	assert.Equal(t, 2026, gotFilter.StartDate.Year())
	assert.Equal(t, 2, gotPage)
	assert.Equal(t, 10, gotLimit)

	var resp ListLogsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, "Ousmane Sow", resp.Logs[0].UserName)
	assert.Equal(t, int64(11), resp.Total)
	assert.Equal(t, int64(2), resp.Pages)
}

func TestLogHandler_ListLogs_RejectsMalformedDate(t *testing.T) {
	handler := NewLogHandler(&MockAuditService{})

	req := httptest.NewRequest(http.MethodGet, "/logs?start_date=janvier", nil)
	rec := httptest.NewRecorder()

	handler.ListLogs(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogHandler_ListUserLogs_RequiresID(t *testing.T) {
	handler := NewLogHandler(&MockAuditService{})

	req := requestWithURLParam(httptest.NewRequest(http.MethodGet, "/logs/user/", nil), "id", "")
	rec := httptest.NewRecorder()

	handler.ListUserLogs(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogHandler_GetStats_ReturnsAggregates(t *testing.T) {
	mock := &MockAuditService{
		StatsFunc: func(ctx context.Context, startDate, endDate *time.Time) (*models.LogStats, error) {
			return &models.LogStats{
				ByAction: []models.ActionStat{
					{Action: models.ActionCotisationPayee, Count: 4},
				},
				ByUser: []models.ActorStat{
					{UserID: "admin-1", UserName: "Ousmane Sow", UserRole: models.RoleAdmin, Count: 4},
				},
				ByTarget: []models.TargetStat{
					{TargetType: "cotisation", Count: 4},
				},
				Financial: models.FinancialStat{TotalMontant: 12000, Count: 4},
			}, nil
		},
	}
	handler := NewLogHandler(mock)

	req := httptest.NewRequest(http.MethodGet, "/logs/stats", nil)
	rec := httptest.NewRecorder()

	handler.GetStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp LogStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.ByAction, 1)
	assert.Equal(t, int64(4), resp.ByAction[0].Count)
	assert.Equal(t, float64(12000), resp.Financial.TotalMontant)
}
