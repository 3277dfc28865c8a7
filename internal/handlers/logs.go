package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/afo-asso/membership-api/internal/models"
	"github.com/afo-asso/membership-api/internal/repositories"
	"github.com/afo-asso/membership-api/internal/services"
	pkghttp "github.com/afo-asso/membership-api/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AuditServiceInterface defines the audit log read operations the handler needs
type AuditServiceInterface interface {
	List(ctx context.Context, filter repositories.LogFilter, page, limit int) (*services.LogPage, error)
	ListByUser(ctx context.Context, userID string, page, limit int) (*services.LogPage, error)
	Stats(ctx context.Context, startDate, endDate *time.Time) (*models.LogStats, error)
}

// LogHandler handles audit log HTTP endpoints
type LogHandler struct {
	service AuditServiceInterface
}

// NewLogHandler creates a new LogHandler
func NewLogHandler(service AuditServiceInterface) *LogHandler {
	return &LogHandler{
		service: service,
	}
}

// ActionLogResponse represents an audit record in HTTP responses
type ActionLogResponse struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	UserEmail   string            `json:"user_email"`
	UserName    string            `json:"user_name"`
	UserRole    string            `json:"user_role"`
	Action      string            `json:"action"`
	TargetType  string            `json:"target_type"`
	TargetID    *string           `json:"target_id,omitempty"`
	TargetName  *string           `json:"target_name,omitempty"`
	Description string            `json:"description"`
	Details     models.LogDetails `json:"details,omitempty"`
	Montant     *float64          `json:"montant,omitempty"`
	IPAddress   *string           `json:"ip_address,omitempty"`
	CreatedAt   string            `json:"created_at"`
}

// ListLogsResponse represents a page of audit records
type ListLogsResponse struct {
	Logs  []*ActionLogResponse `json:"logs"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
	Total int64                `json:"total"`
	Pages int64                `json:"pages"`
}

func logModelToResponse(log *models.ActionLog) *ActionLogResponse {
	return &ActionLogResponse{
		ID:          log.ID,
		UserID:      log.UserID,
		UserEmail:   log.UserEmail,
		UserName:    log.UserName,
		UserRole:    log.UserRole,
		Action:      log.Action,
		TargetType:  log.TargetType,
		TargetID:    log.TargetID,
		TargetName:  log.TargetName,
		Description: log.Description,
		Details:     log.Details,
		Montant:     log.Montant,
		IPAddress:   log.IPAddress,
		CreatedAt:   log.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func logPageToResponse(page *services.LogPage) *ListLogsResponse {
	response := &ListLogsResponse{
		Logs:  make([]*ActionLogResponse, 0, len(page.Logs)),
		Page:  page.Page,
		Limit: page.Limit,
		Total: page.Total,
		Pages: page.Pages,
	}
	for _, log := range page.Logs {
		response.Logs = append(response.Logs, logModelToResponse(log))
	}
	return response
}

func parsePagination(r *http.Request) (page, limit int) {
	page = 1
	limit = 50
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	return page, limit
}

func parseDateParam(r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, true
	}
	return nil, false
}

// ListLogs retrieves audit records newest-first with optional filters
func (h *LogHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	startDate, ok := parseDateParam(r, "start_date")
	if !ok {
		pkghttp.WriteBadRequest(w, "start_date must be RFC3339 or AAAA-MM-JJ")
		return
	}
	endDate, ok := parseDateParam(r, "end_date")
	if !ok {
		pkghttp.WriteBadRequest(w, "end_date must be RFC3339 or AAAA-MM-JJ")
		return
	}

	filter := repositories.LogFilter{
		Action:     r.URL.Query().Get("action"),
		UserID:     r.URL.Query().Get("user_id"),
		TargetType: r.URL.Query().Get("target_type"),
		StartDate:  startDate,
		EndDate:    endDate,
	}

	page, limit := parsePagination(r)

	result, err := h.service.List(r.Context(), filter, page, limit)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logPageToResponse(result))
}

// ListUserLogs retrieves one actor's audit records
func (h *LogHandler) ListUserLogs(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	page, limit := parsePagination(r)

	result, err := h.service.ListByUser(r.Context(), userID, page, limit)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logPageToResponse(result))
}

// GetStats returns aggregate counts over the audit log
func (h *LogHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	startDate, ok := parseDateParam(r, "start_date")
	if !ok {
		pkghttp.WriteBadRequest(w, "start_date must be RFC3339 or AAAA-MM-JJ")
		return
	}
	endDate, ok := parseDateParam(r, "end_date")
	if !ok {
		pkghttp.WriteBadRequest(w, "end_date must be RFC3339 or AAAA-MM-JJ")
		return
	}

	stats, err := h.service.Stats(r.Context(), startDate, endDate)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statsToResponse(stats))
}

// LogStatsResponse represents the aggregate audit view
type LogStatsResponse struct {
	ByAction  []ActionStatResponse `json:"by_action"`
	ByUser    []ActorStatResponse  `json:"by_user"`
	ByTarget  []TargetStatResponse `json:"by_target"`
	Financial FinancialResponse    `json:"financial"`
}

// ActionStatResponse is one per-action count
type ActionStatResponse struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// ActorStatResponse is one per-actor count
type ActorStatResponse struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	UserRole string `json:"user_role"`
	Count    int64  `json:"count"`
}

// TargetStatResponse is one per-target-type count
type TargetStatResponse struct {
	TargetType string `json:"target_type"`
	Count      int64  `json:"count"`
}

// FinancialResponse sums the montants attached to audit records
type FinancialResponse struct {
	TotalMontant float64 `json:"total_montant"`
	Count        int64   `json:"count"`
}

func statsToResponse(stats *models.LogStats) *LogStatsResponse {
	response := &LogStatsResponse{
		ByAction: make([]ActionStatResponse, 0, len(stats.ByAction)),
		ByUser:   make([]ActorStatResponse, 0, len(stats.ByUser)),
		ByTarget: make([]TargetStatResponse, 0, len(stats.ByTarget)),
		Financial: FinancialResponse{
			TotalMontant: stats.Financial.TotalMontant,
			Count:        stats.Financial.Count,
		},
	}
	for _, s := range stats.ByAction {
		response.ByAction = append(response.ByAction, ActionStatResponse{Action: s.Action, Count: s.Count})
	}
	for _, s := range stats.ByUser {
		response.ByUser = append(response.ByUser, ActorStatResponse{
			UserID:   s.UserID,
			UserName: s.UserName,
			UserRole: s.UserRole,
			Count:    s.Count,
		})
	}
	for _, s := range stats.ByTarget {
		response.ByTarget = append(response.ByTarget, TargetStatResponse{TargetType: s.TargetType, Count: s.Count})
	}
	return response
}
