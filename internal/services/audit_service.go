package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/afo-asso/membership-api/internal/models"
	"github.com/afo-asso/membership-api/internal/repositories"
)

// ActionLogRepository defines the interface for audit log data access
type ActionLogRepository interface {
	Create(ctx context.Context, log *models.ActionLog) (*models.ActionLog, error)
	List(ctx context.Context, filter repositories.LogFilter, limit, offset int) ([]*models.ActionLog, int64, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.ActionLog, int64, error)
	Stats(ctx context.Context, startDate, endDate *time.Time) (*models.LogStats, error)
}

// AuditService appends immutable action records with a dual-write pattern
// (slog + database). Persistence failure is swallowed: audit completeness is
// secondary to availability of the primary operation.
type AuditService struct {
	repo   ActionLogRepository
	logger *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo ActionLogRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger,
	}
}

// Entry carries everything needed to append one audit record. Actor identity
// is snapshotted into the record at write time.
type Entry struct {
	Actor       *models.User
	Action      string
	TargetType  string
	TargetID    string
	TargetName  string
	Description string
	Details     models.LogDetails
	Montant     *float64
	IPAddress   string
}

// Log appends an audit record. It never returns an error: on persistence
// failure it reports through slog and returns nil.
func (s *AuditService) Log(ctx context.Context, e Entry) *models.ActionLog {
	log := &models.ActionLog{
		UserID:      e.Actor.ID,
		UserEmail:   e.Actor.Email,
		UserName:    e.Actor.FullName(),
		UserRole:    e.Actor.Role,
		Action:      e.Action,
		TargetType:  e.TargetType,
		Description: e.Description,
		Details:     e.Details,
		Montant:     e.Montant,
	}

	if e.TargetID != "" {
		log.TargetID = &e.TargetID
	}
	if e.TargetName != "" {
		log.TargetName = &e.TargetName
	}
	if e.IPAddress != "" {
		log.IPAddress = &e.IPAddress
	}

	s.logger.InfoContext(ctx, "action logged",
		slog.String("action", e.Action),
		slog.String("actor_id", e.Actor.ID),
		slog.String("target_type", e.TargetType),
		slog.String("description", e.Description),
	)

	created, err := s.repo.Create(ctx, log)
	if err != nil {
		// Never fail the triggering operation over a missing audit row.
		s.logger.ErrorContext(ctx, "failed to persist action log",
			slog.String("action", e.Action),
			slog.Any("error", err),
		)
		return nil
	}

	return created
}

// LogPage is one page of audit records.
type LogPage struct {
	Logs  []*models.ActionLog
	Page  int
	Limit int
	Total int64
	Pages int64
}

// List returns logs newest-first matching the filter.
func (s *AuditService) List(ctx context.Context, filter repositories.LogFilter, page, limit int) (*LogPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	logs, total, err := s.repo.List(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		s.logger.Error("failed to list action logs", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &LogPage{
		Logs:  logs,
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: (total + int64(limit) - 1) / int64(limit),
	}, nil
}

// ListByUser returns one actor's logs newest-first.
func (s *AuditService) ListByUser(ctx context.Context, userID string, page, limit int) (*LogPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	logs, total, err := s.repo.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		s.logger.Error("failed to list user action logs",
			slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &LogPage{
		Logs:  logs,
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: (total + int64(limit) - 1) / int64(limit),
	}, nil
}

// Stats returns the aggregate view over the action log.
func (s *AuditService) Stats(ctx context.Context, startDate, endDate *time.Time) (*models.LogStats, error) {
	stats, err := s.repo.Stats(ctx, startDate, endDate)
	if err != nil {
		s.logger.Error("failed to compute log stats", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return stats, nil
}
