package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/afo-asso/membership-api/internal/database"
	"github.com/afo-asso/membership-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActionLogRepository handles audit log data access. Records are append-only:
// the application never updates or deletes them.
type ActionLogRepository struct {
	pool *pgxpool.Pool
}

func NewActionLogRepository(db *database.DB) *ActionLogRepository {
	return &ActionLogRepository{pool: db.Pool}
}

// LogFilter narrows List queries. Zero values mean "no filter".
type LogFilter struct {
	Action     string
	UserID     string
	TargetType string
	StartDate  *time.Time
	EndDate    *time.Time
}

const actionLogColumns = `id, user_id, user_email, user_name, user_role, action, target_type, target_id, target_name, description, details, montant, ip_address, created_at`

func scanActionLogRow(scanner rowScanner) (*models.ActionLog, error) {
	var log models.ActionLog

	err := scanner.Scan(
		&log.ID, &log.UserID, &log.UserEmail, &log.UserName, &log.UserRole,
		&log.Action, &log.TargetType, &log.TargetID, &log.TargetName,
		&log.Description, &log.Details, &log.Montant, &log.IPAddress,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &log, nil
}

func scanActionLogRows(rows pgx.Rows) ([]*models.ActionLog, error) {
	defer rows.Close()

	logs := make([]*models.ActionLog, 0)

	for rows.Next() {
		log, err := scanActionLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action log rows: %w", err)
	}

	return logs, nil
}

// Create appends a new audit record.
func (r *ActionLogRepository) Create(ctx context.Context, log *models.ActionLog) (*models.ActionLog, error) {
	log.ID = uuid.New().String()
	log.CreatedAt = time.Now()

	query := `
		INSERT INTO action_logs (id, user_id, user_email, user_name, user_role, action, target_type, target_id, target_name, description, details, montant, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + actionLogColumns

	result, err := scanActionLogRow(r.pool.QueryRow(ctx, query,
		log.ID, log.UserID, log.UserEmail, log.UserName, log.UserRole,
		log.Action, log.TargetType, log.TargetID, log.TargetName,
		log.Description, log.Details, log.Montant, log.IPAddress, log.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create action log: %w", err)
	}

	return result, nil
}

// List returns logs newest-first matching the filter, plus the total count
// for pagination.
func (r *ActionLogRepository) List(ctx context.Context, filter LogFilter, limit, offset int) ([]*models.ActionLog, int64, error) {
	where := `
		WHERE ($1 = '' OR action = $1)
		  AND ($2 = '' OR user_id = $2)
		  AND ($3 = '' OR target_type = $3)
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		  AND ($5::timestamptz IS NULL OR created_at <= $5)
	`

	query := `SELECT ` + actionLogColumns + ` FROM action_logs` + where + `
		ORDER BY created_at DESC
		LIMIT $6 OFFSET $7
	`

	rows, err := r.pool.Query(ctx, query,
		filter.Action, filter.UserID, filter.TargetType,
		filter.StartDate, filter.EndDate, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query action logs: %w", err)
	}

	logs, err := scanActionLogRows(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM action_logs` + where
	err = r.pool.QueryRow(ctx, countQuery,
		filter.Action, filter.UserID, filter.TargetType,
		filter.StartDate, filter.EndDate,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count action logs: %w", err)
	}

	return logs, total, nil
}

// ListByUser returns one actor's logs newest-first with the total count.
func (r *ActionLogRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.ActionLog, int64, error) {
	query := `
		SELECT ` + actionLogColumns + `
		FROM action_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query user action logs: %w", err)
	}

	logs, err := scanActionLogRows(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM action_logs WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count user action logs: %w", err)
	}

	return logs, total, nil
}

// Stats aggregates logs within the optional date range: counts per action,
// top 10 actors by count, counts per target type, and the montant total over
// entries that carry one.
func (r *ActionLogRepository) Stats(ctx context.Context, startDate, endDate *time.Time) (*models.LogStats, error) {
	stats := &models.LogStats{
		ByAction: make([]models.ActionStat, 0),
		ByUser:   make([]models.ActorStat, 0),
		ByTarget: make([]models.TargetStat, 0),
	}

	dateWhere := `
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)
	`

	actionQuery := `
		SELECT action, COUNT(*) FROM action_logs` + dateWhere + `
		GROUP BY action ORDER BY COUNT(*) DESC
	`
	rows, err := r.pool.Query(ctx, actionQuery, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query action stats: %w", err)
	}
	for rows.Next() {
		var s models.ActionStat
		if err := rows.Scan(&s.Action, &s.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan action stat: %w", err)
		}
		stats.ByAction = append(stats.ByAction, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action stats: %w", err)
	}

	userQuery := `
		SELECT user_id, MIN(user_name), MIN(user_role), COUNT(*)
		FROM action_logs` + dateWhere + `
		GROUP BY user_id ORDER BY COUNT(*) DESC LIMIT 10
	`
	rows, err = r.pool.Query(ctx, userQuery, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query actor stats: %w", err)
	}
	for rows.Next() {
		var s models.ActorStat
		if err := rows.Scan(&s.UserID, &s.UserName, &s.UserRole, &s.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan actor stat: %w", err)
		}
		stats.ByUser = append(stats.ByUser, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating actor stats: %w", err)
	}

	targetQuery := `
		SELECT target_type, COUNT(*) FROM action_logs` + dateWhere + `
		GROUP BY target_type
	`
	rows, err = r.pool.Query(ctx, targetQuery, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query target stats: %w", err)
	}
	for rows.Next() {
		var s models.TargetStat
		if err := rows.Scan(&s.TargetType, &s.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan target stat: %w", err)
		}
		stats.ByTarget = append(stats.ByTarget, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating target stats: %w", err)
	}

	financialQuery := `
		SELECT COALESCE(SUM(montant), 0), COUNT(*)
		FROM action_logs` + dateWhere + `
		  AND montant IS NOT NULL
	`
	err = r.pool.QueryRow(ctx, financialQuery, startDate, endDate).
		Scan(&stats.Financial.TotalMontant, &stats.Financial.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to query financial stats: %w", err)
	}

	return stats, nil
}
