package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/afo-asso/membership-api/internal/database"
	"github.com/afo-asso/membership-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const userColumns = `id, nom, prenom, num, sexe, email, password_hash, statut, role, plan_cotisation, reset_code_hash, reset_code_expires_at, created_at, updated_at`

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var passwordHash *string

	err := scanner.Scan(
		&user.ID, &user.Nom, &user.Prenom, &user.Num, &user.Sexe,
		&user.Email, &passwordHash, &user.Statut, &user.Role,
		&user.PlanCotisation, &user.ResetCodeHash, &user.ResetCodeExpiresAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}

	return &user, nil
}

// scanUserRows iterates through rows and scans each into User models
func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	return scanUserRow(r.pool.QueryRow(ctx, query, strings.ToLower(email)))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

// ListActiveMembers returns every user eligible for dues generation:
// statut actif and role other than Admin.
func (r *UserRepository) ListActiveMembers(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE statut = $1 AND role <> $2
		ORDER BY nom, prenom
	`

	rows, err := r.pool.Query(ctx, query, models.StatutActif, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to query active members: %w", err)
	}

	return scanUserRows(rows)
}

// ListActiveMembersByIDs restricts ListActiveMembers to a supplied id set.
// Unknown, inactive, or Admin ids are silently absent from the result.
func (r *UserRepository) ListActiveMembersByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = ANY($1::uuid[]) AND statut = $2 AND role <> $3
		ORDER BY nom, prenom
	`

	rows, err := r.pool.Query(ctx, query, pq.Array(ids), models.StatutActif, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to query selected members: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()
	user.Email = strings.ToLower(user.Email)

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RoleMembre
	}
	if user.Statut == "" {
		user.Statut = models.StatutActif
	}

	query := `
		INSERT INTO users (id, nom, prenom, num, sexe, email, password_hash, statut, role, plan_cotisation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Nom, user.Prenom, user.Num, user.Sexe,
		user.Email, user.PasswordHash, user.Statut, user.Role,
		user.PlanCotisation, user.CreatedAt, user.UpdatedAt,
	))
}

func (r *UserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET nom = $1, prenom = $2, num = $3, sexe = $4, email = $5,
		    statut = $6, role = $7, plan_cotisation = $8, updated_at = $9
		WHERE id = $10
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.Nom, user.Prenom, user.Num, user.Sexe, strings.ToLower(user.Email),
		user.Statut, user.Role, user.PlanCotisation, user.UpdatedAt, id,
	))
}

// UpdatePassword replaces the stored hash and clears any pending reset code.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, reset_code_hash = NULL, reset_code_expires_at = NULL, updated_at = $2
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// SetResetCode stores the one-way hash of a reset code with its expiry.
func (r *UserRepository) SetResetCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET reset_code_hash = $1, reset_code_expires_at = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.pool.Exec(ctx, query, codeHash, expiresAt, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
