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

// CotisationRepository handles cotisation data access. The
// (user_id, mois) pair carries a unique index, so a concurrent duplicate
// insert surfaces as models.ErrConflict rather than a silent duplicate.
type CotisationRepository struct {
	pool *pgxpool.Pool
}

func NewCotisationRepository(db *database.DB) *CotisationRepository {
	return &CotisationRepository{pool: db.Pool}
}

const cotisationColumns = `id, user_id, mois, montant, statut, date_paiement, methode_paiement, created_at`

func scanCotisationRow(scanner rowScanner) (*models.Cotisation, error) {
	var c models.Cotisation

	err := scanner.Scan(
		&c.ID, &c.UserID, &c.Mois, &c.Montant, &c.Statut,
		&c.DatePaiement, &c.MethodePaiement, &c.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &c, nil
}

func scanCotisationRows(rows pgx.Rows) ([]*models.Cotisation, error) {
	defer rows.Close()

	cotisations := make([]*models.Cotisation, 0)

	for rows.Next() {
		c, err := scanCotisationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cotisation: %w", err)
		}
		cotisations = append(cotisations, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cotisation rows: %w", err)
	}

	return cotisations, nil
}

func (r *CotisationRepository) GetByID(ctx context.Context, id string) (*models.Cotisation, error) {
	query := `SELECT ` + cotisationColumns + ` FROM cotisations WHERE id = $1`

	return scanCotisationRow(r.pool.QueryRow(ctx, query, id))
}

// ExistsForMonth reports whether the user already has a cotisation for mois.
func (r *CotisationRepository) ExistsForMonth(ctx context.Context, userID, mois string) (bool, error) {
	query := `SELECT COUNT(*) FROM cotisations WHERE user_id = $1 AND mois = $2`

	var count int64
	err := r.pool.QueryRow(ctx, query, userID, mois).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count cotisations: %w", err)
	}

	return count > 0, nil
}

func (r *CotisationRepository) ListByUser(ctx context.Context, userID string) ([]*models.Cotisation, error) {
	query := `SELECT ` + cotisationColumns + ` FROM cotisations WHERE user_id = $1 ORDER BY mois DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cotisations: %w", err)
	}

	return scanCotisationRows(rows)
}

// ListAll returns every cotisation mois-descending with member identity joined.
func (r *CotisationRepository) ListAll(ctx context.Context) ([]*models.Cotisation, error) {
	query := `
		SELECT c.id, c.user_id, c.mois, c.montant, c.statut, c.date_paiement,
		       c.methode_paiement, c.created_at, u.nom, u.prenom, u.email
		FROM cotisations c
		JOIN users u ON u.id = c.user_id
		ORDER BY c.mois DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cotisations: %w", err)
	}
	defer rows.Close()

	cotisations := make([]*models.Cotisation, 0)

	for rows.Next() {
		var c models.Cotisation
		err := rows.Scan(
			&c.ID, &c.UserID, &c.Mois, &c.Montant, &c.Statut,
			&c.DatePaiement, &c.MethodePaiement, &c.CreatedAt,
			&c.UserNom, &c.UserPrenom, &c.UserEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cotisation: %w", err)
		}
		cotisations = append(cotisations, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cotisation rows: %w", err)
	}

	return cotisations, nil
}

func (r *CotisationRepository) Create(ctx context.Context, c *models.Cotisation) (*models.Cotisation, error) {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now()

	if c.Statut == "" {
		c.Statut = models.CotisationEnAttente
	}

	query := `
		INSERT INTO cotisations (id, user_id, mois, montant, statut, date_paiement, methode_paiement, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + cotisationColumns

	return scanCotisationRow(r.pool.QueryRow(ctx, query,
		c.ID, c.UserID, c.Mois, c.Montant, c.Statut,
		c.DatePaiement, c.MethodePaiement, c.CreatedAt,
	))
}

func (r *CotisationRepository) Update(ctx context.Context, id string, c *models.Cotisation) (*models.Cotisation, error) {
	query := `
		UPDATE cotisations
		SET montant = $1, statut = $2, date_paiement = $3, methode_paiement = $4
		WHERE id = $5
		RETURNING ` + cotisationColumns

	return scanCotisationRow(r.pool.QueryRow(ctx, query,
		c.Montant, c.Statut, c.DatePaiement, c.MethodePaiement, id,
	))
}

func (r *CotisationRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM cotisations WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteAll removes every cotisation record and returns the number deleted.
func (r *CotisationRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM cotisations`)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}

// MarkOverdue transitions en_attente cotisations for months strictly before
// currentMois to en_retard. Used by the scheduled overdue sweep only.
func (r *CotisationRepository) MarkOverdue(ctx context.Context, currentMois string) (int64, error) {
	query := `
		UPDATE cotisations
		SET statut = $1
		WHERE statut = $2 AND mois < $3
	`

	result, err := r.pool.Exec(ctx, query, models.CotisationEnRetard, models.CotisationEnAttente, currentMois)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
