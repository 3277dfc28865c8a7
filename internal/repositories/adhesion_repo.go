package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/afo-asso/membership-api/internal/database"
	"github.com/afo-asso/membership-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdhesionRepository handles adhesion request data access
type AdhesionRepository struct {
	pool *pgxpool.Pool
}

func NewAdhesionRepository(db *database.DB) *AdhesionRepository {
	return &AdhesionRepository{pool: db.Pool}
}

const adhesionColumns = `id, nom, prenom, num, sexe, email, password_hash, plan_cotisation, statut, date_demande, date_traitement, traite_par, raison_refus`

func scanAdhesionRow(scanner rowScanner) (*models.AdhesionRequest, error) {
	var req models.AdhesionRequest

	err := scanner.Scan(
		&req.ID, &req.Nom, &req.Prenom, &req.Num, &req.Sexe,
		&req.Email, &req.PasswordHash, &req.PlanCotisation, &req.Statut,
		&req.DateDemande, &req.DateTraitement, &req.TraitePar, &req.RaisonRefus,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &req, nil
}

func (r *AdhesionRepository) GetByID(ctx context.Context, id string) (*models.AdhesionRequest, error) {
	query := `SELECT ` + adhesionColumns + ` FROM adhesion_requests WHERE id = $1`

	return scanAdhesionRow(r.pool.QueryRow(ctx, query, id))
}

// HasPendingForEmail reports whether an en_attente request exists for the email.
func (r *AdhesionRepository) HasPendingForEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT COUNT(*) FROM adhesion_requests WHERE email = $1 AND statut = $2`

	var count int64
	err := r.pool.QueryRow(ctx, query, email, models.DemandeEnAttente).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count pending requests: %w", err)
	}

	return count > 0, nil
}

// List returns requests newest-first, optionally filtered by statut, with the
// processing admin's name resolved when present.
func (r *AdhesionRepository) List(ctx context.Context, statut string) ([]*models.AdhesionRequest, error) {
	query := `
		SELECT r.id, r.nom, r.prenom, r.num, r.sexe, r.email, r.password_hash,
		       r.plan_cotisation, r.statut, r.date_demande, r.date_traitement,
		       r.traite_par, r.raison_refus,
		       u.nom, u.prenom
		FROM adhesion_requests r
		LEFT JOIN users u ON u.id = r.traite_par
		WHERE ($1 = '' OR r.statut = $1)
		ORDER BY r.date_demande DESC
	`

	rows, err := r.pool.Query(ctx, query, statut)
	if err != nil {
		return nil, fmt.Errorf("failed to query adhesion requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*models.AdhesionRequest, 0)

	for rows.Next() {
		var req models.AdhesionRequest
		var adminNom, adminPrenom *string

		err := rows.Scan(
			&req.ID, &req.Nom, &req.Prenom, &req.Num, &req.Sexe,
			&req.Email, &req.PasswordHash, &req.PlanCotisation, &req.Statut,
			&req.DateDemande, &req.DateTraitement, &req.TraitePar, &req.RaisonRefus,
			&adminNom, &adminPrenom,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan adhesion request: %w", err)
		}

		if adminNom != nil && adminPrenom != nil {
			fullName := *adminPrenom + " " + *adminNom
			req.TraiteParNom = &fullName
		}

		requests = append(requests, &req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating adhesion rows: %w", err)
	}

	return requests, nil
}

func (r *AdhesionRepository) Create(ctx context.Context, req *models.AdhesionRequest) (*models.AdhesionRequest, error) {
	req.ID = uuid.New().String()
	req.Statut = models.DemandeEnAttente
	req.DateDemande = time.Now()

	query := `
		INSERT INTO adhesion_requests (id, nom, prenom, num, sexe, email, password_hash, plan_cotisation, statut, date_demande)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + adhesionColumns

	return scanAdhesionRow(r.pool.QueryRow(ctx, query,
		req.ID, req.Nom, req.Prenom, req.Num, req.Sexe,
		req.Email, req.PasswordHash, req.PlanCotisation, req.Statut, req.DateDemande,
	))
}

// MarkProcessed records the terminal transition of a request. It only
// succeeds when the request is still en_attente, so a concurrent double
// approval resolves to ErrAlreadyProcessed for the loser.
func (r *AdhesionRepository) MarkProcessed(ctx context.Context, id, statut, adminID string, raison *string) (*models.AdhesionRequest, error) {
	query := `
		UPDATE adhesion_requests
		SET statut = $1, date_traitement = $2, traite_par = $3, raison_refus = $4
		WHERE id = $5 AND statut = $6
		RETURNING ` + adhesionColumns

	req, err := scanAdhesionRow(r.pool.QueryRow(ctx, query,
		statut, time.Now(), adminID, raison, id, models.DemandeEnAttente,
	))
	if errors.Is(err, models.ErrNotFound) {
		// Distinguish a missing request from one already processed.
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return nil, models.ErrAlreadyProcessed
		}
		return nil, models.ErrNotFound
	}

	return req, err
}

func (r *AdhesionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM adhesion_requests WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
