package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/afo-asso/membership-api/internal/models"
)

// CotisationRepository defines the interface for cotisation data access
type CotisationRepository interface {
	GetByID(ctx context.Context, id string) (*models.Cotisation, error)
	ExistsForMonth(ctx context.Context, userID, mois string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Cotisation, error)
	ListAll(ctx context.Context) ([]*models.Cotisation, error)
	Create(ctx context.Context, c *models.Cotisation) (*models.Cotisation, error)
	Update(ctx context.Context, id string, c *models.Cotisation) (*models.Cotisation, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
	MarkOverdue(ctx context.Context, currentMois string) (int64, error)
}

// CotisationService manages the monthly dues lifecycle.
type CotisationService struct {
	cotisations CotisationRepository
	users       UserRepository
	audit       *AuditService
	logger      *slog.Logger
}

// NewCotisationService creates a new CotisationService
func NewCotisationService(cotisations CotisationRepository, users UserRepository, audit *AuditService, logger *slog.Logger) *CotisationService {
	return &CotisationService{
		cotisations: cotisations,
		users:       users,
		audit:       audit,
		logger:      logger,
	}
}

// CreateOne records a single dues obligation for a member. One per member
// per month: a second creation for the same (member, mois) is ErrConflict.
func (s *CotisationService) CreateOne(userID, mois string, montant float64, actor *models.User, ip string) (*models.Cotisation, error) {
	ctx := context.Background()

	if !models.ValidMois(mois) || montant <= 0 {
		return nil, models.ErrInvalidArgument
	}

	member, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get member for cotisation", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Pre-check for a friendly conflict; the unique index on (user_id,
	// mois) still catches the race below.
	exists, err := s.cotisations.ExistsForMonth(ctx, member.ID, mois)
	if err != nil {
		s.logger.Error("failed to check existing cotisation", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if exists {
		return nil, models.ErrConflict
	}

	cotisation := &models.Cotisation{
		UserID:  member.ID,
		Mois:    mois,
		Montant: montant,
		Statut:  models.CotisationEnAttente,
	}

	created, err := s.cotisations.Create(ctx, cotisation)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create cotisation",
			slog.String("user_id", userID), slog.String("mois", mois), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.Log(ctx, Entry{
		Actor:       actor,
		Action:      models.ActionCotisationGeneree,
		TargetType:  models.TargetCotisation,
		TargetID:    created.ID,
		TargetName:  member.FullName(),
		Description: fmt.Sprintf("Cotisation %s créée pour %s", mois, member.FullName()),
		Details:     models.LogDetails{"mois": mois, "membre_id": member.ID},
		Montant:     &created.Montant,
		IPAddress:   ip,
	})

	return created, nil
}

// MarkPaid settles a cotisation. Repeating the call on an already-paid
// record succeeds without moving the original payment date; every call
// appends its own audit entry.
func (s *CotisationService) MarkPaid(id, methode string, actor *models.User, ip string) (*models.Cotisation, error) {
	ctx := context.Background()

	if methode == "" {
		methode = models.MethodeEspeces
	}
	if !models.ValidMethode(methode) {
		return nil, models.ErrInvalidArgument
	}

	cotisation, err := s.cotisations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get cotisation", slog.String("cotisation_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	cotisation.Statut = models.CotisationPayee
	if cotisation.DatePaiement == nil {
		now := time.Now()
		cotisation.DatePaiement = &now
	}
	cotisation.MethodePaiement = &methode

	updated, err := s.cotisations.Update(ctx, id, cotisation)
	if err != nil {
		s.logger.Error("failed to mark cotisation paid", slog.String("cotisation_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	targetName := s.memberName(ctx, updated.UserID)

	s.audit.Log(ctx, Entry{
		Actor:       actor,
		Action:      models.ActionCotisationPayee,
		TargetType:  models.TargetCotisation,
		TargetID:    updated.ID,
		TargetName:  targetName,
		Description: fmt.Sprintf("Cotisation %s marquée payée (%s)", updated.Mois, methode),
		Details:     models.LogDetails{"mois": updated.Mois, "methode": methode},
		Montant:     &updated.Montant,
		IPAddress:   ip,
	})

	return updated, nil
}

// CotisationUpdateInput holds the mutable fields of a cotisation. Nil
// pointers leave the current value untouched.
type CotisationUpdateInput struct {
	Montant *float64
	Statut  *string
	Methode *string
}

// Update adjusts montant, statut, or payment method. Moving a record to
// "payé" stamps the payment date; moving it away clears it.
func (s *CotisationService) Update(id string, input CotisationUpdateInput, actor *models.User, ip string) (*models.Cotisation, error) {
	ctx := context.Background()

	cotisation, err := s.cotisations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get cotisation", slog.String("cotisation_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if input.Montant != nil {
		if *input.Montant <= 0 {
			return nil, models.ErrInvalidArgument
		}
		cotisation.Montant = *input.Montant
	}
	if input.Methode != nil {
		if !models.ValidMethode(*input.Methode) {
			return nil, models.ErrInvalidArgument
		}
		cotisation.MethodePaiement = input.Methode
	}
	if input.Statut != nil {
		if !models.ValidCotisationStatut(*input.Statut) {
			return nil, models.ErrInvalidArgument
		}
		if *input.Statut == models.CotisationPayee && cotisation.Statut != models.CotisationPayee {
			now := time.Now()
			cotisation.DatePaiement = &now
		}
		if *input.Statut != models.CotisationPayee {
			cotisation.DatePaiement = nil
			cotisation.MethodePaiement = nil
		}
		cotisation.Statut = *input.Statut
	}

	updated, err := s.cotisations.Update(ctx, id, cotisation)
	if err != nil {
		s.logger.Error("failed to update cotisation", slog.String("cotisation_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.Log(ctx, Entry{
		Actor:       actor,
		Action:      models.ActionCotisationModifie,
		TargetType:  models.TargetCotisation,
		TargetID:    updated.ID,
		TargetName:  s.memberName(ctx, updated.UserID),
		Description: fmt.Sprintf("Cotisation %s modifiée", updated.Mois),
		Details:     models.LogDetails{"mois": updated.Mois, "statut": updated.Statut},
		Montant:     &updated.Montant,
		IPAddress:   ip,
	})

	return updated, nil
}

// DeleteOne removes a single cotisation.
func (s *CotisationService) DeleteOne(id string, actor *models.User, ip string) error {
	ctx := context.Background()

	cotisation, err := s.cotisations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get cotisation for deletion", slog.String("cotisation_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.cotisations.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete cotisation", slog.String("cotisation_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.Log(ctx, Entry{
		Actor:       actor,
		Action:      models.ActionCotisationSupprim,
		TargetType:  models.TargetCotisation,
		TargetID:    cotisation.ID,
		TargetName:  s.memberName(ctx, cotisation.UserID),
		Description: fmt.Sprintf("Cotisation %s supprimée", cotisation.Mois),
		Details:     models.LogDetails{"mois": cotisation.Mois, "statut": cotisation.Statut},
		Montant:     &cotisation.Montant,
		IPAddress:   ip,
	})

	return nil
}

// GenerateError records a per-member failure during bulk generation.
type GenerateError struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// GenerateResult reports the outcome of a bulk generation. Members who
// already had a cotisation for the month land in AlreadyExisting, not
// Errors.
type GenerateResult struct {
	Mois            string
	Montant         float64
	Created         []*models.Cotisation
	AlreadyExisting []string
	Errors          []GenerateError
}

// GenerateForAllActive creates one pending cotisation per active member for
// the given month. Administrators are never billed; an omitted montant
// falls back to the default.
func (s *CotisationService) GenerateForAllActive(mois string, montant float64, actor *models.User, ip string) (*GenerateResult, error) {
	ctx := context.Background()

	if !models.ValidMois(mois) {
		return nil, models.ErrInvalidArgument
	}
	if montant <= 0 {
		montant = models.DefaultMontant
	}

	members, err := s.users.ListActiveMembers(ctx)
	if err != nil {
		s.logger.Error("failed to list active members", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return s.generate(ctx, members, mois, montant, actor, ip, true)
}

// GenerateForSelected creates pending cotisations for a chosen set of
// members. Month, a positive montant, and a non-empty selection are all
// required; IDs that do not resolve to an active non-admin member are
// silently ignored.
func (s *CotisationService) GenerateForSelected(userIDs []string, mois string, montant float64, actor *models.User, ip string) (*GenerateResult, error) {
	ctx := context.Background()

	if !models.ValidMois(mois) || montant <= 0 || len(userIDs) == 0 {
		return nil, models.ErrInvalidArgument
	}

	members, err := s.users.ListActiveMembersByIDs(ctx, userIDs)
	if err != nil {
		s.logger.Error("failed to list selected members", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return s.generate(ctx, members, mois, montant, actor, ip, false)
}

// generate walks the member list and never aborts early: one member's
// failure is recorded and the rest are still billed. The summary audit
// entry is written unconditionally for the all-active run (auditEmpty)
// and only when something was created for a selective run.
func (s *CotisationService) generate(ctx context.Context, members []*models.User, mois string, montant float64, actor *models.User, ip string, auditEmpty bool) (*GenerateResult, error) {
	result := &GenerateResult{
		Mois:            mois,
		Montant:         montant,
		Created:         []*models.Cotisation{},
		AlreadyExisting: []string{},
		Errors:          []GenerateError{},
	}

	for _, member := range members {
		created, err := s.cotisations.Create(ctx, &models.Cotisation{
			UserID:  member.ID,
			Mois:    mois,
			Montant: montant,
			Statut:  models.CotisationEnAttente,
		})
		if err != nil {
			// The unique index makes a concurrent or prior generation for
			// the same month a skip, not a failure.
			if errors.Is(err, models.ErrConflict) {
				result.AlreadyExisting = append(result.AlreadyExisting, member.ID)
				continue
			}
			s.logger.Error("failed to generate cotisation",
				slog.String("user_id", member.ID), slog.String("mois", mois), slog.Any("error", err))
			result.Errors = append(result.Errors, GenerateError{UserID: member.ID, Reason: "création échouée"})
			continue
		}
		result.Created = append(result.Created, created)
	}

	if auditEmpty || len(result.Created) > 0 {
		total := montant * float64(len(result.Created))
		s.audit.Log(ctx, Entry{
			Actor:      actor,
			Action:     models.ActionCotisationsMasse,
			TargetType: models.TargetSystem,
			Description: fmt.Sprintf("Génération de %d cotisations pour %s (%d existantes, %d erreurs)",
				len(result.Created), mois, len(result.AlreadyExisting), len(result.Errors)),
			Details: models.LogDetails{
				"mois":       mois,
				"creees":     len(result.Created),
				"existantes": len(result.AlreadyExisting),
				"erreurs":    len(result.Errors),
			},
			Montant:   &total,
			IPAddress: ip,
		})
	}

	return result, nil
}

// DeleteAll wipes every cotisation. The caller must pass confirm=true; the
// operation is not recoverable.
func (s *CotisationService) DeleteAll(confirm bool, actor *models.User, ip string) (int64, error) {
	ctx := context.Background()

	if !confirm {
		return 0, models.ErrConfirmationRequired
	}

	deleted, err := s.cotisations.DeleteAll(ctx)
	if err != nil {
		s.logger.Error("failed to delete all cotisations", slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	s.audit.Log(ctx, Entry{
		Actor:       actor,
		Action:      models.ActionCotisationsPurge,
		TargetType:  models.TargetSystem,
		Description: fmt.Sprintf("Suppression de toutes les cotisations (%d)", deleted),
		Details:     models.LogDetails{"supprimees": deleted},
		IPAddress:   ip,
	})

	return deleted, nil
}

// ListByUser returns a member's cotisations, most recent month first.
func (s *CotisationService) ListByUser(userID string) ([]*models.Cotisation, error) {
	ctx := context.Background()

	cotisations, err := s.cotisations.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list cotisations", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return cotisations, nil
}

// ListAll returns every cotisation with member identity attached.
func (s *CotisationService) ListAll() ([]*models.Cotisation, error) {
	ctx := context.Background()

	cotisations, err := s.cotisations.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list all cotisations", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return cotisations, nil
}

// MarkOverdue flips pending cotisations from past months to "en_retard".
// Called by the scheduled sweep, never from a request path.
func (s *CotisationService) MarkOverdue(currentMois string) (int64, error) {
	ctx := context.Background()

	if !models.ValidMois(currentMois) {
		return 0, models.ErrInvalidArgument
	}

	updated, err := s.cotisations.MarkOverdue(ctx, currentMois)
	if err != nil {
		s.logger.Error("failed to mark overdue cotisations", slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	if updated > 0 {
		s.logger.Info("cotisations marked overdue", slog.Int64("count", updated))
	}

	return updated, nil
}

// memberName resolves a member's display name for audit entries; deleted
// members yield an empty name.
func (s *CotisationService) memberName(ctx context.Context, userID string) string {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	return user.FullName()
}
