package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/afo-asso/membership-api/internal/models"
	pkgauth "github.com/afo-asso/membership-api/pkg/auth"
	pkglogger "github.com/afo-asso/membership-api/pkg/logger"
)

// AdhesionRepository defines the interface for adhesion request data access
type AdhesionRepository interface {
	GetByID(ctx context.Context, id string) (*models.AdhesionRequest, error)
	HasPendingForEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, statut string) ([]*models.AdhesionRequest, error)
	Create(ctx context.Context, req *models.AdhesionRequest) (*models.AdhesionRequest, error)
	MarkProcessed(ctx context.Context, id, statut, adminID string, raison *string) (*models.AdhesionRequest, error)
	Delete(ctx context.Context, id string) error
}

// AdhesionService turns a public signup submission into a pending request,
// then into an approved member or a rejected terminal record.
type AdhesionService struct {
	requests AdhesionRepository
	users    UserRepository
	email    EmailService
	logger   *slog.Logger
}

// NewAdhesionService creates a new AdhesionService
func NewAdhesionService(requests AdhesionRepository, users UserRepository, email EmailService, logger *slog.Logger) *AdhesionService {
	return &AdhesionService{
		requests: requests,
		users:    users,
		email:    email,
		logger:   logger,
	}
}

// SubmitInput holds the public signup fields. Format constraints are
// validated at the handler boundary; the service enforces uniqueness.
type SubmitInput struct {
	Nom            string
	Prenom         string
	Num            string
	Sexe           string
	Email          string
	Password       string
	PlanCotisation string
}

// Submit registers a pending adhesion request. The password is hashed before
// storage; the request record never holds plaintext.
func (s *AdhesionService) Submit(input SubmitInput) (*models.AdhesionRequest, error) {
	ctx := context.Background()

	email := strings.ToLower(strings.TrimSpace(input.Email))

	// An email already attached to a member cannot apply again.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		s.logger.Info("adhesion submit rejected: email belongs to a member",
			slog.String("email", pkglogger.SanitizedEmail(email)))
		return nil, models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check member email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	pending, err := s.requests.HasPendingForEmail(ctx, email)
	if err != nil {
		s.logger.Error("failed to check pending requests", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if pending {
		s.logger.Info("adhesion submit rejected: request already pending",
			slog.String("email", pkglogger.SanitizedEmail(email)))
		return nil, models.ErrConflict
	}

	hash, err := pkgauth.HashPassword(input.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	request := &models.AdhesionRequest{
		Nom:            strings.TrimSpace(input.Nom),
		Prenom:         strings.TrimSpace(input.Prenom),
		Num:            strings.TrimSpace(input.Num),
		Sexe:           input.Sexe,
		Email:          email,
		PasswordHash:   hash,
		PlanCotisation: input.PlanCotisation,
	}

	created, err := s.requests.Create(ctx, request)
	if err != nil {
		s.logger.Error("failed to create adhesion request", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("adhesion request submitted", slog.String("request_id", created.ID))
	return created, nil
}

// List returns requests newest-first, optionally filtered by statut.
func (s *AdhesionService) List(statut string) ([]*models.AdhesionRequest, error) {
	ctx := context.Background()

	requests, err := s.requests.List(ctx, statut)
	if err != nil {
		s.logger.Error("failed to list adhesion requests", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return requests, nil
}

// Approve creates a member from a pending request and marks the request
// terminal. The stored password hash is carried over unchanged. A concurrent
// registration of the same email surfaces as ErrConflict from the unique
// index on users.email.
func (s *AdhesionService) Approve(requestID string, admin *models.User) (*models.User, error) {
	ctx := context.Background()

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get adhesion request", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !request.Pending() {
		return nil, models.ErrAlreadyProcessed
	}

	user := &models.User{
		Nom:            request.Nom,
		Prenom:         request.Prenom,
		Num:            request.Num,
		Sexe:           request.Sexe,
		Email:          request.Email,
		PasswordHash:   request.PasswordHash, // already hashed, never re-hashed
		PlanCotisation: request.PlanCotisation,
		Statut:         models.StatutActif,
		Role:           models.RoleMembre,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user from request",
			slog.String("request_id", requestID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if _, err := s.requests.MarkProcessed(ctx, requestID, models.DemandeApprouvee, admin.ID, nil); err != nil {
		// The member exists; losing the terminal marker is recoverable and
		// preferable to a member without an account.
		s.logger.Error("failed to mark request approved",
			slog.String("request_id", requestID), slog.Any("error", err))
	}

	// Best-effort welcome email; failure never affects the approval.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
		defer cancel()
		if err := s.email.SendConfirmation(ctx, created.Email, created.Nom, created.Prenom); err != nil {
			s.logger.Warn("confirmation email not sent",
				slog.String("email", pkglogger.SanitizedEmail(created.Email)))
		}
	}()

	s.logger.Info("adhesion request approved",
		slog.String("request_id", requestID),
		slog.String("user_id", created.ID),
		slog.String("admin_id", admin.ID))

	return created, nil
}

// Reject marks a pending request refused with the given reason.
func (s *AdhesionService) Reject(requestID string, admin *models.User, raison string) (*models.AdhesionRequest, error) {
	ctx := context.Background()

	if raison == "" {
		raison = models.DefaultRaisonRefus
	}

	request, err := s.requests.MarkProcessed(ctx, requestID, models.DemandeRefusee, admin.ID, &raison)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrAlreadyProcessed):
			return nil, err
		}
		s.logger.Error("failed to reject adhesion request",
			slog.String("request_id", requestID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("adhesion request rejected",
		slog.String("request_id", requestID), slog.String("admin_id", admin.ID))

	return request, nil
}

// Delete removes a request in any state.
func (s *AdhesionService) Delete(requestID string) error {
	ctx := context.Background()

	err := s.requests.Delete(ctx, requestID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete adhesion request",
			slog.String("request_id", requestID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("adhesion request deleted", slog.String("request_id", requestID))
	return nil
}
