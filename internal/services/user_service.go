package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/afo-asso/membership-api/internal/auth"
	"github.com/afo-asso/membership-api/internal/models"
	pkgauth "github.com/afo-asso/membership-api/pkg/auth"
	pkglogger "github.com/afo-asso/membership-api/pkg/logger"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	ListActiveMembers(ctx context.Context) ([]*models.User, error)
	ListActiveMembersByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// UserService handles authentication and member account management.
type UserService struct {
	users    UserRepository
	audit    *AuditService
	email    EmailService
	tokens   *auth.TokenManager
	security *pkglogger.SecurityLogger
	resetTTL time.Duration
	logger   *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(users UserRepository, audit *AuditService, email EmailService, tokens *auth.TokenManager, security *pkglogger.SecurityLogger, resetTTL time.Duration, logger *slog.Logger) *UserService {
	return &UserService{
		users:    users,
		audit:    audit,
		email:    email,
		tokens:   tokens,
		security: security,
		resetTTL: resetTTL,
		logger:   logger,
	}
}

// Login authenticates a member and returns a signed token. A wrong email and
// a wrong password produce the same ErrUnauthorized; suspended and banned
// accounts authenticate but are refused with ErrForbidden.
func (s *UserService) Login(email, password, ip string) (string, *models.User, error) {
	ctx := context.Background()

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.security.LogAuthAttempt(pkglogger.SecurityEvent{
				EventType:     "login",
				Email:         email,
				IPAddress:     ip,
				Success:       false,
				FailureReason: "unknown email",
			})
			return "", nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to look up user for login", slog.Any("error", err))
		return "", nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.security.LogAuthAttempt(pkglogger.SecurityEvent{
			EventType:     "login",
			UserID:        user.ID,
			Email:         email,
			IPAddress:     ip,
			Success:       false,
			FailureReason: "invalid password",
		})
		return "", nil, models.ErrUnauthorized
	}

	if user.Statut != models.StatutActif {
		s.security.LogAuthAttempt(pkglogger.SecurityEvent{
			EventType:     "login",
			UserID:        user.ID,
			Email:         email,
			IPAddress:     ip,
			Success:       false,
			FailureReason: "account " + user.Statut,
		})
		return "", nil, models.ErrForbidden
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate token", slog.Any("error", err))
		return "", nil, models.ErrInternalServer
	}

	s.security.LogAuthAttempt(pkglogger.SecurityEvent{
		EventType: "login",
		UserID:    user.ID,
		Email:     email,
		IPAddress: ip,
		Success:   true,
	})

	return token, user, nil
}

// GetByID returns one member.
func (s *UserService) GetByID(id string) (*models.User, error) {
	ctx := context.Background()

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return user, nil
}

// List returns members ordered by creation date, newest first.
func (s *UserService) List(page, limit int) ([]*models.User, error) {
	ctx := context.Background()

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	users, err := s.users.List(ctx, limit, (page-1)*limit)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return users, nil
}

// CreateInput holds the fields an administrator sets when adding a member
// directly, bypassing the adhesion workflow.
type CreateInput struct {
	Nom            string
	Prenom         string
	Num            string
	Sexe           string
	Email          string
	Password       string
	Role           string
	PlanCotisation string
}

// Create adds a member directly. Used by administrators for accounts that do
// not go through the public signup flow (bureau, finance).
func (s *UserService) Create(input CreateInput, actor *models.User, ip string) (*models.User, error) {
	ctx := context.Background()

	if err := pkgauth.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(input.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	role := input.Role
	if role == "" {
		role = models.RoleMembre
	}

	user := &models.User{
		Nom:            strings.TrimSpace(input.Nom),
		Prenom:         strings.TrimSpace(input.Prenom),
		Num:            strings.TrimSpace(input.Num),
		Sexe:           input.Sexe,
		Email:          strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash:   hash,
		Statut:         models.StatutActif,
		Role:           role,
		PlanCotisation: input.PlanCotisation,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.Log(ctx, Entry{
		Actor:       actor,
		Action:      models.ActionMembreAjoute,
		TargetType:  models.TargetUser,
		TargetID:    created.ID,
		TargetName:  created.FullName(),
		Description: "Ajout du membre " + created.FullName(),
		Details:     models.LogDetails{"email": created.Email, "role": created.Role},
		IPAddress:   ip,
	})

	// Plain members get the same welcome email as approved candidates.
	if created.Role == models.RoleMembre {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
			defer cancel()
			if err := s.email.SendConfirmation(ctx, created.Email, created.Nom, created.Prenom); err != nil {
				s.logger.Warn("confirmation email not sent",
					slog.String("email", pkglogger.SanitizedEmail(created.Email)))
			}
		}()
	}

	return created, nil
}

// UpdateInput holds the mutable profile fields. Nil pointers leave the
// current value untouched.
type UpdateInput struct {
	Nom            *string
	Prenom         *string
	Num            *string
	Sexe           *string
	Email          *string
	Statut         *string
	Role           *string
	PlanCotisation *string
}

// Update modifies a member profile. Statut transitions get their own audit
// action so suspensions and bans stand out in the log.
func (s *UserService) Update(id string, input UpdateInput, actor *models.User, ip string) (*models.User, error) {
	ctx := context.Background()

	current, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user for update", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	previousStatut := current.Statut

	if input.Nom != nil {
		current.Nom = strings.TrimSpace(*input.Nom)
	}
	if input.Prenom != nil {
		current.Prenom = strings.TrimSpace(*input.Prenom)
	}
	if input.Num != nil {
		current.Num = strings.TrimSpace(*input.Num)
	}
	if input.Sexe != nil {
		current.Sexe = *input.Sexe
	}
	if input.Email != nil {
		current.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.Statut != nil {
		current.Statut = *input.Statut
	}
	if input.Role != nil {
		current.Role = *input.Role
	}
	if input.PlanCotisation != nil {
		current.PlanCotisation = *input.PlanCotisation
	}

	updated, err := s.users.Update(ctx, id, current)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to update user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	action := models.ActionMembreModifie
	description := "Modification du membre " + updated.FullName()
	if updated.Statut != previousStatut {
		switch updated.Statut {
		case models.StatutSuspendu:
			action = models.ActionMembreSuspendu
			description = "Suspension du membre " + updated.FullName()
		case models.StatutBani:
			action = models.ActionMembreBanni
			description = "Bannissement du membre " + updated.FullName()
		case models.StatutActif:
			action = models.ActionMembreReactive
			description = "Réactivation du membre " + updated.FullName()
		}
	}

	s.audit.Log(ctx, Entry{
		Actor:       actor,
		Action:      action,
		TargetType:  models.TargetUser,
		TargetID:    updated.ID,
		TargetName:  updated.FullName(),
		Description: description,
		Details:     models.LogDetails{"statut": updated.Statut, "statut_precedent": previousStatut},
		IPAddress:   ip,
	})

	return updated, nil
}

// Delete removes a member and, through the schema, all their cotisations.
func (s *UserService) Delete(id string, actor *models.User, ip string) error {
	ctx := context.Background()

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user for deletion", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.Log(ctx, Entry{
		Actor:       actor,
		Action:      models.ActionMembreSupprime,
		TargetType:  models.TargetUser,
		TargetID:    user.ID,
		TargetName:  user.FullName(),
		Description: "Suppression du membre " + user.FullName(),
		Details:     models.LogDetails{"email": user.Email},
		IPAddress:   ip,
	})

	return nil
}

// ChangePassword rotates a member's own password after verifying the
// current one.
func (s *UserService) ChangePassword(user *models.User, currentPassword, newPassword, ip string) error {
	ctx := context.Background()

	if err := pkgauth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		s.security.LogPasswordChange(user.ID, ip, false)
		return models.ErrUnauthorized
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.security.LogPasswordChange(user.ID, ip, true)
	return nil
}

// RequestReset issues a 6-digit reset code valid for a short window and
// emails it. It returns nil for unknown emails so the endpoint leaks no
// account existence.
func (s *UserService) RequestReset(email, ip string) error {
	ctx := context.Background()

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.security.LogAuthAttempt(pkglogger.SecurityEvent{
				EventType:     "password_reset_request",
				Email:         email,
				IPAddress:     ip,
				Success:       false,
				FailureReason: "unknown email",
			})
			return nil
		}
		s.logger.Error("failed to look up user for reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	code, err := pkgauth.GenerateResetCode()
	if err != nil {
		s.logger.Error("failed to generate reset code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := time.Now().Add(s.resetTTL)
	if err := s.users.SetResetCode(ctx, user.ID, pkgauth.HashResetCode(code), expiresAt); err != nil {
		s.logger.Error("failed to store reset code", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Dispatch is best-effort: the response stays success-shaped so the
	// endpoint leaks no deliverability signal. The code is stored and
	// the member can simply ask again.
	if err := s.email.SendResetCode(ctx, user.Email, user.Prenom, code); err != nil {
		s.logger.Error("failed to send reset code email",
			slog.String("email", pkglogger.SanitizedEmail(user.Email)))
	}

	s.security.LogAuthAttempt(pkglogger.SecurityEvent{
		EventType: "password_reset_request",
		UserID:    user.ID,
		Email:     email,
		IPAddress: ip,
		Success:   true,
	})

	return nil
}

// ResetWithCode completes a reset: the code must match and be unexpired
// before the new password is accepted. A successful reset consumes the code.
func (s *UserService) ResetWithCode(email, code, newPassword, ip string) error {
	ctx := context.Background()

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unlike RequestReset, this failure stays distinguishable:
			// completing a reset already requires a valid code, so the
			// response leaks nothing a code holder does not know.
			return models.ErrNotFound
		}
		s.logger.Error("failed to look up user for reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if user.ResetCodeHash == nil || user.ResetCodeExpiresAt == nil {
		return models.ErrResetCodeInvalid
	}
	if time.Now().After(*user.ResetCodeExpiresAt) {
		return models.ErrResetCodeExpired
	}
	if pkgauth.HashResetCode(code) != *user.ResetCodeHash {
		s.security.LogAuthAttempt(pkglogger.SecurityEvent{
			EventType:     "password_reset",
			UserID:        user.ID,
			Email:         email,
			IPAddress:     ip,
			Success:       false,
			FailureReason: "invalid code",
		})
		return models.ErrResetCodeInvalid
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	// UpdatePassword clears the stored code in the same statement.
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.security.LogPasswordChange(user.ID, ip, true)
	return nil
}
