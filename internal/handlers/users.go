package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/afo-asso/membership-api/internal/auth"
	"github.com/afo-asso/membership-api/internal/models"
	"github.com/afo-asso/membership-api/internal/services"
	pkghttp "github.com/afo-asso/membership-api/pkg/http"
	"github.com/go-chi/chi/v5"
)

// UserServiceInterface defines the member management operations the handler needs
type UserServiceInterface interface {
	GetByID(id string) (*models.User, error)
	List(page, limit int) ([]*models.User, error)
	Create(input services.CreateInput, actor *models.User, ip string) (*models.User, error)
	Update(id string, input services.UpdateInput, actor *models.User, ip string) (*models.User, error)
	Delete(id string, actor *models.User, ip string) error
}

// UserHandler handles member management HTTP requests
type UserHandler struct {
	service  UserServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserServiceInterface, ipConfig *pkghttp.IPConfig) *UserHandler {
	return &UserHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// CreateUserRequest represents the request body for creating a member directly
type CreateUserRequest struct {
	Nom            string `json:"nom" validate:"required,min=1"`
	Prenom         string `json:"prenom" validate:"required,min=1"`
	Num            string `json:"num" validate:"required,min=1"`
	Sexe           string `json:"sexe" validate:"required,oneof=Male Female"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	Role           string `json:"role" validate:"omitempty,oneof=membre bureau Admin finance"`
	PlanCotisation string `json:"plan_cotisation" validate:"required,oneof=mensuel trimestriel"`
}

// UpdateUserRequest represents the request body for updating a member
type UpdateUserRequest struct {
	Nom            *string `json:"nom" validate:"omitempty,min=1"`
	Prenom         *string `json:"prenom" validate:"omitempty,min=1"`
	Num            *string `json:"num" validate:"omitempty,min=1"`
	Sexe           *string `json:"sexe" validate:"omitempty,oneof=Male Female"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Statut         *string `json:"statut" validate:"omitempty,oneof=actif suspendu bani"`
	Role           *string `json:"role" validate:"omitempty,oneof=membre bureau Admin finance"`
	PlanCotisation *string `json:"plan_cotisation" validate:"omitempty,oneof=mensuel trimestriel"`
}

// UserResponse represents a member in HTTP responses. The password hash and
// reset code never leave the service.
type UserResponse struct {
	ID             string `json:"id"`
	Nom            string `json:"nom"`
	Prenom         string `json:"prenom"`
	Num            string `json:"num"`
	Sexe           string `json:"sexe"`
	Email          string `json:"email"`
	Statut         string `json:"statut"`
	Role           string `json:"role"`
	PlanCotisation string `json:"plan_cotisation"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// ListUsersResponse represents a list of members
type ListUsersResponse struct {
	Users []*UserResponse `json:"users"`
	Total int             `json:"total"`
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:             user.ID,
		Nom:            user.Nom,
		Prenom:         user.Prenom,
		Num:            user.Num,
		Sexe:           user.Sexe,
		Email:          user.Email,
		Statut:         user.Statut,
		Role:           user.Role,
		PlanCotisation: user.PlanCotisation,
		CreatedAt:      user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:      user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ListUsers retrieves members with pagination
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page := 1
	limit := 50

	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	users, err := h.service.List(page, limit)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	response := ListUsersResponse{
		Users: make([]*UserResponse, 0, len(users)),
		Total: len(users),
	}
	for _, user := range users {
		response.Users = append(response.Users, userModelToResponse(user))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetUser retrieves one member by ID
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	user, err := h.service.GetByID(userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Membre introuvable")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userModelToResponse(user))
}

// CreateUser adds a member directly, bypassing the adhesion workflow
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.Create(services.CreateInput{
		Nom:            req.Nom,
		Prenom:         req.Prenom,
		Num:            req.Num,
		Sexe:           req.Sexe,
		Email:          req.Email,
		Password:       req.Password,
		Role:           req.Role,
		PlanCotisation: req.PlanCotisation,
	}, actor, pkghttp.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Un membre avec cet email existe déjà")
		case errors.Is(err, models.ErrPasswordTooShort):
			pkghttp.WriteBadRequest(w, err.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(userModelToResponse(user))
}

// UpdateUser modifies a member profile, statut, or role
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.Update(userID, services.UpdateInput{
		Nom:            req.Nom,
		Prenom:         req.Prenom,
		Num:            req.Num,
		Sexe:           req.Sexe,
		Email:          req.Email,
		Statut:         req.Statut,
		Role:           req.Role,
		PlanCotisation: req.PlanCotisation,
	}, actor, pkghttp.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Membre introuvable")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Un membre avec cet email existe déjà")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userModelToResponse(user))
}

// DeleteUser removes a member and their cotisations
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	if err := h.service.Delete(userID, actor, pkghttp.ExtractClientIP(r, h.ipConfig)); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Membre introuvable")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
