package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/afo-asso/membership-api/internal/auth"
	"github.com/afo-asso/membership-api/internal/models"
	"github.com/afo-asso/membership-api/internal/services"
	pkghttp "github.com/afo-asso/membership-api/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AdhesionServiceInterface defines the adhesion workflow operations the handler needs
type AdhesionServiceInterface interface {
	Submit(input services.SubmitInput) (*models.AdhesionRequest, error)
	List(statut string) ([]*models.AdhesionRequest, error)
	Approve(requestID string, admin *models.User) (*models.User, error)
	Reject(requestID string, admin *models.User, raison string) (*models.AdhesionRequest, error)
	Delete(requestID string) error
}

// AdhesionHandler handles adhesion request HTTP endpoints
type AdhesionHandler struct {
	service AdhesionServiceInterface
}

// NewAdhesionHandler creates a new AdhesionHandler
func NewAdhesionHandler(service AdhesionServiceInterface) *AdhesionHandler {
	return &AdhesionHandler{
		service: service,
	}
}

// SubmitRequest represents the public signup request body
type SubmitRequest struct {
	Nom            string `json:"nom" validate:"required,min=1"`
	Prenom         string `json:"prenom" validate:"required,min=1"`
	Num            string `json:"num" validate:"required,min=1"`
	Sexe           string `json:"sexe" validate:"required,oneof=Male Female"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	PlanCotisation string `json:"plan_cotisation" validate:"required,oneof=mensuel trimestriel"`
}

// RejectRequest represents the request body for a rejection
type RejectRequest struct {
	Raison string `json:"raison"`
}

// AdhesionResponse represents an adhesion request in HTTP responses
type AdhesionResponse struct {
	ID             string  `json:"id"`
	Nom            string  `json:"nom"`
	Prenom         string  `json:"prenom"`
	Num            string  `json:"num"`
	Sexe           string  `json:"sexe"`
	Email          string  `json:"email"`
	PlanCotisation string  `json:"plan_cotisation"`
	Statut         string  `json:"statut"`
	DateDemande    string  `json:"date_demande"`
	TraiteParNom   *string `json:"traite_par_nom,omitempty"`
	RaisonRefus    *string `json:"raison_refus,omitempty"`
}

// ListAdhesionsResponse represents a list of adhesion requests
type ListAdhesionsResponse struct {
	Requests []*AdhesionResponse `json:"requests"`
	Total    int                 `json:"total"`
}

func adhesionModelToResponse(req *models.AdhesionRequest) *AdhesionResponse {
	return &AdhesionResponse{
		ID:             req.ID,
		Nom:            req.Nom,
		Prenom:         req.Prenom,
		Num:            req.Num,
		Sexe:           req.Sexe,
		Email:          req.Email,
		PlanCotisation: req.PlanCotisation,
		Statut:         req.Statut,
		DateDemande:    req.DateDemande.Format("2006-01-02T15:04:05Z07:00"),
		TraiteParNom:   req.TraiteParNom,
		RaisonRefus:    req.RaisonRefus,
	}
}

// Submit accepts a public membership application
func (h *AdhesionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	created, err := h.service.Submit(services.SubmitInput{
		Nom:            req.Nom,
		Prenom:         req.Prenom,
		Num:            req.Num,
		Sexe:           req.Sexe,
		Email:          req.Email,
		Password:       req.Password,
		PlanCotisation: req.PlanCotisation,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteConflict(w, "Un compte ou une demande existe déjà pour cet email")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(adhesionModelToResponse(created))
}

// ListRequests retrieves adhesion requests, optionally filtered by statut
func (h *AdhesionHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	statut := r.URL.Query().Get("statut")
	if statut != "" {
		switch statut {
		case models.DemandeEnAttente, models.DemandeApprouvee, models.DemandeRefusee:
		default:
			pkghttp.WriteBadRequest(w, "Statut de filtre inconnu")
			return
		}
	}

	requests, err := h.service.List(statut)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	response := ListAdhesionsResponse{
		Requests: make([]*AdhesionResponse, 0, len(requests)),
		Total:    len(requests),
	}
	for _, req := range requests {
		response.Requests = append(response.Requests, adhesionModelToResponse(req))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Approve turns a pending request into an active member
func (h *AdhesionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	admin := auth.GetUserFromContext(r)
	if admin == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		pkghttp.WriteBadRequest(w, "Request ID is required")
		return
	}

	user, err := h.service.Approve(requestID, admin)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Demande introuvable")
		case errors.Is(err, models.ErrAlreadyProcessed):
			pkghttp.WriteConflict(w, "Demande déjà traitée")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Un membre avec cet email existe déjà")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(userModelToResponse(user))
}

// Reject marks a pending request refused
func (h *AdhesionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	admin := auth.GetUserFromContext(r)
	if admin == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		pkghttp.WriteBadRequest(w, "Request ID is required")
		return
	}

	// The body is optional: omitting it falls back to the default reason.
	var req RejectRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	request, err := h.service.Reject(requestID, admin, req.Raison)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Demande introuvable")
		case errors.Is(err, models.ErrAlreadyProcessed):
			pkghttp.WriteConflict(w, "Demande déjà traitée")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(adhesionModelToResponse(request))
}

// DeleteRequest removes an adhesion request record
func (h *AdhesionHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		pkghttp.WriteBadRequest(w, "Request ID is required")
		return
	}

	if err := h.service.Delete(requestID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Demande introuvable")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
