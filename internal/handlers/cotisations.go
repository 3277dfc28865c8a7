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

// CotisationServiceInterface defines the dues operations the handler needs
type CotisationServiceInterface interface {
	CreateOne(userID, mois string, montant float64, actor *models.User, ip string) (*models.Cotisation, error)
	MarkPaid(id, methode string, actor *models.User, ip string) (*models.Cotisation, error)
	Update(id string, input services.CotisationUpdateInput, actor *models.User, ip string) (*models.Cotisation, error)
	DeleteOne(id string, actor *models.User, ip string) error
	GenerateForAllActive(mois string, montant float64, actor *models.User, ip string) (*services.GenerateResult, error)
	GenerateForSelected(userIDs []string, mois string, montant float64, actor *models.User, ip string) (*services.GenerateResult, error)
	DeleteAll(confirm bool, actor *models.User, ip string) (int64, error)
	ListByUser(userID string) ([]*models.Cotisation, error)
	ListAll() ([]*models.Cotisation, error)
}

// CotisationHandler handles dues HTTP endpoints
type CotisationHandler struct {
	service  CotisationServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewCotisationHandler creates a new CotisationHandler
func NewCotisationHandler(service CotisationServiceInterface, ipConfig *pkghttp.IPConfig) *CotisationHandler {
	return &CotisationHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// CreateCotisationRequest represents the request body for a single cotisation
type CreateCotisationRequest struct {
	UserID  string  `json:"user_id" validate:"required,uuid"`
	Mois    string  `json:"mois" validate:"required"`
	Montant float64 `json:"montant" validate:"required,gt=0"`
}

// MarkPaidRequest represents the request body for settling a cotisation
type MarkPaidRequest struct {
	Methode string `json:"methode" validate:"omitempty,oneof=espèces virement carte mobile"`
}

// UpdateCotisationRequest represents the request body for editing a cotisation
type UpdateCotisationRequest struct {
	Montant *float64 `json:"montant" validate:"omitempty,gt=0"`
	Statut  *string  `json:"statut" validate:"omitempty,oneof=payé en_attente en_retard"`
	Methode *string  `json:"methode" validate:"omitempty,oneof=espèces virement carte mobile"`
}

// GenerateRequest represents the request body for bulk generation. With
// UserIDs present only those members are billed, otherwise every active one.
type GenerateRequest struct {
	Mois    string   `json:"mois" validate:"required"`
	Montant float64  `json:"montant" validate:"omitempty,gt=0"`
	UserIDs []string `json:"user_ids" validate:"omitempty,dive,uuid"`
}

// DeleteAllRequest represents the confirmation body for a full purge
type DeleteAllRequest struct {
	Confirm bool `json:"confirm"`
}

// CotisationResponse represents a cotisation in HTTP responses
type CotisationResponse struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	Mois            string  `json:"mois"`
	Montant         float64 `json:"montant"`
	Statut          string  `json:"statut"`
	DatePaiement    *string `json:"date_paiement,omitempty"`
	MethodePaiement *string `json:"methode_paiement,omitempty"`
	UserNom         string  `json:"user_nom,omitempty"`
	UserPrenom      string  `json:"user_prenom,omitempty"`
	UserEmail       string  `json:"user_email,omitempty"`
}

// ListCotisationsResponse represents a list of cotisations
type ListCotisationsResponse struct {
	Cotisations []*CotisationResponse `json:"cotisations"`
	Total       int                   `json:"total"`
}

// GenerateStats summarizes a bulk generation
type GenerateStats struct {
	Creees     int `json:"creees"`
	Existantes int `json:"existantes"`
	Erreurs    int `json:"erreurs"`
}

// GenerateResponse reports the outcome of a bulk generation: the records
// actually created, the members skipped because the month was already
// billed, and per-member failures
type GenerateResponse struct {
	Mois            string                   `json:"mois"`
	Montant         float64                  `json:"montant"`
	Created         []*CotisationResponse    `json:"created"`
	AlreadyExisting []string                 `json:"already_existing"`
	Errors          []services.GenerateError `json:"errors"`
	Stats           GenerateStats            `json:"stats"`
}

// DeleteAllResponse reports how many records a purge removed
type DeleteAllResponse struct {
	Deleted int64 `json:"deleted"`
}

func cotisationModelToResponse(c *models.Cotisation) *CotisationResponse {
	resp := &CotisationResponse{
		ID:              c.ID,
		UserID:          c.UserID,
		Mois:            c.Mois,
		Montant:         c.Montant,
		Statut:          c.Statut,
		MethodePaiement: c.MethodePaiement,
		UserNom:         c.UserNom,
		UserPrenom:      c.UserPrenom,
		UserEmail:       c.UserEmail,
	}
	if c.DatePaiement != nil {
		formatted := c.DatePaiement.Format("2006-01-02T15:04:05Z07:00")
		resp.DatePaiement = &formatted
	}
	return resp
}

func writeCotisationList(w http.ResponseWriter, cotisations []*models.Cotisation) {
	response := ListCotisationsResponse{
		Cotisations: make([]*CotisationResponse, 0, len(cotisations)),
		Total:       len(cotisations),
	}
	for _, c := range cotisations {
		response.Cotisations = append(response.Cotisations, cotisationModelToResponse(c))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// CreateCotisation records a single dues obligation
func (h *CotisationHandler) CreateCotisation(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req CreateCotisationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	created, err := h.service.CreateOne(req.UserID, req.Mois, req.Montant, actor, pkghttp.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidArgument):
			pkghttp.WriteBadRequest(w, "Mois (AAAA-MM) et montant positif requis")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Membre introuvable")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Une cotisation existe déjà pour ce mois")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(cotisationModelToResponse(created))
}

// MarkPaid settles a pending or overdue cotisation
func (h *CotisationHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	cotisationID := chi.URLParam(r, "id")
	if cotisationID == "" {
		pkghttp.WriteBadRequest(w, "Cotisation ID is required")
		return
	}

	var req MarkPaidRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	updated, err := h.service.MarkPaid(cotisationID, req.Methode, actor, pkghttp.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Cotisation introuvable")
		case errors.Is(err, models.ErrInvalidArgument):
			pkghttp.WriteBadRequest(w, "Méthode de paiement inconnue")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cotisationModelToResponse(updated))
}

// UpdateCotisation edits montant, statut, or payment method
func (h *CotisationHandler) UpdateCotisation(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	cotisationID := chi.URLParam(r, "id")
	if cotisationID == "" {
		pkghttp.WriteBadRequest(w, "Cotisation ID is required")
		return
	}

	var req UpdateCotisationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	updated, err := h.service.Update(cotisationID, services.CotisationUpdateInput{
		Montant: req.Montant,
		Statut:  req.Statut,
		Methode: req.Methode,
	}, actor, pkghttp.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Cotisation introuvable")
		case errors.Is(err, models.ErrInvalidArgument):
			pkghttp.WriteBadRequest(w, "Champs de cotisation invalides")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cotisationModelToResponse(updated))
}

// DeleteCotisation removes a single cotisation
func (h *CotisationHandler) DeleteCotisation(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	cotisationID := chi.URLParam(r, "id")
	if cotisationID == "" {
		pkghttp.WriteBadRequest(w, "Cotisation ID is required")
		return
	}

	if err := h.service.DeleteOne(cotisationID, actor, pkghttp.ExtractClientIP(r, h.ipConfig)); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Cotisation introuvable")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Generate creates pending cotisations in bulk, for every active member or
// for a selected set
func (h *CotisationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ip := pkghttp.ExtractClientIP(r, h.ipConfig)

	var result *services.GenerateResult
	var err error
	if len(req.UserIDs) > 0 {
		result, err = h.service.GenerateForSelected(req.UserIDs, req.Mois, req.Montant, actor, ip)
	} else {
		result, err = h.service.GenerateForAllActive(req.Mois, req.Montant, actor, ip)
	}
	if err != nil {
		if errors.Is(err, models.ErrInvalidArgument) {
			pkghttp.WriteBadRequest(w, "Mois (AAAA-MM), montant positif et sélection non vide requis")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	created := make([]*CotisationResponse, 0, len(result.Created))
	for _, c := range result.Created {
		created = append(created, cotisationModelToResponse(c))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(GenerateResponse{
		Mois:            result.Mois,
		Montant:         result.Montant,
		Created:         created,
		AlreadyExisting: result.AlreadyExisting,
		Errors:          result.Errors,
		Stats: GenerateStats{
			Creees:     len(result.Created),
			Existantes: len(result.AlreadyExisting),
			Erreurs:    len(result.Errors),
		},
	})
}

// DeleteAll purges every cotisation after explicit confirmation
func (h *CotisationHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req DeleteAllRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	deleted, err := h.service.DeleteAll(req.Confirm, actor, pkghttp.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		if errors.Is(err, models.ErrConfirmationRequired) {
			pkghttp.WriteBadRequest(w, "Confirmation requise pour supprimer toutes les cotisations")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DeleteAllResponse{Deleted: deleted})
}

// ListAll retrieves every cotisation with member identity
func (h *CotisationHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	cotisations, err := h.service.ListAll()
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeCotisationList(w, cotisations)
}

// ListByUser retrieves one member's cotisations
func (h *CotisationHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	cotisations, err := h.service.ListByUser(userID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeCotisationList(w, cotisations)
}

// ListMine retrieves the authenticated member's own cotisations
func (h *CotisationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	cotisations, err := h.service.ListByUser(user.ID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeCotisationList(w, cotisations)
}
