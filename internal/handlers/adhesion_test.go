package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/afo-asso/membership-api/internal/models"
	"github.com/afo-asso/membership-api/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func requestWithURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestAdhesionHandler_Submit_Success(t *testing.T) {
	var gotInput services.SubmitInput
	mockService := &MockAdhesionService{
		SubmitFunc: func(input services.SubmitInput) (*models.AdhesionRequest, error) {
			gotInput = input
			return &models.AdhesionRequest{
				ID:     "req1",
				Email:  input.Email,
				Statut: models.DemandeEnAttente,
			}, nil
		},
	}

	handler := NewAdhesionHandler(mockService)

	body := bytes.NewBufferString(`{
		"nom": "Ba",
		"prenom": "Fatou",
		"num": "780000000",
		"sexe": "Female",
		"email": "fatou@example.com",
		"password": "motdepasse",
		"plan_cotisation": "mensuel"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/adhesion", body)
	rec := httptest.NewRecorder()

	handler.Submit(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "fatou@example.com", gotInput.Email)
	assert.Equal(t, "motdepasse", gotInput.Password)

	var resp AdhesionResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, models.DemandeEnAttente, resp.Statut)
}

func TestAdhesionHandler_Submit_ShortPassword(t *testing.T) {
	handler := NewAdhesionHandler(&MockAdhesionService{})

	body := bytes.NewBufferString(`{
		"nom": "Ba",
		"prenom": "Fatou",
		"num": "780000000",
		"sexe": "Female",
		"email": "fatou@example.com",
		"password": "court",
		"plan_cotisation": "mensuel"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/adhesion", body)
	rec := httptest.NewRecorder()

	handler.Submit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdhesionHandler_Submit_UnknownPlan(t *testing.T) {
	handler := NewAdhesionHandler(&MockAdhesionService{})

	body := bytes.NewBufferString(`{
		"nom": "Ba",
		"prenom": "Fatou",
		"num": "780000000",
		"sexe": "Female",
		"email": "fatou@example.com",
		"password": "motdepasse",
		"plan_cotisation": "annuel"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/adhesion", body)
	rec := httptest.NewRecorder()

	handler.Submit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdhesionHandler_Submit_DuplicateEmail(t *testing.T) {
	mockService := &MockAdhesionService{
		SubmitFunc: func(input services.SubmitInput) (*models.AdhesionRequest, error) {
			return nil, models.ErrConflict
		},
	}

	handler := NewAdhesionHandler(mockService)

	body := bytes.NewBufferString(`{
		"nom": "Ba",
		"prenom": "Fatou",
		"num": "780000000",
		"sexe": "Female",
		"email": "taken@example.com",
		"password": "motdepasse",
		"plan_cotisation": "mensuel"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/adhesion", body)
	rec := httptest.NewRecorder()

	handler.Submit(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdhesionHandler_ListRequests_FilterValidation(t *testing.T) {
	handler := NewAdhesionHandler(&MockAdhesionService{})

	req := httptest.NewRequest(http.MethodGet, "/admin/adhesions?statut=inconnu", nil)
	rec := httptest.NewRecorder()

	handler.ListRequests(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdhesionHandler_ListRequests_Success(t *testing.T) {
	mockService := &MockAdhesionService{
		ListFunc: func(statut string) ([]*models.AdhesionRequest, error) {
			return []*models.AdhesionRequest{
				{ID: "req1", Statut: models.DemandeEnAttente},
				{ID: "req2", Statut: models.DemandeEnAttente},
			}, nil
		},
	}

	handler := NewAdhesionHandler(mockService)

	req := httptest.NewRequest(http.MethodGet, "/admin/adhesions?statut=en_attente", nil)
	rec := httptest.NewRecorder()

	handler.ListRequests(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ListAdhesionsResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Total)
}

func TestAdhesionHandler_Approve_Success(t *testing.T) {
	admin := newTestMember("admin1", "admin@example.com", models.RoleAdmin)
	mockService := &MockAdhesionService{
		ApproveFunc: func(requestID string, a *models.User) (*models.User, error) {
			assert.Equal(t, "req1", requestID)
			assert.Equal(t, "admin1", a.ID)
			return newTestMember("user1", "fatou@example.com", models.RoleMembre), nil
		},
	}

	handler := NewAdhesionHandler(mockService)

	req := httptest.NewRequest(http.MethodPost, "/admin/adhesions/req1/approve", nil)
	req = requestWithURLParam(withUser(req, admin), "id", "req1")
	rec := httptest.NewRecorder()

	handler.Approve(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp UserResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, models.StatutActif, resp.Statut)
}

func TestAdhesionHandler_Approve_AlreadyProcessed(t *testing.T) {
	admin := newTestMember("admin1", "admin@example.com", models.RoleAdmin)
	mockService := &MockAdhesionService{
		ApproveFunc: func(requestID string, a *models.User) (*models.User, error) {
			return nil, models.ErrAlreadyProcessed
		},
	}

	handler := NewAdhesionHandler(mockService)

	req := httptest.NewRequest(http.MethodPost, "/admin/adhesions/req1/approve", nil)
	req = requestWithURLParam(withUser(req, admin), "id", "req1")
	rec := httptest.NewRecorder()

	handler.Approve(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdhesionHandler_Reject_PassesReason(t *testing.T) {
	admin := newTestMember("admin1", "admin@example.com", models.RoleAdmin)

	var gotRaison string
	mockService := &MockAdhesionService{
		RejectFunc: func(requestID string, a *models.User, raison string) (*models.AdhesionRequest, error) {
			gotRaison = raison
			return &models.AdhesionRequest{ID: requestID, Statut: models.DemandeRefusee}, nil
		},
	}

	handler := NewAdhesionHandler(mockService)

	body := bytes.NewBufferString(`{"raison":"Dossier incomplet"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/adhesions/req1/reject", body)
	req = requestWithURLParam(withUser(req, admin), "id", "req1")
	rec := httptest.NewRecorder()

	handler.Reject(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dossier incomplet", gotRaison)
}

func TestAdhesionHandler_Reject_EmptyBodyUsesDefault(t *testing.T) {
	admin := newTestMember("admin1", "admin@example.com", models.RoleAdmin)

	var gotRaison string
	mockService := &MockAdhesionService{
		RejectFunc: func(requestID string, a *models.User, raison string) (*models.AdhesionRequest, error) {
			gotRaison = raison
			return &models.AdhesionRequest{ID: requestID, Statut: models.DemandeRefusee}, nil
		},
	}

	handler := NewAdhesionHandler(mockService)

	req := httptest.NewRequest(http.MethodPost, "/admin/adhesions/req1/reject", nil)
	req = requestWithURLParam(withUser(req, admin), "id", "req1")
	rec := httptest.NewRecorder()

	handler.Reject(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	// The service fills in the default reason for an empty string.
	assert.Equal(t, "", gotRaison)
}

func TestAdhesionHandler_DeleteRequest_NotFound(t *testing.T) {
	mockService := &MockAdhesionService{
		DeleteFunc: func(requestID string) error {
			return models.ErrNotFound
		},
	}

	handler := NewAdhesionHandler(mockService)

	req := httptest.NewRequest(http.MethodDelete, "/admin/adhesions/missing", nil)
	req = requestWithURLParam(req, "id", "missing")
	rec := httptest.NewRecorder()

	handler.DeleteRequest(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
