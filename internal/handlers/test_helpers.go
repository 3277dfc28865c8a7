package handlers

import (
	"context"
	"time"

	"github.com/afo-asso/membership-api/internal/models"
	"github.com/afo-asso/membership-api/internal/repositories"
	"github.com/afo-asso/membership-api/internal/services"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc          func(email, password, ip string) (string, *models.User, error)
	ChangePasswordFunc func(user *models.User, currentPassword, newPassword, ip string) error
	RequestResetFunc   func(email, ip string) error
	ResetWithCodeFunc  func(email, code, newPassword, ip string) error
}

func (m *MockAuthService) Login(email, password, ip string) (string, *models.User, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(email, password, ip)
	}
	return "", nil, models.ErrUnauthorized
}

func (m *MockAuthService) ChangePassword(user *models.User, currentPassword, newPassword, ip string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(user, currentPassword, newPassword, ip)
	}
	return nil
}

func (m *MockAuthService) RequestReset(email, ip string) error {
	if m.RequestResetFunc != nil {
		return m.RequestResetFunc(email, ip)
	}
	return nil
}

func (m *MockAuthService) ResetWithCode(email, code, newPassword, ip string) error {
	if m.ResetWithCodeFunc != nil {
		return m.ResetWithCodeFunc(email, code, newPassword, ip)
	}
	return nil
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	GetByIDFunc func(id string) (*models.User, error)
	ListFunc    func(page, limit int) ([]*models.User, error)
	CreateFunc  func(input services.CreateInput, actor *models.User, ip string) (*models.User, error)
	UpdateFunc  func(id string, input services.UpdateInput, actor *models.User, ip string) (*models.User, error)
	DeleteFunc  func(id string, actor *models.User, ip string) error
}

func (m *MockUserService) GetByID(id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) List(page, limit int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(page, limit)
	}
	return []*models.User{}, nil
}

func (m *MockUserService) Create(input services.CreateInput, actor *models.User, ip string) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(input, actor, ip)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserService) Update(id string, input services.UpdateInput, actor *models.User, ip string) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(id, input, actor, ip)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserService) Delete(id string, actor *models.User, ip string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(id, actor, ip)
	}
	return nil
}

// MockAdhesionService implements AdhesionServiceInterface for testing
type MockAdhesionService struct {
	SubmitFunc  func(input services.SubmitInput) (*models.AdhesionRequest, error)
	ListFunc    func(statut string) ([]*models.AdhesionRequest, error)
	ApproveFunc func(requestID string, admin *models.User) (*models.User, error)
	RejectFunc  func(requestID string, admin *models.User, raison string) (*models.AdhesionRequest, error)
	DeleteFunc  func(requestID string) error
}

func (m *MockAdhesionService) Submit(input services.SubmitInput) (*models.AdhesionRequest, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAdhesionService) List(statut string) ([]*models.AdhesionRequest, error) {
	if m.ListFunc != nil {
		return m.ListFunc(statut)
	}
	return []*models.AdhesionRequest{}, nil
}

func (m *MockAdhesionService) Approve(requestID string, admin *models.User) (*models.User, error) {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(requestID, admin)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAdhesionService) Reject(requestID string, admin *models.User, raison string) (*models.AdhesionRequest, error) {
	if m.RejectFunc != nil {
		return m.RejectFunc(requestID, admin, raison)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAdhesionService) Delete(requestID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(requestID)
	}
	return nil
}

// MockCotisationService implements CotisationServiceInterface for testing
type MockCotisationService struct {
	CreateOneFunc            func(userID, mois string, montant float64, actor *models.User, ip string) (*models.Cotisation, error)
	MarkPaidFunc             func(id, methode string, actor *models.User, ip string) (*models.Cotisation, error)
	UpdateFunc               func(id string, input services.CotisationUpdateInput, actor *models.User, ip string) (*models.Cotisation, error)
	DeleteOneFunc            func(id string, actor *models.User, ip string) error
	GenerateForAllActiveFunc func(mois string, montant float64, actor *models.User, ip string) (*services.GenerateResult, error)
	GenerateForSelectedFunc  func(userIDs []string, mois string, montant float64, actor *models.User, ip string) (*services.GenerateResult, error)
	DeleteAllFunc            func(confirm bool, actor *models.User, ip string) (int64, error)
	ListByUserFunc           func(userID string) ([]*models.Cotisation, error)
	ListAllFunc              func() ([]*models.Cotisation, error)
}

func (m *MockCotisationService) CreateOne(userID, mois string, montant float64, actor *models.User, ip string) (*models.Cotisation, error) {
	if m.CreateOneFunc != nil {
		return m.CreateOneFunc(userID, mois, montant, actor, ip)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCotisationService) MarkPaid(id, methode string, actor *models.User, ip string) (*models.Cotisation, error) {
	if m.MarkPaidFunc != nil {
		return m.MarkPaidFunc(id, methode, actor, ip)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCotisationService) Update(id string, input services.CotisationUpdateInput, actor *models.User, ip string) (*models.Cotisation, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(id, input, actor, ip)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCotisationService) DeleteOne(id string, actor *models.User, ip string) error {
	if m.DeleteOneFunc != nil {
		return m.DeleteOneFunc(id, actor, ip)
	}
	return nil
}

func (m *MockCotisationService) GenerateForAllActive(mois string, montant float64, actor *models.User, ip string) (*services.GenerateResult, error) {
	if m.GenerateForAllActiveFunc != nil {
		return m.GenerateForAllActiveFunc(mois, montant, actor, ip)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCotisationService) GenerateForSelected(userIDs []string, mois string, montant float64, actor *models.User, ip string) (*services.GenerateResult, error) {
	if m.GenerateForSelectedFunc != nil {
		return m.GenerateForSelectedFunc(userIDs, mois, montant, actor, ip)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCotisationService) DeleteAll(confirm bool, actor *models.User, ip string) (int64, error) {
	if m.DeleteAllFunc != nil {
		return m.DeleteAllFunc(confirm, actor, ip)
	}
	return 0, nil
}

func (m *MockCotisationService) ListByUser(userID string) ([]*models.Cotisation, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(userID)
	}
	return []*models.Cotisation{}, nil
}

func (m *MockCotisationService) ListAll() ([]*models.Cotisation, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc()
	}
	return []*models.Cotisation{}, nil
}

// MockAuditService implements AuditServiceInterface for testing
type MockAuditService struct {
	ListFunc       func(ctx context.Context, filter repositories.LogFilter, page, limit int) (*services.LogPage, error)
	ListByUserFunc func(ctx context.Context, userID string, page, limit int) (*services.LogPage, error)
	StatsFunc      func(ctx context.Context, startDate, endDate *time.Time) (*models.LogStats, error)
}

func (m *MockAuditService) List(ctx context.Context, filter repositories.LogFilter, page, limit int) (*services.LogPage, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, page, limit)
	}
	return &services.LogPage{}, nil
}

func (m *MockAuditService) ListByUser(ctx context.Context, userID string, page, limit int) (*services.LogPage, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, page, limit)
	}
	return &services.LogPage{}, nil
}

func (m *MockAuditService) Stats(ctx context.Context, startDate, endDate *time.Time) (*models.LogStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, startDate, endDate)
	}
	return &models.LogStats{}, nil
}

// newTestMember builds an active member for handler tests
func newTestMember(id, email, role string) *models.User {
	return &models.User{
		ID:             id,
		Nom:            "Diallo",
		Prenom:         "Aminata",
		Num:            "770000000",
		Sexe:           "Female",
		Email:          email,
		Statut:         models.StatutActif,
		Role:           role,
		PlanCotisation: models.PlanMensuel,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}
