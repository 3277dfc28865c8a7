package services

import (
	"context"
	"time"

	"github.com/afo-asso/membership-api/internal/models"
	"github.com/afo-asso/membership-api/internal/repositories"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc                func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc             func(ctx context.Context, email string) (*models.User, error)
	ListFunc                   func(ctx context.Context, limit, offset int) ([]*models.User, error)
	ListActiveMembersFunc      func(ctx context.Context) ([]*models.User, error)
	ListActiveMembersByIDsFunc func(ctx context.Context, ids []string) ([]*models.User, error)
	CreateFunc                 func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc                 func(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePasswordFunc         func(ctx context.Context, id, passwordHash string) error
	SetResetCodeFunc           func(ctx context.Context, id, codeHash string, expiresAt time.Time) error
	DeleteFunc                 func(ctx context.Context, id string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) ListActiveMembers(ctx context.Context) ([]*models.User, error) {
	if m.ListActiveMembersFunc != nil {
		return m.ListActiveMembersFunc(ctx)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) ListActiveMembersByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if m.ListActiveMembersByIDsFunc != nil {
		return m.ListActiveMembersByIDsFunc(ctx, ids)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) SetResetCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	if m.SetResetCodeFunc != nil {
		return m.SetResetCodeFunc(ctx, id, codeHash, expiresAt)
	}
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockAdhesionRepository implements AdhesionRepository for testing
type MockAdhesionRepository struct {
	GetByIDFunc            func(ctx context.Context, id string) (*models.AdhesionRequest, error)
	HasPendingForEmailFunc func(ctx context.Context, email string) (bool, error)
	ListFunc               func(ctx context.Context, statut string) ([]*models.AdhesionRequest, error)
	CreateFunc             func(ctx context.Context, req *models.AdhesionRequest) (*models.AdhesionRequest, error)
	MarkProcessedFunc      func(ctx context.Context, id, statut, adminID string, raison *string) (*models.AdhesionRequest, error)
	DeleteFunc             func(ctx context.Context, id string) error
}

func (m *MockAdhesionRepository) GetByID(ctx context.Context, id string) (*models.AdhesionRequest, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAdhesionRepository) HasPendingForEmail(ctx context.Context, email string) (bool, error) {
	if m.HasPendingForEmailFunc != nil {
		return m.HasPendingForEmailFunc(ctx, email)
	}
	return false, nil
}

func (m *MockAdhesionRepository) List(ctx context.Context, statut string) ([]*models.AdhesionRequest, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, statut)
	}
	return []*models.AdhesionRequest{}, nil
}

func (m *MockAdhesionRepository) Create(ctx context.Context, req *models.AdhesionRequest) (*models.AdhesionRequest, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAdhesionRepository) MarkProcessed(ctx context.Context, id, statut, adminID string, raison *string) (*models.AdhesionRequest, error) {
	if m.MarkProcessedFunc != nil {
		return m.MarkProcessedFunc(ctx, id, statut, adminID, raison)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAdhesionRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockCotisationRepository implements CotisationRepository for testing
type MockCotisationRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.Cotisation, error)
	ExistsForMonthFunc func(ctx context.Context, userID, mois string) (bool, error)
	ListByUserFunc     func(ctx context.Context, userID string) ([]*models.Cotisation, error)
	ListAllFunc        func(ctx context.Context) ([]*models.Cotisation, error)
	CreateFunc         func(ctx context.Context, c *models.Cotisation) (*models.Cotisation, error)
	UpdateFunc         func(ctx context.Context, id string, c *models.Cotisation) (*models.Cotisation, error)
	DeleteFunc         func(ctx context.Context, id string) error
	DeleteAllFunc      func(ctx context.Context) (int64, error)
	MarkOverdueFunc    func(ctx context.Context, currentMois string) (int64, error)
}

func (m *MockCotisationRepository) GetByID(ctx context.Context, id string) (*models.Cotisation, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCotisationRepository) ExistsForMonth(ctx context.Context, userID, mois string) (bool, error) {
	if m.ExistsForMonthFunc != nil {
		return m.ExistsForMonthFunc(ctx, userID, mois)
	}
	return false, nil
}

func (m *MockCotisationRepository) ListByUser(ctx context.Context, userID string) ([]*models.Cotisation, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return []*models.Cotisation{}, nil
}

func (m *MockCotisationRepository) ListAll(ctx context.Context) ([]*models.Cotisation, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return []*models.Cotisation{}, nil
}

func (m *MockCotisationRepository) Create(ctx context.Context, c *models.Cotisation) (*models.Cotisation, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCotisationRepository) Update(ctx context.Context, id string, c *models.Cotisation) (*models.Cotisation, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, c)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCotisationRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockCotisationRepository) DeleteAll(ctx context.Context) (int64, error) {
	if m.DeleteAllFunc != nil {
		return m.DeleteAllFunc(ctx)
	}
	return 0, nil
}

func (m *MockCotisationRepository) MarkOverdue(ctx context.Context, currentMois string) (int64, error) {
	if m.MarkOverdueFunc != nil {
		return m.MarkOverdueFunc(ctx, currentMois)
	}
	return 0, nil
}

// MockActionLogRepository implements ActionLogRepository for testing
type MockActionLogRepository struct {
	CreateFunc     func(ctx context.Context, log *models.ActionLog) (*models.ActionLog, error)
	ListFunc       func(ctx context.Context, filter repositories.LogFilter, limit, offset int) ([]*models.ActionLog, int64, error)
	ListByUserFunc func(ctx context.Context, userID string, limit, offset int) ([]*models.ActionLog, int64, error)
	StatsFunc      func(ctx context.Context, startDate, endDate *time.Time) (*models.LogStats, error)
}

func (m *MockActionLogRepository) Create(ctx context.Context, log *models.ActionLog) (*models.ActionLog, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	return log, nil
}

func (m *MockActionLogRepository) List(ctx context.Context, filter repositories.LogFilter, limit, offset int) ([]*models.ActionLog, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, limit, offset)
	}
	return []*models.ActionLog{}, 0, nil
}

func (m *MockActionLogRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.ActionLog, int64, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit, offset)
	}
	return []*models.ActionLog{}, 0, nil
}

func (m *MockActionLogRepository) Stats(ctx context.Context, startDate, endDate *time.Time) (*models.LogStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, startDate, endDate)
	}
	return &models.LogStats{}, nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendConfirmationFunc func(ctx context.Context, email, nom, prenom string) error
	SendResetCodeFunc    func(ctx context.Context, email, prenom, code string) error
}

func (m *MockEmailService) SendConfirmation(ctx context.Context, email, nom, prenom string) error {
	if m.SendConfirmationFunc != nil {
		return m.SendConfirmationFunc(ctx, email, nom, prenom)
	}
	return nil
}

func (m *MockEmailService) SendResetCode(ctx context.Context, email, prenom, code string) error {
	if m.SendResetCodeFunc != nil {
		return m.SendResetCodeFunc(ctx, email, prenom, code)
	}
	return nil
}

// NewTestUser creates a basic active member for tests
func NewTestUser(id, email string) *models.User {
	return &models.User{
		ID:             id,
		Nom:            "Diallo",
		Prenom:         "Aminata",
		Num:            "770000000",
		Sexe:           "Female",
		Email:          email,
		PasswordHash:   "$2a$12$examplehashexamplehashexamplehashexampleha",
		Statut:         models.StatutActif,
		Role:           models.RoleMembre,
		PlanCotisation: models.PlanMensuel,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

// NewTestAdmin creates an administrator for tests
func NewTestAdmin(id, email string) *models.User {
	admin := NewTestUser(id, email)
	admin.Nom = "Sow"
	admin.Prenom = "Ousmane"
	admin.Sexe = "Male"
	admin.Role = models.RoleAdmin
	return admin
}

// NewTestRequest creates a pending adhesion request for tests
func NewTestRequest(id, email string) *models.AdhesionRequest {
	return &models.AdhesionRequest{
		ID:             id,
		Nom:            "Ba",
		Prenom:         "Fatou",
		Num:            "780000000",
		Sexe:           "Female",
		Email:          email,
		PasswordHash:   "$2a$12$examplehashexamplehashexamplehashexampleha",
		PlanCotisation: models.PlanMensuel,
		Statut:         models.DemandeEnAttente,
		DateDemande:    time.Now(),
	}
}

// NewTestCotisation creates a pending cotisation for tests
func NewTestCotisation(id, userID, mois string) *models.Cotisation {
	return &models.Cotisation{
		ID:        id,
		UserID:    userID,
		Mois:      mois,
		Montant:   models.DefaultMontant,
		Statut:    models.CotisationEnAttente,
		CreatedAt: time.Now(),
	}
}
