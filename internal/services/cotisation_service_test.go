package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/afo-asso/membership-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func newCotisationForTest(cotisations *MockCotisationRepository, users *MockUserRepository) *CotisationService {
	return newCotisationForTestWithLogs(cotisations, users, &MockActionLogRepository{})
}

func newCotisationForTestWithLogs(cotisations *MockCotisationRepository, users *MockUserRepository, logs *MockActionLogRepository) *CotisationService {
	logger := slog.Default()
	return NewCotisationService(cotisations, users, NewAuditService(logs, logger), logger)
}

func TestCotisationService_CreateOne_Pending(t *testing.T) {
	var created *models.Cotisation
	mockCotisations := &MockCotisationRepository{
		CreateFunc: func(ctx context.Context, c *models.Cotisation) (*models.Cotisation, error) {
			created = c
			c.ID = "cot1"
			return c, nil
		},
	}
	mockUsers := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return NewTestUser(id, "aminata@example.com"), nil
		},
	}

	svc := newCotisationForTest(mockCotisations, mockUsers)
	admin := NewTestAdmin("admin1", "admin@example.com")

	result, err := svc.CreateOne("user1", "2026-08", 3000, admin, "10.0.0.1")

	assert.NoError(t, err)
	assert.Equal(t, "cot1", result.ID)
	assert.Equal(t, float64(3000), created.Montant)
	assert.Equal(t, models.CotisationEnAttente, created.Statut)
}

func TestCotisationService_CreateOne_RejectsNonPositiveMontant(t *testing.T) {
	svc := newCotisationForTest(&MockCotisationRepository{}, &MockUserRepository{})
	admin := NewTestAdmin("admin1", "admin@example.com")

	for _, montant := range []float64{0, -500} {
		result, err := svc.CreateOne("user1", "2026-08", montant, admin, "10.0.0.1")
		assert.Nil(t, result)
		assert.Equal(t, models.ErrInvalidArgument, err)
	}
}

func TestCotisationService_CreateOne_ExistingMonthConflicts(t *testing.T) {
	createCalled := false
	mockCotisations := &MockCotisationRepository{
		ExistsForMonthFunc: func(ctx context.Context, userID, mois string) (bool, error) {
			return true, nil
		},
		CreateFunc: func(ctx context.Context, c *models.Cotisation) (*models.Cotisation, error) {
			createCalled = true
			return c, nil
		},
	}
	mockUsers := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return NewTestUser(id, "aminata@example.com"), nil
		},
	}

	svc := newCotisationForTest(mockCotisations, mockUsers)

	result, err := svc.CreateOne("user1", "2026-08", 3000, NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.Nil(t, result)
	assert.Equal(t, models.ErrConflict, err)
	assert.False(t, createCalled)
}

func TestCotisationService_CreateOne_InvalidMois(t *testing.T) {
	svc := newCotisationForTest(&MockCotisationRepository{}, &MockUserRepository{})
	admin := NewTestAdmin("admin1", "admin@example.com")

	for _, mois := range []string{"2026-13", "2026-1", "08-2026", "aout 2026", ""} {
		result, err := svc.CreateOne("user1", mois, 3000, admin, "10.0.0.1")
		assert.Nil(t, result)
		assert.Equal(t, models.ErrInvalidArgument, err)
	}
}

func TestCotisationService_CreateOne_DuplicateMonth(t *testing.T) {
	mockCotisations := &MockCotisationRepository{
		CreateFunc: func(ctx context.Context, c *models.Cotisation) (*models.Cotisation, error) {
			return nil, models.ErrConflict
		},
	}
	mockUsers := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return NewTestUser(id, "aminata@example.com"), nil
		},
	}

	svc := newCotisationForTest(mockCotisations, mockUsers)

	result, err := svc.CreateOne("user1", "2026-08", 3000, NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.Nil(t, result)
	assert.Equal(t, models.ErrConflict, err)
}

func TestCotisationService_CreateOne_MemberNotFound(t *testing.T) {
	svc := newCotisationForTest(&MockCotisationRepository{}, &MockUserRepository{})

	result, err := svc.CreateOne("missing", "2026-08", 3000, NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.Nil(t, result)
	assert.Equal(t, models.ErrNotFound, err)
}

func TestCotisationService_MarkPaid_DefaultsToEspeces(t *testing.T) {
	cotisation := NewTestCotisation("cot1", "user1", "2026-08")

	var updated *models.Cotisation
	mockCotisations := &MockCotisationRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Cotisation, error) {
			return cotisation, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Cotisation) (*models.Cotisation, error) {
			updated = c
			return c, nil
		},
	}

	svc := newCotisationForTest(mockCotisations, &MockUserRepository{})

	result, err := svc.MarkPaid("cot1", "", NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.NoError(t, err)
	assert.Equal(t, models.CotisationPayee, result.Statut)
	assert.Equal(t, models.MethodeEspeces, *updated.MethodePaiement)
	assert.NotNil(t, updated.DatePaiement)
	assert.WithinDuration(t, time.Now(), *updated.DatePaiement, 5*time.Second)
}

func TestCotisationService_MarkPaid_RepeatKeepsOriginalDate(t *testing.T) {
	firstPayment := time.Now().Add(-48 * time.Hour)
	methode := models.MethodeEspeces
	cotisation := NewTestCotisation("cot1", "user1", "2026-08")
	cotisation.Statut = models.CotisationPayee
	cotisation.DatePaiement = &firstPayment
	cotisation.MethodePaiement = &methode

	auditEntries := 0
	logs := &MockActionLogRepository{
		CreateFunc: func(ctx context.Context, log *models.ActionLog) (*models.ActionLog, error) {
			auditEntries++
			return log, nil
		},
	}
	mockCotisations := &MockCotisationRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Cotisation, error) {
			return cotisation, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Cotisation) (*models.Cotisation, error) {
			return c, nil
		},
	}

	svc := newCotisationForTestWithLogs(mockCotisations, &MockUserRepository{}, logs)

	result, err := svc.MarkPaid("cot1", models.MethodeVirement, NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.NoError(t, err)
	assert.Equal(t, models.CotisationPayee, result.Statut)
	assert.Equal(t, firstPayment, *result.DatePaiement)
	assert.Equal(t, models.MethodeVirement, *result.MethodePaiement)
	assert.Equal(t, 1, auditEntries)
}

func TestCotisationService_MarkPaid_UnknownMethode(t *testing.T) {
	svc := newCotisationForTest(&MockCotisationRepository{}, &MockUserRepository{})

	result, err := svc.MarkPaid("cot1", "cheque", NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.Nil(t, result)
	assert.Equal(t, models.ErrInvalidArgument, err)
}

func TestCotisationService_MarkPaid_OverdueSettles(t *testing.T) {
	cotisation := NewTestCotisation("cot1", "user1", "2026-06")
	cotisation.Statut = models.CotisationEnRetard

	mockCotisations := &MockCotisationRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Cotisation, error) {
			return cotisation, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Cotisation) (*models.Cotisation, error) {
			return c, nil
		},
	}

	svc := newCotisationForTest(mockCotisations, &MockUserRepository{})

	result, err := svc.MarkPaid("cot1", models.MethodeMobile, NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.NoError(t, err)
	assert.Equal(t, models.CotisationPayee, result.Statut)
}

func TestCotisationService_Update_ToPayeStampsDate(t *testing.T) {
	cotisation := NewTestCotisation("cot1", "user1", "2026-08")

	mockCotisations := &MockCotisationRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Cotisation, error) {
			return cotisation, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Cotisation) (*models.Cotisation, error) {
			return c, nil
		},
	}

	svc := newCotisationForTest(mockCotisations, &MockUserRepository{})

	paye := models.CotisationPayee
	result, err := svc.Update("cot1", CotisationUpdateInput{Statut: &paye},
		NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.NoError(t, err)
	assert.Equal(t, models.CotisationPayee, result.Statut)
	assert.NotNil(t, result.DatePaiement)
}

func TestCotisationService_Update_AwayFromPayeClearsPayment(t *testing.T) {
	now := time.Now()
	methode := models.MethodeCarte
	cotisation := NewTestCotisation("cot1", "user1", "2026-08")
	cotisation.Statut = models.CotisationPayee
	cotisation.DatePaiement = &now
	cotisation.MethodePaiement = &methode

	mockCotisations := &MockCotisationRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Cotisation, error) {
			return cotisation, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Cotisation) (*models.Cotisation, error) {
			return c, nil
		},
	}

	svc := newCotisationForTest(mockCotisations, &MockUserRepository{})

	enAttente := models.CotisationEnAttente
	result, err := svc.Update("cot1", CotisationUpdateInput{Statut: &enAttente},
		NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.NoError(t, err)
	assert.Nil(t, result.DatePaiement)
	assert.Nil(t, result.MethodePaiement)
}

func TestCotisationService_Update_RejectsNonPositiveMontant(t *testing.T) {
	cotisation := NewTestCotisation("cot1", "user1", "2026-08")
	mockCotisations := &MockCotisationRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Cotisation, error) {
			return cotisation, nil
		},
	}

	svc := newCotisationForTest(mockCotisations, &MockUserRepository{})

	zero := 0.0
	result, err := svc.Update("cot1", CotisationUpdateInput{Montant: &zero},
		NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.Nil(t, result)
	assert.Equal(t, models.ErrInvalidArgument, err)
}

func TestCotisationService_GenerateForAllActive_SkipsExisting(t *testing.T) {
	members := []*models.User{
		NewTestUser("user1", "a@example.com"),
		NewTestUser("user2", "b@example.com"),
		NewTestUser("user3", "c@example.com"),
	}

	mockUsers := &MockUserRepository{
		ListActiveMembersFunc: func(ctx context.Context) ([]*models.User, error) {
			return members, nil
		},
	}
	mockCotisations := &MockCotisationRepository{
		CreateFunc: func(ctx context.Context, c *models.Cotisation) (*models.Cotisation, error) {
			if c.UserID == "user2" {
				return nil, models.ErrConflict
			}
			return c, nil
		},
	}

	svc := newCotisationForTest(mockCotisations, mockUsers)

	result, err := svc.GenerateForAllActive("2026-08", 3000, NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.NoError(t, err)
	assert.Len(t, result.Created, 2)
	assert.Equal(t, []string{"user2"}, result.AlreadyExisting)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "2026-08", result.Mois)
}

func TestCotisationService_GenerateForAllActive_ContinuesPastFailures(t *testing.T) {
	members := []*models.User{
		NewTestUser("user1", "a@example.com"),
		NewTestUser("user2", "b@example.com"),
		NewTestUser("user3", "c@example.com"),
	}

	mockUsers := &MockUserRepository{
		ListActiveMembersFunc: func(ctx context.Context) ([]*models.User, error) {
			return members, nil
		},
	}
	mockCotisations := &MockCotisationRepository{
		CreateFunc: func(ctx context.Context, c *models.Cotisation) (*models.Cotisation, error) {
			if c.UserID == "user2" {
				return nil, models.ErrInternalServer
			}
			return c, nil
		},
	}

	svc := newCotisationForTest(mockCotisations, mockUsers)

	result, err := svc.GenerateForAllActive("2026-08", 3000, NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	// One member's failure must not discard the records already created.
	assert.NoError(t, err)
	assert.Len(t, result.Created, 2)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, "user2", result.Errors[0].UserID)
}

func TestCotisationService_GenerateForAllActive_AuditsEvenWhenNothingCreated(t *testing.T) {
	auditEntries := 0
	logs := &MockActionLogRepository{
		CreateFunc: func(ctx context.Context, log *models.ActionLog) (*models.ActionLog, error) {
			auditEntries++
			return log, nil
		},
	}
	mockUsers := &MockUserRepository{
		ListActiveMembersFunc: func(ctx context.Context) ([]*models.User, error) {
			return []*models.User{NewTestUser("user1", "a@example.com")}, nil
		},
	}
	mockCotisations := &MockCotisationRepository{
		CreateFunc: func(ctx context.Context, c *models.Cotisation) (*models.Cotisation, error) {
			return nil, models.ErrConflict
		},
	}

	svc := newCotisationForTestWithLogs(mockCotisations, mockUsers, logs)

	result, err := svc.GenerateForAllActive("2026-08", 3000, NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Equal(t, 1, auditEntries)
}

func TestCotisationService_GenerateForAllActive_InvalidMois(t *testing.T) {
	svc := newCotisationForTest(&MockCotisationRepository{}, &MockUserRepository{})

	result, err := svc.GenerateForAllActive("2026/08", 3000, NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.Nil(t, result)
	assert.Equal(t, models.ErrInvalidArgument, err)
}

func TestCotisationService_GenerateForSelected_EmptySelection(t *testing.T) {
	svc := newCotisationForTest(&MockCotisationRepository{}, &MockUserRepository{})

	result, err := svc.GenerateForSelected(nil, "2026-08", 3000, NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.Nil(t, result)
	assert.Equal(t, models.ErrInvalidArgument, err)
}

func TestCotisationService_GenerateForSelected_RequiresPositiveMontant(t *testing.T) {
	svc := newCotisationForTest(&MockCotisationRepository{}, &MockUserRepository{})

	// No fallback here: the selective form demands an explicit amount.
	result, err := svc.GenerateForSelected([]string{"user1"}, "2026-08", 0,
		NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.Nil(t, result)
	assert.Equal(t, models.ErrInvalidArgument, err)
}

func TestCotisationService_GenerateForSelected_NoAuditWhenAllExisting(t *testing.T) {
	auditEntries := 0
	logs := &MockActionLogRepository{
		CreateFunc: func(ctx context.Context, log *models.ActionLog) (*models.ActionLog, error) {
			auditEntries++
			return log, nil
		},
	}
	mockUsers := &MockUserRepository{
		ListActiveMembersByIDsFunc: func(ctx context.Context, ids []string) ([]*models.User, error) {
			return []*models.User{NewTestUser("user1", "a@example.com")}, nil
		},
	}
	mockCotisations := &MockCotisationRepository{
		CreateFunc: func(ctx context.Context, c *models.Cotisation) (*models.Cotisation, error) {
			return nil, models.ErrConflict
		},
	}

	svc := newCotisationForTestWithLogs(mockCotisations, mockUsers, logs)

	result, err := svc.GenerateForSelected([]string{"user1"}, "2026-08", 3000,
		NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Equal(t, []string{"user1"}, result.AlreadyExisting)
	assert.Equal(t, 0, auditEntries)
}

func TestCotisationService_GenerateForSelected_ResolvesActiveOnly(t *testing.T) {
	var gotIDs []string
	mockUsers := &MockUserRepository{
		ListActiveMembersByIDsFunc: func(ctx context.Context, ids []string) ([]*models.User, error) {
			gotIDs = ids
			// "user2" is suspended, the repository filters it out.
			return []*models.User{NewTestUser("user1", "a@example.com")}, nil
		},
	}
	mockCotisations := &MockCotisationRepository{
		CreateFunc: func(ctx context.Context, c *models.Cotisation) (*models.Cotisation, error) {
			return c, nil
		},
	}

	svc := newCotisationForTest(mockCotisations, mockUsers)

	result, err := svc.GenerateForSelected([]string{"user1", "user2"}, "2026-08", 5000,
		NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.NoError(t, err)
	assert.Equal(t, []string{"user1", "user2"}, gotIDs)
	assert.Len(t, result.Created, 1)
	assert.Empty(t, result.AlreadyExisting)
}

func TestCotisationService_DeleteAll_RequiresConfirmation(t *testing.T) {
	deleteCalled := false
	mockCotisations := &MockCotisationRepository{
		DeleteAllFunc: func(ctx context.Context) (int64, error) {
			deleteCalled = true
			return 10, nil
		},
	}

	svc := newCotisationForTest(mockCotisations, &MockUserRepository{})

	count, err := svc.DeleteAll(false, NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.Equal(t, models.ErrConfirmationRequired, err)
	assert.Equal(t, int64(0), count)
	assert.False(t, deleteCalled)
}

func TestCotisationService_DeleteAll_Confirmed(t *testing.T) {
	mockCotisations := &MockCotisationRepository{
		DeleteAllFunc: func(ctx context.Context) (int64, error) {
			return 42, nil
		},
	}

	svc := newCotisationForTest(mockCotisations, &MockUserRepository{})

	count, err := svc.DeleteAll(true, NewTestAdmin("admin1", "admin@example.com"), "10.0.0.1")

	assert.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestCotisationService_MarkOverdue_PassesCurrentMois(t *testing.T) {
	var gotMois string
	mockCotisations := &MockCotisationRepository{
		MarkOverdueFunc: func(ctx context.Context, currentMois string) (int64, error) {
			gotMois = currentMois
			return 3, nil
		},
	}

	svc := newCotisationForTest(mockCotisations, &MockUserRepository{})

	count, err := svc.MarkOverdue("2026-08")

	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, "2026-08", gotMois)
}

func TestCotisationService_MarkOverdue_InvalidMois(t *testing.T) {
	svc := newCotisationForTest(&MockCotisationRepository{}, &MockUserRepository{})

	count, err := svc.MarkOverdue("aout")

	assert.Equal(t, int64(0), count)
	assert.Equal(t, models.ErrInvalidArgument, err)
}
