package integration

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testDB *TestDB
	ts     *TestServer
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	var err error
	testDB, err = SetupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up test database: %v\n", err)
		os.Exit(1)
	}

	ts = NewTestServer(testDB.DB)

	code := m.Run()

	ts.Close()
	testDB.Teardown(ctx)
	os.Exit(code)
}

func requireIntegration(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	require.NoError(t, testDB.CleanupTables(context.Background()))
}

func TestAdhesionToLoginFlow(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	admin, err := SeedMember(ctx, testDB.Pool, TestMemberEmail("admin"), TestPassword, "Admin")
	require.NoError(t, err)
	adminToken, err := ts.TokenFor(admin.ID, admin.Email)
	require.NoError(t, err)

	// Candidate submits an adhesion request
	candidateEmail := TestMemberEmail("candidate")
	resp, err := ts.Request(http.MethodPost, "/adhesion", map[string]interface{}{
		"nom":             "Camara",
		"prenom":          "Ibrahima",
		"num":             "+224622222222",
		"sexe":            "Male",
		"email":           candidateEmail,
		"password":        TestPassword,
		"plan_cotisation": "mensuel",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var submitted struct {
		ID     string `json:"id"`
		Statut string `json:"statut"`
	}
	require.NoError(t, ParseJSONResponse(resp, &submitted))
	assert.Equal(t, "en_attente", submitted.Statut)

	// A second pending request for the same email is refused
	resp, err = ts.Request(http.MethodPost, "/adhesion", map[string]interface{}{
		"nom":             "Camara",
		"prenom":          "Ibrahima",
		"sexe":            "Male",
		"email":           candidateEmail,
		"password":        TestPassword,
		"plan_cotisation": "mensuel",
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Admin approves; the candidate becomes a member
	resp, err = ts.RequestWithAuth(http.MethodPost, "/adhesions/"+submitted.ID+"/approve", adminToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var member struct {
		ID     string `json:"id"`
		Email  string `json:"email"`
		Statut string `json:"statut"`
		Role   string `json:"role"`
	}
	require.NoError(t, ParseJSONResponse(resp, &member))
	assert.Equal(t, "actif", member.Statut)
	assert.Equal(t, "membre", member.Role)

	// Approving twice is refused
	resp, err = ts.RequestWithAuth(http.MethodPost, "/adhesions/"+submitted.ID+"/approve", adminToken, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The new member can log in with the password from the request
	token, err := ts.LoginAs(member.Email, TestPassword)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	resp, err = ts.RequestWithAuth(http.MethodGet, "/auth/me", token, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile struct {
		Email string `json:"email"`
	}
	require.NoError(t, ParseJSONResponse(resp, &profile))
	assert.Equal(t, member.Email, profile.Email)
}

func TestCotisationLifecycle(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	finance, err := SeedMember(ctx, testDB.Pool, TestMemberEmail("finance"), TestPassword, "finance")
	require.NoError(t, err)
	financeToken, err := ts.TokenFor(finance.ID, finance.Email)
	require.NoError(t, err)

	memberA, err := SeedMember(ctx, testDB.Pool, TestMemberEmail("a"), TestPassword, "membre")
	require.NoError(t, err)
	_, err = SeedMember(ctx, testDB.Pool, TestMemberEmail("b"), TestPassword, "membre")
	require.NoError(t, err)

	mois := CurrentMois()

	// Mass generation bills every active member once
	resp, err := ts.RequestWithAuth(http.MethodPost, "/cotisations/generate", financeToken, map[string]interface{}{
		"mois":    mois,
		"montant": 3000,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var generated struct {
		Stats struct {
			Creees     int `json:"creees"`
			Existantes int `json:"existantes"`
			Erreurs    int `json:"erreurs"`
		} `json:"stats"`
	}
	require.NoError(t, ParseJSONResponse(resp, &generated))
	assert.Equal(t, 3, generated.Stats.Creees) // finance account is active too
	assert.Equal(t, 0, generated.Stats.Existantes)
	assert.Equal(t, 0, generated.Stats.Erreurs)

	// Re-running the same month only skips
	resp, err = ts.RequestWithAuth(http.MethodPost, "/cotisations/generate", financeToken, map[string]interface{}{
		"mois":    mois,
		"montant": 3000,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NoError(t, ParseJSONResponse(resp, &generated))
	assert.Equal(t, 0, generated.Stats.Creees)
	assert.Equal(t, 3, generated.Stats.Existantes)

	// Direct duplicate insert for the same member and month is refused
	resp, err = ts.RequestWithAuth(http.MethodPost, "/cotisations", financeToken, map[string]interface{}{
		"user_id": memberA.ID,
		"mois":    mois,
		"montant": 3000,
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The member sees their own cotisation
	memberToken, err := ts.TokenFor(memberA.ID, memberA.Email)
	require.NoError(t, err)
	resp, err = ts.RequestWithAuth(http.MethodGet, "/cotisations/me", memberToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var mine struct {
		Cotisations []struct {
			ID     string `json:"id"`
			Mois   string `json:"mois"`
			Statut string `json:"statut"`
		} `json:"cotisations"`
	}
	require.NoError(t, ParseJSONResponse(resp, &mine))
	require.Len(t, mine.Cotisations, 1)
	assert.Equal(t, mois, mine.Cotisations[0].Mois)
	assert.Equal(t, "en_attente", mine.Cotisations[0].Statut)

	// Finance marks it paid
	cotID := mine.Cotisations[0].ID
	resp, err = ts.RequestWithAuth(http.MethodPut, "/cotisations/"+cotID+"/pay", financeToken, map[string]interface{}{
		"methode": "virement",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var paid struct {
		Statut          string  `json:"statut"`
		MethodePaiement *string `json:"methode_paiement"`
	}
	require.NoError(t, ParseJSONResponse(resp, &paid))
	assert.Equal(t, "payé", paid.Statut)
	require.NotNil(t, paid.MethodePaiement)
	assert.Equal(t, "virement", *paid.MethodePaiement)

	// Paying again succeeds and keeps the record settled
	resp, err = ts.RequestWithAuth(http.MethodPut, "/cotisations/"+cotID+"/pay", financeToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, ParseJSONResponse(resp, &paid))
	assert.Equal(t, "payé", paid.Statut)

	// A plain member cannot reach the management surface
	resp, err = ts.RequestWithAuth(http.MethodGet, "/cotisations", memberToken, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPasswordResetFlow(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	member, err := SeedMember(ctx, testDB.Pool, TestMemberEmail("reset"), TestPassword, "membre")
	require.NoError(t, err)

	resp, err := ts.Request(http.MethodPost, "/auth/forgot-password", map[string]string{
		"email": member.Email,
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lastEmail := ts.EmailService.GetLastEmail()
	require.NotNil(t, lastEmail)
	require.Equal(t, "reset", lastEmail.Kind)
	require.Len(t, lastEmail.Code, 6)

	newPassword := "NouveauMotDePasse1!"
	resp, err = ts.Request(http.MethodPost, "/auth/reset-password", map[string]string{
		"email":        member.Email,
		"code":         lastEmail.Code,
		"new_password": newPassword,
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Old password no longer works, new one does
	resp, err = ts.Request(http.MethodPost, "/auth/login", map[string]string{
		"email":    member.Email,
		"password": TestPassword,
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := ts.LoginAs(member.Email, newPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestAuditTrailRecordsActions(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	admin, err := SeedMember(ctx, testDB.Pool, TestMemberEmail("auditor"), TestPassword, "Admin")
	require.NoError(t, err)
	adminToken, err := ts.TokenFor(admin.ID, admin.Email)
	require.NoError(t, err)

	// Creating a member writes an audit entry
	resp, err := ts.RequestWithAuth(http.MethodPost, "/users", adminToken, map[string]interface{}{
		"nom":             "Toure",
		"prenom":          "Mariam",
		"sexe":            "Female",
		"email":           TestMemberEmail("audited"),
		"password":        TestPassword,
		"role":            "membre",
		"plan_cotisation": "mensuel",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err = ts.RequestWithAuth(http.MethodGet, "/logs?action=MEMBRE_AJOUTE", adminToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var logs struct {
		Logs []struct {
			Action    string `json:"action"`
			UserEmail string `json:"user_email"`
			UserName  string `json:"user_name"`
		} `json:"logs"`
		Total int64 `json:"total"`
	}
	require.NoError(t, ParseJSONResponse(resp, &logs))
	require.NotEmpty(t, logs.Logs)
	assert.Equal(t, admin.Email, logs.Logs[0].UserEmail)
	assert.Equal(t, admin.FullName(), logs.Logs[0].UserName)
}
