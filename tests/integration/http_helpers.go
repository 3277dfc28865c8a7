package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/afo-asso/membership-api/internal/auth"
	"github.com/afo-asso/membership-api/internal/config"
	"github.com/afo-asso/membership-api/internal/database"
	"github.com/afo-asso/membership-api/internal/handlers"
	middlewareCustom "github.com/afo-asso/membership-api/internal/middleware"
	"github.com/afo-asso/membership-api/internal/routes"
	"github.com/afo-asso/membership-api/internal/services"
	pkghttp "github.com/afo-asso/membership-api/pkg/http"
	pkglogger "github.com/afo-asso/membership-api/pkg/logger"
)

// SentEmail represents a captured email message
type SentEmail struct {
	To   string
	Kind string // "confirmation" or "reset"
	Code string // reset code, empty for confirmations
}

// CapturingEmailService records sent emails for test assertions
type CapturingEmailService struct {
	SentEmails []SentEmail
	mu         sync.Mutex
}

func (m *CapturingEmailService) SendConfirmation(ctx context.Context, email, nom, prenom string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentEmails = append(m.SentEmails, SentEmail{To: email, Kind: "confirmation"})
	return nil
}

func (m *CapturingEmailService) SendResetCode(ctx context.Context, email, prenom, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentEmails = append(m.SentEmails, SentEmail{To: email, Kind: "reset", Code: code})
	return nil
}

// GetLastEmail returns the most recent email sent
func (m *CapturingEmailService) GetLastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SentEmails) == 0 {
		return nil
	}
	return &m.SentEmails[len(m.SentEmails)-1]
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server       *httptest.Server
	Pool         *database.DB
	EmailService *CapturingEmailService
	Config       *config.Config
	TokenManager *auth.TokenManager
	logger       *slog.Logger
}

// NewTestServer initializes a complete HTTP server with real database + captured email
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:    "test-secret-32-characters-long-for-testing",
			TokenExpiry:  1 * time.Hour,
			ResetCodeTTL: 10 * time.Minute,
		},
		Email: config.EmailConfig{
			FromAddress: "noreply@test.local",
			AWSRegion:   "",
		},
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
			TrustedProxies: []string{},
		},
		Sweep: config.SweepConfig{
			OverdueInterval: 1 * time.Hour,
		},
	}

	userRepo, adhesionRepo, cotisationRepo, logRepo := InitializeRepositories(db)

	capturedEmail := &CapturingEmailService{
		SentEmails: []SentEmail{},
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	securityLogger := pkglogger.NewSecurityLogger(logger)

	auditService := services.NewAuditService(logRepo, logger)
	userService := services.NewUserService(userRepo, auditService, capturedEmail, tokenManager, securityLogger, cfg.Auth.ResetCodeTTL, logger)
	adhesionService := services.NewAdhesionService(adhesionRepo, userRepo, capturedEmail, logger)
	cotisationService := services.NewCotisationService(cotisationRepo, userRepo, auditService, logger)

	ipConfig := &pkghttp.IPConfig{
		TrustedProxies: cfg.Server.TrustedProxies,
	}
	authHandler := handlers.NewAuthHandler(userService, ipConfig)
	adhesionHandler := handlers.NewAdhesionHandler(adhesionService)
	userHandler := handlers.NewUserHandler(userService, ipConfig)
	cotisationHandler := handlers.NewCotisationHandler(cotisationService, ipConfig)
	logHandler := handlers.NewLogHandler(auditService)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, authHandler, adhesionHandler, userHandler, cotisationHandler, logHandler, tokenManager, userRepo)

	server := httptest.NewServer(r)

	return &TestServer{
		Server:       server,
		Pool:         db,
		EmailService: capturedEmail,
		Config:       cfg,
		TokenManager: tokenManager,
		logger:       logger,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with a bearer token
func (ts *TestServer) RequestWithAuth(method, path, token string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + token,
	}
	return ts.Request(method, path, body, headers)
}

// TokenFor mints a token directly, bypassing the login rate limit
func (ts *TestServer) TokenFor(userID, email string) (string, error) {
	return ts.TokenManager.GenerateToken(userID, email)
}

// LoginAs performs a login request and returns the issued token
func (ts *TestServer) LoginAs(email, password string) (string, error) {
	resp, err := ts.Request(http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	if err != nil {
		return "", err
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	if err := ParseJSONResponse(resp, &loginResp); err != nil {
		return "", err
	}
	return loginResp.Token, nil
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// GetErrorMessage extracts error message from error response
func GetErrorMessage(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if msg, ok := errResp["message"].(string); ok {
		return msg, nil
	}
	return "", nil
}
