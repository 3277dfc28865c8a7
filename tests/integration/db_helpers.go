package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/afo-asso/membership-api/internal/database"
	"github.com/afo-asso/membership-api/internal/models"
	"github.com/afo-asso/membership-api/internal/repositories"
	"github.com/afo-asso/membership-api/pkg/auth"
)

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("afo_membres"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dbWrapper := &database.DB{
		Pool: pool,
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         dbWrapper,
	}, nil
}

// runMigrations executes all goose migrations
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	// Suppress goose logs
	goose.SetLogger(log.New(io.Discard, "", 0))

	// Goose needs a stdlib DB connection
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"action_logs",
		"cotisations",
		"adhesion_requests",
		"users",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// InitializeRepositories creates all repository instances from database wrapper
func InitializeRepositories(db *database.DB) (
	*repositories.UserRepository,
	*repositories.AdhesionRepository,
	*repositories.CotisationRepository,
	*repositories.ActionLogRepository,
) {
	return repositories.NewUserRepository(db),
		repositories.NewAdhesionRepository(db),
		repositories.NewCotisationRepository(db),
		repositories.NewActionLogRepository(db)
}

// SeedMember inserts a member with hashed password and the given role
func SeedMember(ctx context.Context, pool *pgxpool.Pool, email, password, role string) (*models.User, error) {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (id, nom, prenom, num, sexe, email, password_hash, statut, role, plan_cotisation, created_at, updated_at)
		VALUES (gen_random_uuid(), 'Diallo', 'Aminata', '+224600000000', 'Female', $1, $2, 'actif', $3, 'mensuel', NOW(), NOW())
		RETURNING id, nom, prenom, email, statut, role, plan_cotisation, created_at, updated_at
	`

	var user models.User
	err = pool.QueryRow(ctx, query, email, hashedPassword, role).Scan(
		&user.ID,
		&user.Nom,
		&user.Prenom,
		&user.Email,
		&user.Statut,
		&user.Role,
		&user.PlanCotisation,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	user.PasswordHash = hashedPassword

	return &user, nil
}

// SeedPendingRequest inserts an unprocessed adhesion request
func SeedPendingRequest(ctx context.Context, pool *pgxpool.Pool, email, password string) (*models.AdhesionRequest, error) {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO adhesion_requests (id, nom, prenom, num, sexe, email, password_hash, plan_cotisation, statut, date_demande)
		VALUES (gen_random_uuid(), 'Ba', 'Fatou', '+224611111111', 'Female', $1, $2, 'mensuel', 'en_attente', NOW())
		RETURNING id, nom, prenom, email, statut, date_demande
	`

	var req models.AdhesionRequest
	err = pool.QueryRow(ctx, query, email, hashedPassword).Scan(
		&req.ID,
		&req.Nom,
		&req.Prenom,
		&req.Email,
		&req.Statut,
		&req.DateDemande,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert adhesion request: %w", err)
	}

	return &req, nil
}

// SeedCotisation inserts a cotisation for a member
func SeedCotisation(ctx context.Context, pool *pgxpool.Pool, userID, mois string, montant float64, statut string) (string, error) {
	query := `
		INSERT INTO cotisations (id, user_id, mois, montant, statut, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, NOW())
		RETURNING id
	`

	var id string
	err := pool.QueryRow(ctx, query, userID, mois, montant, statut).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert cotisation: %w", err)
	}

	return id, nil
}
