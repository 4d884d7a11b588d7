package repository

import (
	"context"
	"database/sql"
	"log"
	"testing"
	"time"

	"retail-pos/internal/database"
	"retail-pos/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, err
	}

	connStr := "postgres://" + dbUser + ":" + dbPwd + "@" + dbHost + ":" + dbPort.Port() + "/" + dbName + "?sslmode=disable"
	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	// Apply the real schema so tests exercise the same constraints
	// production runs with.
	if err := database.RunMigrations(testDB, "../../migrations", zap.NewNop()); err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}
}

func newStoredUser(t *testing.T, email, role string, createdAt time.Time) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	return &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestProperty_StoredUsersRoundTrip(t *testing.T) {
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("stored operator accounts come back with hashed passwords intact", prop.ForAll(
		func(email string, password string, name string) bool {
			// Clean up before each test
			_, _ = testDB.Exec("DELETE FROM users WHERE email = $1", email)

			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				t.Logf("Failed to hash password: %v", err)
				return false
			}

			user := &domain.User{
				ID:           uuid.New(),
				Email:        email,
				Name:         name,
				PasswordHash: string(hashedPassword),
				Role:         domain.RoleCashier,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			}

			if err := repo.Create(ctx, user); err != nil {
				t.Logf("Failed to create user: %v", err)
				return false
			}

			retrieved, err := repo.FindByEmail(ctx, email)
			if err != nil {
				t.Logf("Failed to find user: %v", err)
				return false
			}

			if retrieved.PasswordHash == password {
				t.Logf("Password was stored as plaintext!")
				return false
			}

			if err := bcrypt.CompareHashAndPassword([]byte(retrieved.PasswordHash), []byte(password)); err != nil {
				t.Logf("Stored password is not a valid bcrypt hash: %v", err)
				return false
			}

			if retrieved.Name != name || retrieved.Role != domain.RoleCashier {
				t.Logf("Stored attributes do not match")
				return false
			}

			// Clean up after test
			_, _ = testDB.Exec("DELETE FROM users WHERE email = $1", email)

			return true
		},
		gen.RegexMatch(`[a-z]{5,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	email := "duplicate@store.test"
	defer testDB.Exec("DELETE FROM users WHERE email = $1", email)

	first := newStoredUser(t, email, domain.RoleCashier, time.Now())
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Failed to create first user: %v", err)
	}

	second := newStoredUser(t, email, domain.RoleCashier, time.Now())
	if err := repo.Create(ctx, second); err != ErrUserAlreadyExists {
		t.Fatalf("Expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestFindByEmailNotFound(t *testing.T) {
	repo := NewUserRepository(testDB)

	_, err := repo.FindByEmail(context.Background(), "ghost@store.test")
	if err != ErrUserNotFound {
		t.Fatalf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestFindFirstAdminPicksOldestAdmin(t *testing.T) {
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	defer testDB.Exec("DELETE FROM users WHERE email LIKE '%@admin.test'")

	// No admins yet
	if _, err := repo.FindFirstAdmin(ctx); err != ErrNoAdminUser {
		t.Fatalf("Expected ErrNoAdminUser with no admins, got %v", err)
	}

	older := newStoredUser(t, "older@admin.test", domain.RoleAdmin, time.Now().Add(-2*time.Hour))
	newer := newStoredUser(t, "newer@admin.test", domain.RoleAdmin, time.Now().Add(-time.Hour))
	cashier := newStoredUser(t, "cashier@admin.test", domain.RoleCashier, time.Now().Add(-3*time.Hour))

	for _, u := range []*domain.User{newer, older, cashier} {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatalf("Failed to create user %s: %v", u.Email, err)
		}
	}

	admin, err := repo.FindFirstAdmin(ctx)
	if err != nil {
		t.Fatalf("Failed to find first admin: %v", err)
	}

	if admin.ID != older.ID {
		t.Fatalf("Expected oldest admin %s, got %s", older.Email, admin.Email)
	}
}
