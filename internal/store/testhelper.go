package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"push-server/internal/observability"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TestDB wraps a test database instance
type TestDB struct {
	db     *sqlx.DB
	logger *observability.Logger
	Store  Store
}

// SetupTestDB connects to the Postgres test database described by TEST_DB_*,
// applies the migrations and truncates all push tables. The test is skipped
// when no database is reachable.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	logger := observability.NewLogger()
	db, err := connectTestDB()
	if err != nil {
		t.Skipf("skipping store test, database unavailable: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := runMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	tdb := &TestDB{
		db:     db,
		logger: logger,
		Store:  Store{db: db, logger: logger},
	}
	tdb.Truncate(t)
	return tdb
}

func connectTestDB() (*sqlx.DB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		envOr("TEST_DB_USER", "push_user"),
		envOr("TEST_DB_PASSWORD", "push_password"),
		envOr("TEST_DB_HOST", "localhost"),
		envOr("TEST_DB_PORT", "5432"),
		envOr("TEST_DB_NAME", "push_db"),
	)

	db, err := sqlx.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// runMigrations applies all migration files to the database
func runMigrations(db *sqlx.DB) error {
	migrationsDir := "../../migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		migrationsDir = "migrations"
		if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
			return fmt.Errorf("migrations directory not found")
		}
	}

	files, err := filepath.Glob(filepath.Join(migrationsDir, "V*.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no migration files found in %s", migrationsDir)
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}

// Truncate clears all data from tables while preserving schema
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()
	_, err := tdb.db.Exec(`TRUNCATE TABLE notification_deliveries, segment_clients, segments, campaigns, clients, landing_pages CASCADE`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

// MustExec executes SQL and fails the test if there's an error
func (tdb *TestDB) MustExec(t *testing.T, query string, args ...interface{}) {
	t.Helper()
	if _, err := tdb.db.Exec(query, args...); err != nil {
		t.Fatalf("failed to execute SQL: %v", err)
	}
}

// CountRows returns the number of rows in table matching where
func (tdb *TestDB) CountRows(t *testing.T, table, where string, args ...interface{}) int {
	t.Helper()
	var n int
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	if err := tdb.db.Get(&n, query, args...); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}

// CreateTestClient inserts a client with a unique endpoint
func (tdb *TestDB) CreateTestClient(t *testing.T, mutate ...func(*ClientParams)) Client {
	t.Helper()
	params := ClientParams{
		Endpoint:       "https://fcm.googleapis.com/fcm/send/" + uuid.NewString(),
		P256dh:         "p256dh",
		Auth:           "auth",
		Browser:        "Chrome",
		BrowserVersion: "120.0",
		OS:             "Windows",
		Device:         "desktop",
		AccessStatus:   AccessStatusAllowed,
	}
	for _, m := range mutate {
		m(&params)
	}
	client, created, err := tdb.Store.CreateClient(context.Background(), params)
	if err != nil || !created {
		t.Fatalf("failed to create test client: created=%v err=%v", created, err)
	}
	return client
}

// CreateTestCampaign inserts a draft campaign
func (tdb *TestDB) CreateTestCampaign(t *testing.T) Campaign {
	t.Helper()
	campaign, err := tdb.Store.CreateCampaign(context.Background(), CreateCampaignParams{
		Name:         "Test campaign",
		Title:        "Hello",
		Message:      "World",
		ABSplit:      50,
		Audience:     AudienceAll,
		ScheduleType: ScheduleTypeImmediate,
		Status:       CampaignStatusDraft,
	})
	if err != nil {
		t.Fatalf("failed to create test campaign: %v", err)
	}
	return campaign
}
