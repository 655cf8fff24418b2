package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	dbsetup "github.com/mvavassori/portfolio-pulse/db"
)

var (
	testDB      *sql.DB
	pgContainer *postgres.PostgresContainer
)

// TestMain connects to TEST_DB_* when set (CI, local dev), otherwise
// starts a throwaway Postgres container. When neither works the DB
// tests skip instead of failing the whole package.
func TestMain(m *testing.M) {
	ctx := context.Background()

	var dsn string
	var err error

	if dbHost := os.Getenv("TEST_DB_HOST"); dbHost != "" {
		dbPort := os.Getenv("TEST_DB_PORT")
		if dbPort == "" {
			dbPort = "5432"
		}
		dbUser := os.Getenv("TEST_DB_USER")
		if dbUser == "" {
			dbUser = "postgres"
		}
		dbPassword := os.Getenv("TEST_DB_PASSWORD")
		if dbPassword == "" {
			dbPassword = "postgres"
		}
		dbName := os.Getenv("TEST_DB_NAME")
		if dbName == "" {
			dbName = "test_db"
		}
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			dbHost, dbPort, dbUser, dbPassword, dbName)
	} else {
		pgContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("test_db"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			fmt.Printf("Could not start PostgreSQL container, skipping DB tests: %v\n", err)
			os.Exit(m.Run())
		}
		dsn, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Printf("Failed to get connection string: %v\n", err)
			_ = pgContainer.Terminate(ctx)
			os.Exit(1)
		}
	}

	testDB, err = sql.Open("postgres", dsn)
	if err == nil {
		err = testDB.Ping()
	}
	if err != nil {
		fmt.Printf("Failed to connect to test database: %v\n", err)
		if pgContainer != nil {
			_ = pgContainer.Terminate(ctx)
		}
		os.Exit(1)
	}

	if err := dbsetup.InitSchema(testDB); err != nil {
		fmt.Printf("Failed to initialize schema: %v\n", err)
		if pgContainer != nil {
			_ = pgContainer.Terminate(ctx)
		}
		os.Exit(1)
	}

	code := m.Run()

	if pgContainer != nil {
		if err := pgContainer.Terminate(ctx); err != nil {
			fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
		}
	}

	os.Exit(code)
}

func newTestLedger(t *testing.T) *LedgerService {
	if testDB == nil {
		t.Skip("test database not available")
	}
	return NewLedgerService(testDB)
}

// Each test uses its own owner id, so tests can share the database
// without stepping on each other.
func testOwner(t *testing.T) string {
	return fmt.Sprintf("owner-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestRecordEventStats(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	owner := testOwner(t)

	// device A twice, device B once
	require.NoError(t, ledger.RecordEvent(ctx, owner, "device-a", "page_view", "anonymous", nil))
	require.NoError(t, ledger.RecordEvent(ctx, owner, "device-a", "open_github", "Marta", map[string]string{"url": "https://github.com/marta"}))
	require.NoError(t, ledger.RecordEvent(ctx, owner, "device-b", "page_view", "anonymous", nil))

	stats, events, err := ledger.Dashboard(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.UniqueVisitors)
	assert.Equal(t, int64(3), stats.TotalActions)
	require.Len(t, events, 3)

	// newest first
	assert.Equal(t, "page_view", events[0].Action)
	assert.Equal(t, "device-b", events[0].DeviceID)
	assert.Equal(t, "Marta", events[1].VisitorName)
	assert.Equal(t, "https://github.com/marta", events[1].Meta["url"])
}

func TestRecordEventConcurrent(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	owner := testOwner(t)

	const devices = 8
	const eventsPerDevice = 5

	var wg sync.WaitGroup
	errs := make(chan error, devices*eventsPerDevice)
	for d := 0; d < devices; d++ {
		for e := 0; e < eventsPerDevice; e++ {
			wg.Add(1)
			go func(device int) {
				defer wg.Done()
				errs <- ledger.RecordEvent(ctx, owner, fmt.Sprintf("device-%d", device), "page_view", "anonymous", nil)
			}(d)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stats, _, err := ledger.Dashboard(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(devices), stats.UniqueVisitors, "no double counting of a device under concurrency")
	assert.Equal(t, int64(devices*eventsPerDevice), stats.TotalActions, "no lost increments under concurrency")
}

func TestDashboardReadsAreIdempotent(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	owner := testOwner(t)

	require.NoError(t, ledger.RecordEvent(ctx, owner, "device-a", "page_view", "anonymous", nil))
	require.NoError(t, ledger.RecordEvent(ctx, owner, "device-b", "open_linkedin", "Paolo", nil))

	stats1, events1, err := ledger.Dashboard(ctx, owner)
	require.NoError(t, err)
	stats2, events2, err := ledger.Dashboard(ctx, owner)
	require.NoError(t, err)

	assert.Equal(t, stats1, stats2)
	assert.Equal(t, events1, events2)
}

func TestDashboardEmptyOwner(t *testing.T) {
	ledger := newTestLedger(t)

	stats, events, err := ledger.Dashboard(context.Background(), testOwner(t))
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.UniqueVisitors)
	assert.Equal(t, int64(0), stats.TotalActions)
	assert.Empty(t, events)
}

func TestEventsPageWalk(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	owner := testOwner(t)

	const total = 25
	for i := 0; i < total; i++ {
		require.NoError(t, ledger.RecordEvent(ctx, owner, "device-a", fmt.Sprintf("action_%02d", i), "anonymous", nil))
	}

	seen := make(map[string]bool)
	var previousID string
	cursor := ""
	pages := 0
	for {
		events, nextCursor, err := ledger.EventsPage(ctx, owner, cursor, 10)
		require.NoError(t, err)
		pages++

		for _, event := range events {
			assert.False(t, seen[event.ID], "event %s returned twice", event.ID)
			seen[event.ID] = true
			if previousID != "" {
				// ULIDs sort by creation time, so descending
				// chronological order is descending id order.
				assert.Less(t, event.ID, previousID)
			}
			previousID = event.ID
		}

		if nextCursor == "" {
			assert.Less(t, len(events), 10, "final page must come back short")
			break
		}
		assert.Len(t, events, 10)
		cursor = nextCursor
	}

	assert.Equal(t, total, len(seen), "walk must yield every event exactly once")
	assert.Equal(t, 3, pages)
}

func TestEventsPageSizeClamped(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	owner := testOwner(t)

	for i := 0; i < 15; i++ {
		require.NoError(t, ledger.RecordEvent(ctx, owner, "device-a", "page_view", "anonymous", nil))
	}

	// below the minimum -> clamped up to 10
	events, _, err := ledger.EventsPage(ctx, owner, "", 3)
	require.NoError(t, err)
	assert.Len(t, events, 10)

	// zero -> default 50, which covers everything here
	events, nextCursor, err := ledger.EventsPage(ctx, owner, "", 0)
	require.NoError(t, err)
	assert.Len(t, events, 15)
	assert.Equal(t, "", nextCursor)
}

func TestEventsPageStaleCursor(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	owner := testOwner(t)

	for i := 0; i < 12; i++ {
		require.NoError(t, ledger.RecordEvent(ctx, owner, "device-a", "page_view", "anonymous", nil))
	}

	fresh, _, err := ledger.EventsPage(ctx, owner, "", 10)
	require.NoError(t, err)
	stale, _, err := ledger.EventsPage(ctx, owner, "01ARZ3NDEKTSV4RRFFQ69G5FAV", 10)
	require.NoError(t, err)

	assert.Equal(t, fresh, stale, "unknown cursor must behave like no cursor")
}

func TestClearAll(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	owner := testOwner(t)

	require.NoError(t, ledger.RecordEvent(ctx, owner, "device-a", "page_view", "anonymous", nil))
	require.NoError(t, ledger.RecordEvent(ctx, owner, "device-a", "open_github", "anonymous", nil))
	require.NoError(t, ledger.RecordEvent(ctx, owner, "device-b", "page_view", "anonymous", nil))

	require.NoError(t, ledger.Clear(ctx, owner))

	stats, events, err := ledger.Dashboard(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.UniqueVisitors)
	assert.Equal(t, int64(0), stats.TotalActions)
	assert.Empty(t, events)

	// the device table was wiped too, so a returning device counts as
	// unique again
	require.NoError(t, ledger.RecordEvent(ctx, owner, "device-a", "page_view", "anonymous", nil))
	stats, _, err = ledger.Dashboard(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.UniqueVisitors)
	assert.Equal(t, int64(1), stats.TotalActions)
}
