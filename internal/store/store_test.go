package store_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/db"
	"github.com/waleedsbi/atm-master/internal/db/migrations"
	"github.com/waleedsbi/atm-master/internal/dbpool"
	"github.com/waleedsbi/atm-master/internal/store"
)

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

var sharedEnv *testEnv

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if sharedEnv != nil {
		return sharedEnv
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := dbpool.NewPool(ctx, dbURL, dbpool.Options{MaxConns: 4, Database: "test"})
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		t.Fatalf("migrating test DB: %v", err)
	}

	sharedEnv = &testEnv{
		pool: pool,
		log:  log,
	}

	return sharedEnv
}

func setupTestBase(t *testing.T) store.Base {
	t.Helper()

	env := getTestEnv(t)

	return store.Base{Pool: env.pool, Log: env.log, Schema: "dbo"}
}

// createTable creates a uniquely named table from a column list and drops it
// after the test. It returns the table name.
func createTable(t *testing.T, base store.Base, columns string) string {
	t.Helper()

	name := "T_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	ctx := context.Background()

	if _, err := base.Pool.ExecContext(ctx, fmt.Sprintf("CREATE TABLE dbo.%s (%s)", name, columns)); err != nil {
		t.Fatalf("creating table %s: %v", name, err)
	}

	t.Cleanup(func() {
		base.Pool.ExecContext(context.Background(), "DROP TABLE dbo."+name) //nolint:errcheck // best-effort cleanup
	})

	return name
}

const banksColumns = `
	Id INT IDENTITY(1,1) NOT NULL PRIMARY KEY,
	Name NVARCHAR(100) NULL,
	Balance DECIMAL(18,4) NULL,
	Ref UNIQUEIDENTIFIER NULL,
	Opened DATE NULL,
	Label AS (UPPER(Name))`
