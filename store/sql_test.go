package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tenant-notes/db"
)

// SQL tests run against a real server and wipe its tables. They are skipped
// unless TEST_MYSQL_DSN or TEST_POSTGRES_DSN is set (see .env.test).
func sqlStoreFactory(d db.Dialect, envKey string) func(t *testing.T) TenantStore {
	return func(t *testing.T) TenantStore {
		t.Helper()
		dsn := os.Getenv(envKey)
		if dsn == "" {
			t.Skip(envKey + " not set")
		}
		ctx := context.Background()

		conn, err := db.Open(ctx, d, dsn)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })

		require.NoError(t, db.Reset(ctx, conn, d))
		s := NewSQLStore(conn, d)
		require.NoError(t, s.Seed(ctx, DemoSeed(), bcrypt.MinCost))
		return s
	}
}

func TestMySQLStoreContract(t *testing.T) {
	if os.Getenv("TEST_MYSQL_DSN") == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	runContract(t, sqlStoreFactory(db.MySQL, "TEST_MYSQL_DSN"))
}

func TestPostgresStoreContract(t *testing.T) {
	if os.Getenv("TEST_POSTGRES_DSN") == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	runContract(t, sqlStoreFactory(db.Postgres, "TEST_POSTGRES_DSN"))
}
