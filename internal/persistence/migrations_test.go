package persistence

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/accomplishment-service/migrations"
)

type fakeExecer struct {
	recorded map[string]bool
	applied  []string
	failOn   string
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.HasPrefix(sql, "CREATE TABLE IF NOT EXISTS schema_migrations"):
		return pgconn.NewCommandTag("CREATE TABLE"), nil
	case strings.HasPrefix(sql, "INSERT INTO schema_migrations"):
		name := args[0].(string)
		if f.recorded[name] {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		f.recorded[name] = true
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.HasPrefix(sql, "DELETE FROM schema_migrations"):
		delete(f.recorded, args[0].(string))
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return pgconn.CommandTag{}, errors.New("syntax error")
	}
	f.applied = append(f.applied, sql)
	return pgconn.NewCommandTag("OK"), nil
}

func TestRunMigrations_AppliesOnceInOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"002_b.sql":  {Data: []byte("SELECT 2")},
		"001_a.sql":  {Data: []byte("SELECT 1")},
		"README.txt": {Data: []byte("ignored")},
	}
	db := &fakeExecer{recorded: map[string]bool{}}

	require.NoError(t, RunMigrations(context.Background(), db, fsys, zap.NewNop()))
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, db.applied)

	require.NoError(t, RunMigrations(context.Background(), db, fsys, zap.NewNop()))
	assert.Len(t, db.applied, 2)
}

func TestRunMigrations_FailureIsNotRecorded(t *testing.T) {
	fsys := fstest.MapFS{"001_a.sql": {Data: []byte("BROKEN")}}
	db := &fakeExecer{recorded: map[string]bool{}, failOn: "BROKEN"}

	err := RunMigrations(context.Background(), db, fsys, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_a.sql")
	assert.False(t, db.recorded["001_a.sql"])
}

func TestRunMigrations_NilPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, fstest.MapFS{}, zap.NewNop()))
}

func TestEmbeddedSchema(t *testing.T) {
	content, err := migrations.Files.ReadFile("001_create_accounts.sql")
	require.NoError(t, err)
	schema := string(content)
	for _, want := range []string{"accounts_employee_id_key", "accounts_email_lookup_key", "failed_attempts", "lock_until"} {
		assert.Contains(t, schema, want)
	}
}
