package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/storage"
	"github.com/hongminglow/custody-be/internal/storage/postgres/migrations"
	"github.com/hongminglow/custody-be/internal/storage/storagetest"
)

// TestStoreIntegration runs the storage conformance suite against a live database.
func TestStoreIntegration(t *testing.T) {
	if os.Getenv("RUN_POSTGRES_INTEGRATION") != "true" {
		t.Skip("set RUN_POSTGRES_INTEGRATION=true and DATABASE_URL to run this integration test")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatal("DATABASE_URL is required")
	}

	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := NewStore(context.Background(), dbURL)
		require.NoError(t, err)
		t.Cleanup(s.Close)
		return s
	})
}

func TestRunMigrations_UsesEmbeddedFS(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	called := false
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		called = true
		assert.Equal(t, ".", dir)
		return nil
	}
	require.NoError(t, runMigrations(context.Background(), nil))
	assert.True(t, called)

	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	assert.NotEmpty(t, files)
}

func TestRunMigrations_Error(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	err := runMigrations(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply migrations: boom")
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("op", nil))
	assert.ErrorIs(t, classify("op", pgx.ErrNoRows), storage.ErrNotFound)
	assert.ErrorIs(t, classify("op", &pgconn.PgError{Code: codeForeignKeyViolation}), storage.ErrNotFound)

	err := classify("op", errors.New("connection refused"))
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
	assert.ErrorIs(t, err, apperr.ErrDependency)

	err = classify("op", context.DeadlineExceeded)
	assert.ErrorIs(t, err, apperr.ErrDependencyTimeout)
}
