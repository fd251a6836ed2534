// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
)

func TestMigrationURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost:5432/db?sslmode=disable":   "pgx5://u:p@localhost:5432/db?sslmode=disable",
		"postgresql://u:p@localhost:5432/db?sslmode=disable": "pgx5://u:p@localhost:5432/db?sslmode=disable",
		"pgx5://localhost/db":                                "pgx5://localhost/db",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, migrationURL(in))
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"migrations/000001_attendance.up.sql",
		"migrations/000001_attendance.down.sql",
	}, names)
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, wrapError(nil, "participant"))
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(wrapError(pgx.ErrNoRows, "participant")))
	assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(wrapError(&pgconn.PgError{Code: uniqueViolation}, "job")))
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(wrapError(errors.New("connection reset"), "job")))

	validation := domain.NewValidationError("bad mutation")
	wrapped := wrapError(fmt.Errorf("tx: %w", validation), "participant")
	assert.ErrorIs(t, wrapped, validation)
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(wrapped))
}

// testPool connects to POSTGRES_TEST_URL and applies the migrations.
// Tests using it are skipped when the variable is not set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_URL")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}

	ctx := context.Background()
	require.NoError(t, RunMigrations(ctx, dsn))

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	for _, table := range []string{"participants", "reconciliation_jobs", "webhook_logs", "workshops"} {
		_, err := pool.Exec(ctx, "TRUNCATE "+table)
		require.NoError(t, err)
	}
	return pool
}
