package ormx_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arllen133/ormx"
	"github.com/arllen133/ormx/clause"
	"github.com/arllen133/ormx/config"
)

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	admins, _ := newAdmins()
	session := setupTestDB(t, ormx.WithLogger(bufferLogger(&buf)), ormx.WithQueryLogging(true))

	r := ormx.NewRecord(admins, ormx.WithQuerier(session))
	require.NoError(t, r.Set("email", "logged@example.com"))
	require.NoError(t, r.Save(context.Background()))

	logs := buf.String()
	assert.Contains(t, logs, "query executed")
	assert.Contains(t, logs, `INSERT INTO \"admins\"`)
	assert.Contains(t, logs, "operation=query")
	assert.Contains(t, logs, "statement=INSERT")
	assert.Contains(t, logs, "rows=1")
}

func TestWithSlowQueryThreshold(t *testing.T) {
	var buf bytes.Buffer
	admins, _ := newAdmins()
	session := setupTestDB(t, ormx.WithLogger(bufferLogger(&buf)), ormx.WithSlowQueryThreshold(time.Nanosecond))

	_, err := ormx.NewSelect(admins, session).FetchMany(context.Background())
	require.NoError(t, err)

	logs := buf.String()
	assert.Contains(t, logs, "slow query")
	assert.Contains(t, logs, "statement=SELECT")
	assert.Contains(t, logs, "rows=0")
	assert.NotContains(t, logs, "query=", "queries are only logged with query logging enabled")
}

func TestQueryFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	missing := ormx.NewTableStructure("missing_table")
	missing.MustAddColumns(ormx.NewColumn("id", ormx.TypeID).PrimaryKey())
	session := setupTestDB(t, ormx.WithLogger(bufferLogger(&buf)))

	_, err := ormx.NewSelect(missing, session).Where(clause.C("id", 1)).FetchMany(context.Background())
	require.Error(t, err)
	assert.Contains(t, buf.String(), "query failed")
	assert.Contains(t, buf.String(), "missing_table")
}

func TestNoLoggerIsSilent(t *testing.T) {
	admins, _ := newAdmins()
	session := setupTestDB(t, ormx.WithDefaultTracer(), ormx.WithDefaultMeter())

	count, err := ormx.NewSelect(admins, session).FetchCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOpen(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Database.Driver = "sqlite3"
	cfg.Database.DSN = ":memory:"
	cfg.Query.Tracing = true
	cfg.Query.Metrics = true

	session, err := ormx.Open(cfg)
	require.NoError(t, err)
	defer session.Close()

	assert.Same(t, ormx.SQLite, session.Dialect())
	require.NoError(t, session.Ping(context.Background()))

	rows, err := session.QueryMaps(context.Background(), "SELECT 'a' AS name, 1 AS n")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "a", "n": int64(1)}}, rows)

	t.Run("InvalidConfig", func(t *testing.T) {
		bad := config.NewDefaultConfig()
		bad.Database.Driver = "oracle"
		bad.Database.DSN = "x"
		_, err := ormx.Open(bad)
		assert.Error(t, err)
	})
}
