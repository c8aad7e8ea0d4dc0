package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ormx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ORMX_DATABASE_DRIVER", "ORMX_DATABASE_DSN",
		"ORMX_DATABASE_POOL_MAXIDLECONNS", "ORMX_DATABASE_POOL_MAXOPENCONNS",
		"ORMX_LOGGING_LEVEL", "ORMX_LOGGING_FORMAT", "ORMX_QUERY_LOGQUERIES",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_DefaultsFromEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("ORMX_DATABASE_DRIVER", "sqlite3")
	t.Setenv("ORMX_DATABASE_DSN", "file::memory:?cache=shared")

	cfg, err := Load("")
	require.NoError(t, err)

	defaults := NewDefaultConfig()
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "file::memory:?cache=shared", cfg.Database.DSN)
	assert.Equal(t, defaults.Database.Pool, cfg.Database.Pool)
	assert.Equal(t, defaults.Logging, cfg.Logging)
	assert.Equal(t, 200*time.Millisecond, cfg.Query.SlowQueryThreshold)
	assert.False(t, cfg.Query.LogQueries)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
database:
  driver: postgres
  dsn: postgres://localhost/app
  pool:
    maxOpenConns: 20
    connMaxLifetime: 30m
logging:
  level: debug
  format: json
query:
  slowQueryThreshold: 1s
  logQueries: true
  tracing: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 20, cfg.Database.Pool.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.Pool.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.Pool.ConnMaxLifetime)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, time.Second, cfg.Query.SlowQueryThreshold)
	assert.True(t, cfg.Query.LogQueries)
	assert.True(t, cfg.Query.Tracing)
	assert.False(t, cfg.Query.Metrics)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
database:
  driver: mysql
  dsn: root@/app
`)
	t.Setenv("ORMX_DATABASE_DSN", "app@/other")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "app@/other", cfg.Database.DSN)
}

func TestLoad_MissingRequired(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "field 'Config.Database.Driver' failed validation on 'required'")
	assert.Contains(t, err.Error(), "field 'Config.Database.DSN' failed validation on 'required'")
}

func TestLoad_UnsupportedDriver(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
database:
  driver: oracle
  dsn: x
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'oneof'")
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading configuration file")
}
