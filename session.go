package ormx

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/arllen133/ormx/config"
)

// Querier executes SQL built by Select and Record. Statements use "?"
// placeholders already converted to the dialect format.
type Querier interface {
	Dialect() Dialect

	// QueryMaps runs a query and returns every row as a column name to
	// value map. Text returned by the driver as []byte is converted to string.
	QueryMaps(ctx context.Context, query string, args ...any) ([]map[string]any, error)

	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Session manages the database connection and query observability.
type Session struct {
	db      *sqlx.DB
	dialect Dialect
	obs     observer
}

var _ Querier = (*Session)(nil)

func NewSession(db *sql.DB, dialect Dialect, opts ...SessionOption) *Session {
	s := &Session{
		db:      sqlx.NewDb(db, driverName(dialect)),
		dialect: dialect,
		obs:     observer{slowThreshold: DefaultSlowQueryThreshold},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// driverName is the database/sql driver registered for the dialect.
func driverName(d Dialect) string {
	if d.Name() == "postgres" {
		return "pgx"
	}
	return d.Name()
}

// Open connects using cfg. The sqlite3 driver must be linked by the caller
// (github.com/mattn/go-sqlite3); pgx and mysql are linked by ormx.
func Open(cfg config.Config, opts ...SessionOption) (*Session, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	dialect, err := DialectByName(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName(dialect), cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("ormx: open %s: %w", cfg.Database.Driver, err)
	}
	db.SetMaxOpenConns(cfg.Database.Pool.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.Pool.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.Pool.ConnMaxLifetime)

	base := []SessionOption{
		WithLogger(newLogger(cfg.Logging)),
		WithSlowQueryThreshold(cfg.Query.SlowQueryThreshold),
		WithQueryLogging(cfg.Query.LogQueries),
	}
	if cfg.Query.Tracing {
		base = append(base, WithDefaultTracer())
	}
	if cfg.Query.Metrics {
		base = append(base, WithDefaultMeter())
	}
	return NewSession(db, dialect, append(base, opts...)...), nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
}

func (s *Session) Dialect() Dialect { return s.dialect }

// DB returns the underlying connection pool.
func (s *Session) DB() *sqlx.DB { return s.db }

func (s *Session) Close() error { return s.db.Close() }

func (s *Session) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Session) QueryMaps(ctx context.Context, query string, args ...any) (rows []map[string]any, err error) {
	ctx, st := s.obs.begin(ctx, s.dialect.Name(), "query", query)
	defer func() { s.obs.end(ctx, s.dialect.Name(), st, err) }()

	result, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	for result.Next() {
		row := make(map[string]any)
		if err = result.MapScan(row); err != nil {
			return nil, err
		}
		for key, value := range row {
			if b, ok := value.([]byte); ok {
				row[key] = string(b)
			}
		}
		rows = append(rows, row)
	}
	if err = result.Err(); err != nil {
		return nil, err
	}
	st.rows = int64(len(rows))
	return rows, nil
}

func (s *Session) Exec(ctx context.Context, query string, args ...any) (res sql.Result, err error) {
	ctx, st := s.obs.begin(ctx, s.dialect.Name(), "exec", query)
	defer func() { s.obs.end(ctx, s.dialect.Name(), st, err) }()

	res, err = s.db.ExecContext(ctx, query, args...)
	if err == nil {
		if n, rerr := res.RowsAffected(); rerr == nil {
			st.rows = n
		}
	}
	return res, err
}
