package benchmarks

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/arllen133/ormx"
	"github.com/arllen133/ormx/clause"
)

func newBenchUsers() *ormx.TableStructure {
	users := ormx.NewTableStructure("bench_users")
	users.MustAddColumns(
		ormx.NewColumn("id", ormx.TypeID).PrimaryKey(),
		ormx.NewColumn("manager_id", ormx.TypeInt).Nullable(),
		ormx.NewColumn("username", ormx.TypeString),
		ormx.NewColumn("email", ormx.TypeEmail),
		ormx.NewColumn("created_at", ormx.TypeTimestamp),
	)
	users.MustAddRelations(
		ormx.MustRelation("Manager", "manager_id", ormx.BelongsTo, users, "id"),
	)
	return users
}

func setupBenchDB(b *testing.B) *ormx.Session {
	// Check Env
	driver := os.Getenv("TEST_DRIVER")
	dsn := os.Getenv("TEST_DSN")

	if driver == "" {
		driver = "sqlite3"
		dsn = ":memory:"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		b.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	b.Cleanup(func() { db.Close() })

	query := `CREATE TABLE IF NOT EXISTS bench_users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            manager_id INTEGER NULL,
            username TEXT,
            email TEXT,
            created_at DATETIME
        )`
	if driver == "mysql" {
		query = `CREATE TABLE IF NOT EXISTS bench_users (
            id BIGINT PRIMARY KEY AUTO_INCREMENT,
            manager_id BIGINT NULL,
            username VARCHAR(255),
            email VARCHAR(255),
            created_at DATETIME
        )`
	} else if driver == "postgres" || driver == "pgx" {
		query = `CREATE TABLE IF NOT EXISTS bench_users (
            id SERIAL PRIMARY KEY,
            manager_id INTEGER NULL,
            username TEXT,
            email TEXT,
            created_at TIMESTAMP
        )`
	}

	if _, err := db.Exec(query); err != nil {
		b.Fatalf("Failed to create table: %v", err)
	}
	if _, err := db.Exec("DELETE FROM bench_users"); err != nil {
		b.Fatalf("Failed to clear table: %v", err)
	}

	dialect, err := ormx.DialectByName(driver)
	if err != nil {
		b.Fatalf("Unsupported driver: %v", err)
	}
	return ormx.NewSession(db, dialect)
}

func insertUser(b *testing.B, session *ormx.Session, users *ormx.TableStructure, email string, manager any) *ormx.Record {
	r := ormx.NewRecord(users, ormx.WithQuerier(session))
	if err := r.SetMany(map[string]any{
		"username":   "bench",
		"email":      email,
		"manager_id": manager,
		"created_at": time.Now(),
	}); err != nil {
		b.Fatalf("Set failed: %v", err)
	}
	if err := r.Save(context.Background()); err != nil {
		b.Fatalf("Save failed: %v", err)
	}
	return r
}

func BenchmarkInsert(b *testing.B) {
	session := setupBenchDB(b)
	users := newBenchUsers()

	i := 0
	for b.Loop() {
		insertUser(b, session, users, fmt.Sprintf("bench%d@test.com", i), nil)
		i++
	}
}

func BenchmarkFetchRecordByPK(b *testing.B) {
	session := setupBenchDB(b)
	users := newBenchUsers()
	ctx := context.Background()

	id, _ := insertUser(b, session, users, "find@test.com", nil).PrimaryKeyValue()

	for b.Loop() {
		if _, err := ormx.NewOrmSelect(users, session).FetchRecordByPK(ctx, id); err != nil {
			b.Fatalf("FetchRecordByPK failed: %v", err)
		}
	}
}

func BenchmarkFetchManyWithJoins(b *testing.B) {
	session := setupBenchDB(b)
	users := newBenchUsers()
	ctx := context.Background()

	boss, _ := insertUser(b, session, users, "boss@test.com", nil).PrimaryKeyValue()
	for i := range 100 {
		insertUser(b, session, users, fmt.Sprintf("staff%d@test.com", i), boss)
	}

	for b.Loop() {
		rows, err := ormx.NewSelect(users, session).
			Columns("id", "email", "Manager.email").
			Where(clause.C("Manager.id", boss)).
			FetchMany(ctx)
		if err != nil || len(rows) != 100 {
			b.Fatalf("FetchMany failed: %v (%d rows)", err, len(rows))
		}
	}
}

func BenchmarkCompileSelect(b *testing.B) {
	users := newBenchUsers()

	for b.Loop() {
		_, _, err := ormx.NewSelect(users, nil).
			Columns(ormx.All(), ormx.Rel("Manager", "email", ormx.Rel("Manager", "email"))).
			Where(clause.C("Manager.Manager.id", 1), clause.C("email LIKE", "%@test.com")).
			OrderBy("Manager.email DESC").
			Limit(20).
			ToSQL()
		if err != nil {
			b.Fatalf("ToSQL failed: %v", err)
		}
	}
}
