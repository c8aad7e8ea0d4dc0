package ormx_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/arllen133/ormx"
	"github.com/arllen133/ormx/clause"
)

// newAdmins declares the admins table used across tests:
//
//	admins.parent_id -> admins.id (Parent, BELONGS TO)
//	admins.id <- admins.parent_id (Children, HAS MANY)
//	admins.id <- admin_settings.admin_id (Settings, HAS ONE)
func newAdmins() (*ormx.TableStructure, *ormx.TableStructure) {
	admins := ormx.NewTableStructure("admins")
	admins.MustAddColumns(
		ormx.NewColumn("id", ormx.TypeID).PrimaryKey(),
		ormx.NewColumn("parent_id", ormx.TypeInt).Nullable(),
		ormx.NewColumn("email", ormx.TypeEmail).Unique(),
		ormx.NewColumn("password", ormx.TypePassword).Private().Nullable(),
		ormx.NewColumn("is_active", ormx.TypeBool).Default(true),
		ormx.NewColumn("settings", ormx.TypeJSONObject).Nullable().Heavy(),
		ormx.NewColumn("created_at", ormx.TypeTimestamp).Default(clause.Expr{SQL: "CURRENT_TIMESTAMP"}),
		ormx.NewColumn("notes", ormx.TypeText).Virtual().Nullable(),
	)

	settings := ormx.NewTableStructure("admin_settings", ormx.WithAlias("AdminSettings"))
	settings.MustAddColumns(
		ormx.NewColumn("id", ormx.TypeID).PrimaryKey(),
		ormx.NewColumn("admin_id", ormx.TypeInt),
		ormx.NewColumn("theme", ormx.TypeString).Default("light"),
	)

	admins.MustAddRelations(
		ormx.MustRelation("Parent", "parent_id", ormx.BelongsTo, admins, "id"),
		ormx.MustRelation("Children", "id", ormx.HasMany, admins, "parent_id"),
		ormx.MustRelation("Settings", "id", ormx.HasOne, settings, "admin_id"),
	)
	settings.MustAddRelations(
		ormx.MustRelation("Admin", "admin_id", ormx.BelongsTo, admins, "id"),
	)
	return admins, settings
}

const testSchema = `
CREATE TABLE admins (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	parent_id INTEGER NULL REFERENCES admins(id),
	email TEXT NOT NULL UNIQUE,
	password TEXT NULL,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	settings TEXT NULL,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE admin_settings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	admin_id INTEGER NOT NULL REFERENCES admins(id),
	theme TEXT NOT NULL DEFAULT 'light'
);`

// setupTestDB opens an in-memory sqlite database with the admins schema.
// TEST_DRIVER and TEST_DSN select another database that already has it.
func setupTestDB(t *testing.T, opts ...ormx.SessionOption) *ormx.Session {
	t.Helper()
	driver := os.Getenv("TEST_DRIVER")
	dsn := os.Getenv("TEST_DSN")
	if driver == "" {
		driver, dsn = "sqlite3", ":memory:"
	}

	db, err := sql.Open(driver, dsn)
	require.NoError(t, err)
	// a second connection would see another empty :memory: database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	dialect, err := ormx.DialectByName(driver)
	require.NoError(t, err)
	if driver == "sqlite3" {
		_, err = db.Exec(testSchema)
		require.NoError(t, err)
	}
	return ormx.NewSession(db, dialect, opts...)
}

// seedAdmins inserts root <- child <- grandchild and returns their ids.
func seedAdmins(t *testing.T, session *ormx.Session, admins *ormx.TableStructure) []int64 {
	t.Helper()
	ctx := context.Background()
	var ids []int64
	var parent any
	for _, email := range []string{"root@example.com", "child@example.com", "grandchild@example.com"} {
		r := ormx.NewRecord(admins, ormx.WithQuerier(session))
		require.NoError(t, r.SetMany(map[string]any{"email": email, "parent_id": parent}))
		require.NoError(t, r.Save(ctx))
		id, err := r.PrimaryKeyValue()
		require.NoError(t, err)
		ids = append(ids, id.(int64))
		parent = id
	}
	return ids
}
