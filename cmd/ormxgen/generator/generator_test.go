package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arllen133/ormx"
)

func TestRender(t *testing.T) {
	desc := &ormx.TableDescription{
		Schema: "public",
		Name:   "user_roles",
		Columns: []ormx.ColumnDescription{
			{Name: "id", OrmType: ormx.TypeID, IsPrimaryKey: true, Default: "nextval('user_roles_id_seq')"},
			{Name: "role", OrmType: ormx.TypeString, IsUnique: true},
			{Name: "granted_at", OrmType: ormx.TypeTimestamp, Nullable: true, Default: "now()"},
		},
	}

	src, err := Render(desc, Options{Package: "schema"})
	require.NoError(t, err)

	want := `// Code generated by ormxgen. DO NOT EDIT.

package schema

import (
	"github.com/arllen133/ormx"
	"github.com/arllen133/ormx/clause"
)

// UserRoles is the structure of table user_roles.
var UserRoles = ormx.NewTableStructure("user_roles").
	MustAddColumns(
		ormx.NewColumn("id", ormx.TypeID).PrimaryKey(),
		ormx.NewColumn("role", ormx.TypeString).Unique(),
		ormx.NewColumn("granted_at", ormx.TypeTimestamp).Nullable().Default(clause.Expr{SQL: "now()"}),
	)
`
	assert.Equal(t, want, string(src))
}

func TestRenderSchemaAndDefaults(t *testing.T) {
	desc := &ormx.TableDescription{
		Schema:  "auth",
		Name:    "tokens",
		Columns: []ormx.ColumnDescription{{Name: "id", OrmType: ormx.TypeID, IsPrimaryKey: true}},
	}
	src, err := Render(desc, Options{VarName: "TokenTable"})
	require.NoError(t, err)
	assert.Contains(t, string(src), "package schema\n")
	assert.Contains(t, string(src), `var TokenTable = ormx.NewTableStructure("tokens", ormx.WithSchema("auth")).`)
	assert.NotContains(t, string(src), "ormx/clause")

	desc.Columns = append(desc.Columns, ormx.ColumnDescription{Name: "x", OrmType: ormx.DataType("money")})
	_, err = Render(desc, Options{})
	assert.ErrorContains(t, err, `unsupported data type "money"`)
}
