package ormx_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arllen133/ormx"
	"github.com/arllen133/ormx/clause"
)

func TestInformationSchemaDescriber(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	session := ormx.NewSession(db, ormx.PostgreSQL)
	describer := ormx.NewInformationSchemaDescriber(session)

	mock.ExpectQuery(`FROM information_schema.columns WHERE table_schema = \$1 AND table_name = \$2 ORDER BY ordinal_position`).
		WithArgs("public", "tags").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "char_length", "num_precision"}).
			AddRow("id", "integer", "NO", "nextval('tags_id_seq'::regclass)", nil, 32).
			AddRow("name", "character varying", "NO", nil, 100, nil).
			AddRow("owner_id", "bigint", "YES", nil, nil, 64).
			AddRow("created_at", "timestamp without time zone", "NO", "now()", nil, nil))
	mock.ExpectQuery(`FROM information_schema.table_constraints tc JOIN information_schema.key_column_usage kcu`).
		WithArgs("public", "tags").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "constraint_type"}).
			AddRow("id", "PRIMARY KEY").
			AddRow("name", "UNIQUE").
			AddRow("owner_id", "FOREIGN KEY"))

	desc, err := describer.DescribeTable(context.Background(), "tags", "")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "public", desc.Schema)
	require.Len(t, desc.Columns, 4)

	id, ok := desc.Column("id")
	require.True(t, ok)
	assert.True(t, id.IsPrimaryKey)
	assert.Equal(t, ormx.TypeID, id.OrmType)
	assert.EqualValues(t, 32, id.Precision)

	name, _ := desc.Column("name")
	assert.True(t, name.IsUnique)
	assert.Equal(t, ormx.TypeString, name.OrmType)
	assert.EqualValues(t, 100, name.Limit)

	owner, _ := desc.Column("owner_id")
	assert.True(t, owner.IsForeignKey)
	assert.True(t, owner.Nullable)

	t.Run("AddMissingColumns", func(t *testing.T) {
		tags := ormx.NewTableStructure("tags")
		tags.MustAddColumns(ormx.NewColumn("name", ormx.TypeString))

		added, err := tags.AddMissingColumns(desc)
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "owner_id", "created_at"}, added)

		assert.Equal(t, "id", tags.PrimaryKey().Name())
		created, _ := tags.Column("created_at")
		def, err := created.DefaultValueAsIs()
		require.NoError(t, err)
		assert.Equal(t, clause.Expr{SQL: "now()"}, def)
		owner, _ := tags.Column("owner_id")
		assert.True(t, owner.IsNullable())
	})
}

func TestInformationSchemaDescriberErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	describer := ormx.NewInformationSchemaDescriber(ormx.NewSession(db, ormx.MySQL))

	_, err = describer.DescribeTable(context.Background(), "", "")
	assert.ErrorIs(t, err, ormx.ErrEmptyArgument)

	mock.ExpectQuery(`WHERE table_schema = DATABASE\(\) AND table_name = \?`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}))
	_, err = describer.DescribeTable(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ormx.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())

	sqlite := ormx.NewInformationSchemaDescriber(ormx.NewSession(db, ormx.SQLite))
	_, err = sqlite.DescribeTable(context.Background(), "tags", "")
	assert.ErrorIs(t, err, ormx.ErrMissingConfiguration)
}

func TestDataTypeFromDB(t *testing.T) {
	tests := map[string]ormx.DataType{
		"boolean":                     ormx.TypeBool,
		"tinyint(1)":                  ormx.TypeBool,
		"bigint":                      ormx.TypeInt,
		"bigserial":                   ormx.TypeInt,
		"numeric(10,2)":               ormx.TypeFloat,
		"double precision":            ormx.TypeFloat,
		"timestamp with time zone":    ormx.TypeTimestampTZ,
		"timestamp without time zone": ormx.TypeTimestamp,
		"datetime":                    ormx.TypeTimestamp,
		"date":                        ormx.TypeDate,
		"time without time zone":      ormx.TypeTime,
		"jsonb":                       ormx.TypeJSONObject,
		"bytea":                       ormx.TypeBlob,
		"longtext":                    ormx.TypeText,
		"inet":                        ormx.TypeIPv4,
		"USER-DEFINED":                ormx.TypeEnum,
		"character varying":           ormx.TypeString,
	}
	for dbType, want := range tests {
		t.Run(dbType, func(t *testing.T) {
			assert.Equal(t, want, ormx.DataTypeFromDB(dbType))
		})
	}
}
