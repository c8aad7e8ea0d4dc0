package field_test

import (
	"testing"

	"github.com/arllen133/ormx/field"
	"github.com/arllen133/ormx/field/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// PostMeta is a test metadata type
type PostMeta struct {
	ViewCount int      `json:"view_count"`
	Tags      []string `json:"tags"`
}

func TestJSONField(t *testing.T) {
	meta := field.JSON[PostMeta]{}.WithColumn("metadata")

	t.Run("ColumnName", func(t *testing.T) {
		assert.Equal(t, "metadata", meta.ColumnName())
	})

	t.Run("Path with dialect", func(t *testing.T) {
		sql, args, err := meta.Path("view_count").With(json.Postgres).Gt(10).Build(plainBuilder{})
		require.NoError(t, err)
		assert.Equal(t, "metadata #> '{view_count}' > ?::jsonb", sql)
		assert.Equal(t, []any{"10"}, args)
	})

	t.Run("SetPath puts column first", func(t *testing.T) {
		expr := meta.SetPath(json.MySQL, "view_count", 3)
		sql, args, err := expr.Build(plainBuilder{})
		require.NoError(t, err)
		assert.Equal(t, "JSON_SET(metadata, ?, CAST(? AS JSON))", sql)
		assert.Equal(t, []any{"$.view_count", "3"}, args)
	})

	t.Run("RemovePath postgres", func(t *testing.T) {
		sql, args, err := meta.RemovePath(json.Postgres, "tags").Build(plainBuilder{})
		require.NoError(t, err)
		assert.Equal(t, "metadata #- '{tags}'", sql)
		assert.Empty(t, args)
	})

	t.Run("MergePatch sqlite", func(t *testing.T) {
		sql, args, err := meta.MergePatch(json.SQLite, map[string]int{"view_count": 1}).Build(plainBuilder{})
		require.NoError(t, err)
		assert.Equal(t, "json_patch(metadata, ?)", sql)
		assert.Equal(t, []any{`{"view_count":1}`}, args)
	})
}

func TestJSONFieldWithTable(t *testing.T) {
	json.SetDefaultDialect(json.MySQL)

	meta := field.JSON[PostMeta]{}.WithTable("Parent").WithColumn("metadata")

	t.Run("ColumnName includes relation path", func(t *testing.T) {
		assert.Equal(t, "Parent.metadata", meta.ColumnName())
	})

	t.Run("PathEq uses default dialect", func(t *testing.T) {
		sql, _, err := meta.PathEq("$.tags", "go").Build(plainBuilder{})
		require.NoError(t, err)
		assert.Equal(t, "JSON_EXTRACT(Parent.metadata, ?) = CAST(? AS JSON)", sql)
	})
}

func TestJSONFieldDecode(t *testing.T) {
	meta := field.NewJSON[PostMeta]("metadata")
	r := memRecord{"metadata": `{"view_count":3,"tags":["go"]}`, "empty": nil, "broken": "{"}

	got, ok, err := meta.Decode(r)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, PostMeta{ViewCount: 3, Tags: []string{"go"}}, got)

	_, ok, err = meta.WithColumn("empty").Decode(r)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = meta.WithColumn("broken").Decode(r)
	assert.ErrorIs(t, err, field.ErrConversion)

	require.NoError(t, meta.Set(r, PostMeta{ViewCount: 1}))
	assert.Equal(t, PostMeta{ViewCount: 1}, r["metadata"])
}
