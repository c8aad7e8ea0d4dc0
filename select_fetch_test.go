package ormx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arllen133/ormx"
	"github.com/arllen133/ormx/clause"
)

func TestSelectFetch(t *testing.T) {
	ctx := context.Background()
	admins, _ := newAdmins()
	session := setupTestDB(t)
	ids := seedAdmins(t, session, admins)

	t.Run("FetchManyNestsJoins", func(t *testing.T) {
		rows, err := ormx.NewSelect(admins, session).
			Columns("id", "email", "Parent.email", "Parent.Parent.email").
			OrderBy("id").
			FetchMany(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 3)

		assert.Equal(t, ids[0], rows[0]["id"])
		assert.Equal(t, map[string]any{
			"email":  nil,
			"Parent": map[string]any{"email": nil},
		}, rows[0]["Parent"])

		parent := rows[1]["Parent"].(map[string]any)
		assert.Equal(t, "root@example.com", parent["email"])

		grandparent := rows[2]["Parent"].(map[string]any)["Parent"].(map[string]any)
		assert.Equal(t, "root@example.com", grandparent["email"])
	})

	t.Run("FetchOne", func(t *testing.T) {
		row, err := ormx.NewSelect(admins, session).
			Columns("email").
			Where(clause.C("Parent.email", "root@example.com")).
			FetchOne(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"email": "child@example.com"}, row)

		_, err = ormx.NewSelect(admins, session).Where(clause.C("id", 999)).FetchOne(ctx)
		assert.ErrorIs(t, err, ormx.ErrNotFound)
	})

	t.Run("FetchColumnAndAssoc", func(t *testing.T) {
		emails, err := ormx.NewSelect(admins, session).OrderBy("id DESC").FetchColumn(ctx, "email")
		require.NoError(t, err)
		assert.Equal(t, []any{"grandchild@example.com", "child@example.com", "root@example.com"}, emails)

		byID, err := ormx.NewSelect(admins, session).FetchAssoc(ctx, "id", "email")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"1": "root@example.com",
			"2": "child@example.com",
			"3": "grandchild@example.com",
		}, byID)
	})

	t.Run("FetchValue", func(t *testing.T) {
		v, err := ormx.NewSelect(admins, session).
			FetchValue(ctx, ormx.RawAs(clause.Expr{SQL: "MAX(?)", Vars: []any{clause.Col("id")}}, "max_id"))
		require.NoError(t, err)
		assert.Equal(t, ids[2], v)

		v, err = ormx.NewSelect(admins, session).Where(clause.C("id", 999)).FetchValue(ctx, "email")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("FetchCount", func(t *testing.T) {
		total, err := ormx.NewSelect(admins, session).Limit(1).FetchCount(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total, "limit does not apply to counts")

		withParent, err := ormx.NewSelect(admins, session).
			Where(clause.IsNotNull{Column: clause.Col("parent_id")}).
			FetchCount(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, withParent)

		distinct, err := ormx.NewSelect(admins, session).Columns("is_active").Distinct().FetchCount(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, distinct)

		exists, err := ormx.NewSelect(admins, session).Where(clause.C("email", "nobody@example.com")).Exists(ctx)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("FetchNextPage", func(t *testing.T) {
		sel := ormx.NewSelect(admins, session).Columns("id").OrderBy("id").Limit(2)

		first, err := sel.FetchNextPage(ctx)
		require.NoError(t, err)
		assert.Len(t, first, 2)
		second, err := sel.FetchNextPage(ctx)
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Equal(t, ids[2], second[0]["id"])
		third, err := sel.FetchNextPage(ctx)
		require.NoError(t, err)
		assert.Empty(t, third)

		_, err = ormx.NewSelect(admins, session).FetchNextPage(ctx)
		assert.ErrorIs(t, err, ormx.ErrIllegalState)
	})

	t.Run("Aggregates", func(t *testing.T) {
		sel := ormx.NewSelect(admins, session).OrderBy("email").Limit(1)

		sum, err := sel.Sum(ctx, "id")
		require.NoError(t, err)
		assert.Equal(t, float64(6), sum)

		avg, err := sel.Avg(ctx, "id")
		require.NoError(t, err)
		assert.Equal(t, float64(2), avg)

		minID, err := sel.Min(ctx, "id")
		require.NoError(t, err)
		assert.Equal(t, ids[0], minID)

		maxEmail, err := sel.Max(ctx, "Parent.email")
		require.NoError(t, err)
		assert.Equal(t, "root@example.com", maxEmail)

		none, err := ormx.NewSelect(admins, session).Where(clause.C("id", 999)).Sum(ctx, "id")
		require.NoError(t, err)
		assert.Zero(t, none)
	})

	t.Run("OrmSelectHydratesRelations", func(t *testing.T) {
		records, err := ormx.NewOrmSelect(admins, session).
			Columns(ormx.All(), ormx.Rel("Parent")).
			OrderBy("id").
			FetchRecords(ctx)
		require.NoError(t, err)
		require.Len(t, records, 3)

		_, err = records[0].Related(ctx, "Parent")
		assert.ErrorIs(t, err, ormx.ErrNotFound, "an all NULL join marks the relation as missing")

		parent, err := records[1].Related(ctx, "Parent")
		require.NoError(t, err)
		email, err := parent.Get("email")
		require.NoError(t, err)
		assert.Equal(t, "root@example.com", email)
		assert.True(t, parent.Exists())

		m, err := records[1].ToMap()
		require.NoError(t, err)
		assert.Equal(t, "root@example.com", m["Parent"].(map[string]any)["email"])
	})

	t.Run("OrmSelectChainKeepsRecordFetchers", func(t *testing.T) {
		records, err := ormx.NewOrmSelect(admins, session).
			Distinct().
			Where(clause.C("email", "root@example.com")).
			OrderBy("id").
			Limit(2).
			Offset(0).
			FetchRecords(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		pk, err := records[0].PrimaryKeyValue()
		require.NoError(t, err)
		assert.Equal(t, ids[0], pk)
	})

	t.Run("OrmSelectAlwaysSelectsPrimaryKey", func(t *testing.T) {
		r, err := ormx.NewOrmSelect(admins, session).
			Columns("email").
			Where(clause.C("email", "child@example.com")).
			FetchRecord(ctx)
		require.NoError(t, err)
		pk, err := r.PrimaryKeyValue()
		require.NoError(t, err)
		assert.Equal(t, ids[1], pk)

		_, err = ormx.NewOrmSelect(admins, session).FetchRecordByPK(ctx, 999)
		assert.ErrorIs(t, err, ormx.ErrNotFound)
	})
}
