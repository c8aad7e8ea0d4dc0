package clause_test

import (
	"testing"
	"time"

	"github.com/arllen133/ormx/clause"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		key, path, op string
	}{
		{"id", "id", "="},
		{"id >", "id", ">"},
		{"id>=", "id", ">="},
		{"Parent.email like", "Parent.email", "LIKE"},
		{"Parent.email NOT LIKE", "Parent.email", "NOT LIKE"},
		{"status not in", "status", "NOT IN"},
		{"created_at BETWEEN", "created_at", "BETWEEN"},
		{"id !=", "id", "!="},
		{"data->a->>b", "data->a->>b", "="},
		{"data->>b <>", "data->>b", "<>"},
		{"deleted_at IS NOT", "deleted_at", "IS NOT"},
		{"admin_in", "admin_in", "="},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			path, op := clause.ParseKey(tt.key)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.op, op)
		})
	}
}

func TestCondBuild(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := since.AddDate(0, 1, 0)

	tests := []struct {
		name     string
		cond     clause.Expression
		wantSQL  string
		wantArgs []any
	}{
		{"equality", clause.C("id", 1), `"id" = ?`, []any{1}},
		{"operator", clause.C("Parent.id >", 5), `"Parent"."id" > ?`, []any{5}},
		{"not equal normalized", clause.C("name !=", "x"), `"name" <> ?`, []any{"x"}},
		{"null", clause.C("parent_id", nil), `"parent_id" IS NULL`, nil},
		{"not null", clause.C("parent_id !=", nil), `"parent_id" IS NOT NULL`, nil},
		{"list becomes IN", clause.C("id", []int{1, 2, 3}), `"id" IN (?, ?, ?)`, []any{1, 2, 3}},
		{"list with not equal", clause.C("id !=", []string{"a", "b"}), `"id" NOT IN (?, ?)`, []any{"a", "b"}},
		{"empty list", clause.C("id", []int{}), "1 = 0", nil},
		{"between", clause.C("created_at BETWEEN", []time.Time{since, until}), `"created_at" BETWEEN ? AND ?`, []any{since, until}},
		{"scalar IN", clause.C("id IN", 4), `"id" = ?`, []any{4}},
		{"column value", clause.C("id", clause.Col("Parent.parent_id")), `"id" = "Parent"."parent_id"`, nil},
		{"expression value", clause.C("id IN", clause.Expr{SQL: "SELECT 1"}), `"id" IN (SELECT 1)`, nil},
		{"keyless expression", clause.Cond{Value: clause.Expr{SQL: "`a` > `b`"}}, `"a" > "b"`, nil},
		{
			"conds group",
			clause.Conds{clause.C("id", 1), clause.Or{clause.C("a", 1), clause.C("b", 2)}},
			`"id" = ? AND (("a" = ?) OR ("b" = ?))`,
			[]any{1, 1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.cond.Build(quoteBuilder{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCondInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		cond clause.Cond
	}{
		{"keyless scalar", clause.Cond{Value: 5}},
		{"keyless int list", clause.Cond{Value: []int{1, 2}}},
		{"mixed list", clause.C("id", []any{1, "2"})},
		{"nested list", clause.C("id", []any{[]int{1}})},
		{"between needs two", clause.C("id BETWEEN", []int{1})},
		{"between scalar", clause.C("id BETWEEN", 1)},
		{"null with greater", clause.C("id >", nil)},
		{"list with like", clause.C("name LIKE", []string{"a"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.cond.Build(quoteBuilder{})
			assert.ErrorIs(t, err, clause.ErrInvalidConditionValue)
		})
	}
}

func TestCondsWithout(t *testing.T) {
	conds := clause.Conds{
		clause.C("Parent.id", 10),
		clause.C("Parent.id >", 1),
		clause.C("is_active", true),
	}
	left := conds.Without("Parent.id")
	require.Len(t, left, 2)
	assert.Equal(t, "Parent.id >", left[0].(clause.Cond).Key)
	assert.Equal(t, "is_active", left[1].(clause.Cond).Key)
}
