package ormx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arllen133/ormx"
	"github.com/arllen133/ormx/clause"
)

func TestNewRelation(t *testing.T) {
	admins, _ := newAdmins()

	tests := []struct {
		desc          string
		name          string
		local         string
		kind          ormx.RelationKind
		foreign       *ormx.TableStructure
		foreignColumn string
		wantErr       error
	}{
		{desc: "valid", name: "Creator", local: "parent_id", kind: ormx.BelongsTo, foreign: admins, foreignColumn: "id"},
		{desc: "snake case name", name: "creator", local: "parent_id", kind: ormx.BelongsTo, foreign: admins, foreignColumn: "id", wantErr: ormx.ErrSchemaDefinition},
		{desc: "empty local column", name: "Creator", kind: ormx.BelongsTo, foreign: admins, foreignColumn: "id", wantErr: ormx.ErrMissingConfiguration},
		{desc: "unknown kind", name: "Creator", local: "parent_id", kind: ormx.RelationKind(9), foreign: admins, foreignColumn: "id", wantErr: ormx.ErrInvalidArgumentType},
		{desc: "no foreign structure", name: "Creator", local: "parent_id", kind: ormx.BelongsTo, foreignColumn: "id", wantErr: ormx.ErrMissingConfiguration},
		{desc: "unknown foreign column", name: "Creator", local: "parent_id", kind: ormx.BelongsTo, foreign: admins, foreignColumn: "uid", wantErr: ormx.ErrUnknownColumn},
		{desc: "has many on primary key", name: "Kids", local: "id", kind: ormx.HasMany, foreign: admins, foreignColumn: "id", wantErr: ormx.ErrInvalidRelation},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			rel, err := ormx.NewRelation(tt.name, tt.local, tt.kind, tt.foreign, tt.foreignColumn)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, rel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ormx.LeftJoin, rel.JoinType())
		})
	}

	assert.Panics(t, func() { ormx.MustRelation("bad", "id", ormx.HasOne, admins, "id") })
	assert.ErrorIs(t, ormx.ErrInvalidRelation, ormx.ErrSchemaDefinition)
}

func TestRelationKindString(t *testing.T) {
	assert.Equal(t, "BELONGS TO", ormx.BelongsTo.String())
	assert.Equal(t, "HAS ONE", ormx.HasOne.String())
	assert.Equal(t, "HAS MANY", ormx.HasMany.String())
	assert.Equal(t, "RelationKind(7)", ormx.RelationKind(7).String())
}

func TestRelationToJoin(t *testing.T) {
	admins, settings := newAdmins()

	rel, ok := admins.Relation("Settings")
	require.True(t, ok)
	assert.Same(t, admins, rel.LocalStructure())

	j := rel.ToJoin("Admins", "")
	assert.Equal(t, "Settings", j.Name)
	assert.Equal(t, "Admins", j.LocalAlias)
	assert.Equal(t, "id", j.LocalColumn)
	assert.Same(t, settings, j.Foreign)
	assert.Equal(t, "admin_id", j.ForeignColumn)
	assert.Same(t, rel, j.Relation())

	assert.Equal(t, "MySettings", rel.ToJoin("Admins", "MySettings").Name)
}

func TestRelationConditions(t *testing.T) {
	admins, settings := newAdmins()

	t.Run("Static", func(t *testing.T) {
		rel := ormx.MustRelation("DarkSettings", "id", ormx.HasOne, settings, "admin_id").
			WithConditions(clause.C("theme", "dark"), clause.C("admin_id", 5)).
			WithJoinType(ormx.InnerJoin)
		require.NoError(t, admins.AddRelation(rel))

		j := rel.ToJoin("Admins", "")
		assert.Equal(t, ormx.InnerJoin, j.Type)
		assert.Equal(t, clause.Conds{clause.C("theme", "dark")}, j.Conditions,
			"conditions on the join column never replace the base predicate")
	})

	t.Run("Func", func(t *testing.T) {
		var seenAlias string
		rel := ormx.MustRelation("OwnSettings", "id", ormx.HasOne, settings, "admin_id").
			WithConditionsFunc(func(r *ormx.Relation, localAlias string) clause.Conds {
				seenAlias = localAlias
				return clause.Conds{clause.C("theme", "light")}
			})

		extra := rel.AdditionalConditions("Parent")
		assert.Equal(t, "Parent", seenAlias)
		assert.Equal(t, clause.Conds{clause.C("theme", "light")}, extra)
	})

	t.Run("InSelect", func(t *testing.T) {
		rel := ormx.MustRelation("LightSettings", "id", ormx.HasOne, settings, "admin_id").
			WithConditions(clause.C("theme", "light"))
		require.NoError(t, admins.AddRelation(rel))

		query, args, err := ormx.NewSelect(admins, nil).Columns("id", "LightSettings.theme").ToSQL()
		require.NoError(t, err)
		assert.Equal(t, `SELECT "Admins"."id" AS "_Admins__id", "LightSettings"."theme" AS "_LightSettings__theme"`+
			` FROM "admins" AS "Admins"`+
			` LEFT JOIN "admin_settings" AS "LightSettings"`+
			` ON ("Admins"."id" = "LightSettings"."admin_id" AND "LightSettings"."theme" = $1)`, query)
		assert.Equal(t, []any{"light"}, args)
	})
}
