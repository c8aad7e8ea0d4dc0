package ormx_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arllen133/ormx"
)

func newContainer(t *testing.T) *ormx.ValueContainer {
	t.Helper()
	return ormx.NewValueContainer(ormx.NewColumn("name", ormx.TypeString), nil)
}

func TestValueContainerStates(t *testing.T) {
	c := newContainer(t)
	assert.False(t, c.HasValue())
	_, err := c.Value()
	assert.ErrorIs(t, err, ormx.ErrValueNotSet)

	require.NoError(t, c.SetRawValue(" raw ", "raw", false))
	assert.True(t, c.HasRawValue())
	assert.False(t, c.IsValidated())
	assert.Equal(t, " raw ", c.RawValue())

	err = c.SetRawValue("again", "again", false)
	assert.ErrorIs(t, err, ormx.ErrDuplicateWrite)
	assert.ErrorIs(t, err, ormx.ErrValueState)

	err = c.SetValidValue("raw", "other")
	assert.ErrorIs(t, err, ormx.ErrInconsistentRawValue)

	require.NoError(t, c.SetValidValue("raw", " raw "))
	assert.True(t, c.IsValidated())
	assert.True(t, c.IsValid())
	v, err := c.Value()
	require.NoError(t, err)
	assert.Equal(t, "raw", v)

	_, err = c.OldValue()
	assert.ErrorIs(t, err, ormx.ErrNoOldValue)

	// a validated value may be replaced and becomes the old value
	require.NoError(t, c.SetValue("next", "next", true))
	old, err := c.OldValue()
	require.NoError(t, err)
	assert.Equal(t, "raw", old)
	oldFromDB, err := c.IsOldValueFromDB()
	require.NoError(t, err)
	assert.False(t, oldFromDB)
	assert.True(t, c.IsFromDB())
}

func TestValueContainerValidationErrors(t *testing.T) {
	c := newContainer(t)
	require.NoError(t, c.SetRawValue(1, 1, false))
	c.SetValidationErrors([]string{ormx.MsgNotString})

	assert.True(t, c.IsValidated())
	assert.False(t, c.IsValid())
	assert.Equal(t, []string{ormx.MsgNotString}, c.ValidationErrors())

	// invalid values never become old values
	require.NoError(t, c.SetValue("ok", "ok", false))
	assert.True(t, c.IsValid())
	assert.False(t, c.HasOldValue())
}

func TestValueContainerSetValidValueWithoutRaw(t *testing.T) {
	c := newContainer(t)
	err := c.SetValidValue("x", "x")
	assert.ErrorIs(t, err, ormx.ErrInconsistentRawValue)
}

func TestValueContainerPayload(t *testing.T) {
	c := newContainer(t)

	err := c.AddPayload("k", 1)
	assert.ErrorIs(t, err, ormx.ErrIllegalState, "payload needs a value")

	require.NoError(t, c.SetValue("v", "v", false))
	require.NoError(t, c.AddPayload("k", 1))
	require.NoError(t, c.AddPayload(7, "seven"))

	_, _, err = c.Payload(1.5)
	assert.ErrorIs(t, err, ormx.ErrInvalidKeyType)
	assert.ErrorIs(t, c.AddPayload(struct{}{}, 1), ormx.ErrInvalidKeyType)
	assert.ErrorIs(t, c.SetPayload(map[any]any{true: 1}), ormx.ErrInvalidKeyType)

	v, ok, err := c.Payload(7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "seven", v)
	assert.Len(t, c.AllPayload(), 2)

	require.NoError(t, c.RemovePayload("k"))
	_, ok, _ = c.Payload("k")
	assert.False(t, ok)

	// a new value drops the payload
	require.NoError(t, c.SetValue("w", "w", false))
	assert.Empty(t, c.AllPayload())
}

func TestValueContainerRememberPayload(t *testing.T) {
	c := newContainer(t)
	calls := 0
	producer := func() (any, error) {
		calls++
		return "computed", nil
	}

	_, err := c.RememberPayload("k", producer)
	assert.ErrorIs(t, err, ormx.ErrIllegalState)

	require.NoError(t, c.SetValue("v", "v", false))
	for range 3 {
		v, err := c.RememberPayload("k", producer)
		require.NoError(t, err)
		assert.Equal(t, "computed", v)
	}
	assert.Equal(t, 1, calls)

	failure := errors.New("boom")
	_, err = c.RememberPayload("f", func() (any, error) { return nil, failure })
	assert.ErrorIs(t, err, failure)
	_, ok, _ := c.Payload("f")
	assert.False(t, ok, "failed results are not stored")

	c.ClearPayload()
	_, err = c.RememberPayload("k", producer)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestValueContainerClone(t *testing.T) {
	c := newContainer(t)
	require.NoError(t, c.SetValue("v", "v", true))
	require.NoError(t, c.AddPayload("k", 1))

	clone := c.Clone()
	require.NoError(t, clone.SetValue("w", "w", false))
	require.NoError(t, clone.AddPayload("k", 2))

	v, _ := c.Value()
	assert.Equal(t, "v", v)
	assert.True(t, c.IsFromDB())
	p, _, _ := c.Payload("k")
	assert.Equal(t, 1, p)
	assert.Same(t, c.Column(), clone.Column())
}

func TestValueContainerDefaults(t *testing.T) {
	admins, _ := newAdmins()
	col, ok := admins.Column("is_active")
	require.True(t, ok)

	standalone := ormx.NewValueContainer(col, nil)
	assert.True(t, standalone.IsDefaultValueCanBeSet())
	v, err := standalone.ValueOrDefault()
	require.NoError(t, err)
	assert.Equal(t, true, v)
	assert.False(t, standalone.HasValue(), "reading the default does not store it")

	require.NoError(t, standalone.SetValue(nil, nil, false))
	v, err = standalone.ValueOrDefault()
	require.NoError(t, err)
	assert.Nil(t, v, "an explicit NULL wins over the default")

	r := ormx.NewRecord(admins)
	c, err := r.Container("is_active")
	require.NoError(t, err)
	assert.True(t, c.HasValueOrDefault())
	require.NoError(t, r.SetFromDB(map[string]any{"id": int64(1)}))
	assert.False(t, c.IsDefaultValueCanBeSet())
	assert.False(t, c.HasValueOrDefault())
}
