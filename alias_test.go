package ormx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliaserShorten(t *testing.T) {
	a := newAliaser(32)

	short, err := a.shorten("_Admins__id")
	require.NoError(t, err)
	assert.Equal(t, "_Admins__id", short, "names within the limit are kept")

	long := "_" + strings.Repeat("VeryLongRelation", 3) + "__email"
	short, err = a.shorten(long)
	require.NoError(t, err)
	assert.Len(t, short, 32)
	assert.True(t, strings.HasPrefix(short, long[:15]+"_"))

	again, err := a.shorten(long)
	require.NoError(t, err)
	assert.Equal(t, short, again)

	other, err := a.shorten(long + "2")
	require.NoError(t, err)
	assert.NotEqual(t, short, other)
}

func TestAliaserLimits(t *testing.T) {
	unlimited := newAliaser(0)
	name := strings.Repeat("x", 200)
	short, err := unlimited.shorten(name)
	require.NoError(t, err)
	assert.Equal(t, name, short)

	tiny := newAliaser(10)
	_, err = tiny.shorten(strings.Repeat("y", 20))
	assert.ErrorIs(t, err, ErrIllegalState)
}

func TestAliaserCollision(t *testing.T) {
	a := newAliaser(32)
	long := strings.Repeat("z", 40)
	short, err := a.shorten(long)
	require.NoError(t, err)

	// a literal name equal to an existing short alias cannot be reused
	_, err = a.shorten(short)
	assert.ErrorIs(t, err, ErrIllegalState)
}
