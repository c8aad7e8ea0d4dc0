package ormx_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arllen133/ormx"
)

type themeSettings struct {
	Theme string   `json:"theme"`
	Tags  []string `json:"tags,omitempty"`
}

func TestJSONValue(t *testing.T) {
	j := ormx.NewJSON(themeSettings{Theme: "dark", Tags: []string{"a"}})
	v, err := j.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"theme":"dark","tags":["a"]}`), v)

	encoded, err := json.Marshal(j)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark","tags":["a"]}`, string(encoded))
}

func TestJSONScan(t *testing.T) {
	tests := []struct {
		desc    string
		input   any
		want    themeSettings
		wantErr error
	}{
		{desc: "bytes", input: []byte(`{"theme":"dark"}`), want: themeSettings{Theme: "dark"}},
		{desc: "string", input: `{"theme":"light","tags":["x"]}`, want: themeSettings{Theme: "light", Tags: []string{"x"}}},
		{desc: "nil", input: nil},
		{desc: "empty", input: []byte{}},
		{desc: "unsupported", input: 42, wantErr: ormx.ErrInvalidArgumentType},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			j := ormx.NewJSON(themeSettings{Theme: "previous"})
			err := j.Scan(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, j.Data)
		})
	}

	t.Run("InvalidJSON", func(t *testing.T) {
		var j ormx.JSON[themeSettings]
		assert.Error(t, j.Scan(`{"theme":`))
	})
}

func TestJSONUnmarshal(t *testing.T) {
	var wrapper struct {
		Settings ormx.JSON[themeSettings] `json:"settings"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"settings":{"theme":"dark"}}`), &wrapper))
	assert.Equal(t, "dark", wrapper.Settings.Data.Theme)
}
