package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_NullIsNotZero(t *testing.T) {
	t.Parallel()

	assert.True(t, Null().IsNull())
	assert.False(t, Number(0).IsNull())

	_, ok := Null().Float()
	assert.False(t, ok)

	f, ok := Number(0).Float()
	assert.True(t, ok)
	assert.Equal(t, 0.0, f)
}

func TestValue_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Null().String())
	assert.Equal(t, "1200", Number(1200).String())
	assert.Equal(t, "12.5", Number(12.5).String())
	assert.Equal(t, "Mitte", String("Mitte").String())
}

func TestValue_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal([]Value{Null(), Number(3), String("x")})
	require.NoError(t, err)
	assert.JSONEq(t, `[null, 3, "x"]`, string(data))

	var decoded []Value
	require.NoError(t, json.Unmarshal([]byte(`[null, 41.5, "Süd", true]`), &decoded))
	require.Len(t, decoded, 4)
	assert.True(t, decoded[0].IsNull())
	f, _ := decoded[1].Float()
	assert.Equal(t, 41.5, f)
	s, _ := decoded[2].Text()
	assert.Equal(t, "Süd", s)
	b, _ := decoded[3].Float()
	assert.Equal(t, 1.0, b)
}

func TestValue_RejectsNested(t *testing.T) {
	t.Parallel()

	var v Value
	err := json.Unmarshal([]byte(`{"a": 1}`), &v)
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Value
	}{
		{"", Null()},
		{"42", Number(42)},
		{"-3.25", Number(-3.25)},
		{"yes", String("yes")},
		{"NaN", String("NaN")},
		{"Inf", String("Inf")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseValue(tt.in), "input %q", tt.in)
	}
}
