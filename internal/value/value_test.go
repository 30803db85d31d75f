package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/atrettin/pisa/internal/quantity"
)

func TestParseScalar(t *testing.T) {
	t.Run("booleans", func(t *testing.T) {
		assert.Equal(t, cty.True, ParseScalar("True"))
		assert.Equal(t, cty.True, ParseScalar("true"))
		assert.Equal(t, cty.False, ParseScalar(" False "))
	})

	t.Run("none", func(t *testing.T) {
		assert.True(t, ParseScalar("None").IsNull())
		assert.True(t, ParseScalar("none").IsNull())
	})

	t.Run("numbers", func(t *testing.T) {
		assert.Equal(t, cty.NumberFloatVal(40), ParseScalar("40"))
		assert.Equal(t, cty.NumberFloatVal(2.5e-3), ParseScalar("2.5e-3"))
	})

	t.Run("strings", func(t *testing.T) {
		assert.Equal(t, cty.StringVal("honda-2015"), ParseScalar("honda-2015"))
		assert.Equal(t, cty.StringVal("a literal"), ParseScalar("'a literal'"))
	})
}

func TestParseList(t *testing.T) {
	v := ParseList("reco_energy, reco_coszen")
	require.True(t, v.Type().IsTupleType())
	assert.Equal(t, cty.TupleVal([]cty.Value{
		cty.StringVal("reco_energy"),
		cty.StringVal("reco_coszen"),
	}), v)

	v = ParseList("[1, 2, 3]")
	assert.Equal(t, cty.TupleVal([]cty.Value{
		cty.NumberFloatVal(1),
		cty.NumberFloatVal(2),
		cty.NumberFloatVal(3),
	}), v)
}

func TestSplitTop(t *testing.T) {
	t.Run("respects nesting", func(t *testing.T) {
		parts := SplitTop("a, [1, 2], {'k': [3, 4]}", ',')
		assert.Equal(t, []string{"a", "[1, 2]", "{'k': [3, 4]}"}, parts)
	})

	t.Run("respects quotes", func(t *testing.T) {
		parts := SplitTop("'x, y', z", ',')
		assert.Equal(t, []string{"'x, y'", "z"}, parts)
	})

	t.Run("drops empty fields", func(t *testing.T) {
		parts := SplitTop("a, , b,", ',')
		assert.Equal(t, []string{"a", "b"}, parts)
	})
}

func TestParseMapping(t *testing.T) {
	t.Run("axis spec", func(t *testing.T) {
		m, err := ParseMapping("{'num_bins': 40, 'is_log': True, 'domain': [1, 80] * units.GeV}")
		require.NoError(t, err)
		assert.Equal(t, []string{"num_bins", "is_log", "domain"}, m.Keys)

		raw, ok := m.Get("domain")
		require.True(t, ok)
		assert.Equal(t, "[1, 80] * units.GeV", raw)

		raw, ok = m.Get("num_bins")
		require.True(t, ok)
		assert.Equal(t, "40", raw)
	})

	t.Run("missing braces", func(t *testing.T) {
		_, err := ParseMapping("'num_bins': 40")
		var synErr *quantity.SyntaxError
		assert.ErrorAs(t, err, &synErr)
	})

	t.Run("missing colon", func(t *testing.T) {
		_, err := ParseMapping("{'num_bins' 40}")
		var synErr *quantity.SyntaxError
		assert.ErrorAs(t, err, &synErr)
	})

	t.Run("repeated key", func(t *testing.T) {
		_, err := ParseMapping("{'a': 1, 'a': 2}")
		var synErr *quantity.SyntaxError
		require.ErrorAs(t, err, &synErr)
		assert.Contains(t, synErr.Reason, "repeated")
	})
}
