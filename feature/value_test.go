package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greentheorystudio/openlayers/geom"
)

func TestValueFloat(t *testing.T) {
	t.Run("Number", func(t *testing.T) {
		assert.Equal(t, 42.5, Number(42.5).Float())
	})

	t.Run("NumericString", func(t *testing.T) {
		assert.Equal(t, 17.0, String("17").Float())
		assert.Equal(t, -3.25, String(" -3.25 ").Float())
	})

	t.Run("NaNSentinel", func(t *testing.T) {
		assert.True(t, math.IsNaN(Value{}.Float()), "absent")
		assert.True(t, math.IsNaN(Null().Float()), "null")
		assert.True(t, math.IsNaN(String("camera-12").Float()), "non-numeric string")
		assert.True(t, math.IsNaN(Bool(true).Float()), "bool")
		assert.True(t, math.IsNaN(Array(nil).Float()), "array")
	})
}

func TestValueKey(t *testing.T) {
	t.Run("AbsentMatchesAbsent", func(t *testing.T) {
		assert.Equal(t, Value{}.Key(), Value{}.Key())
	})

	t.Run("AbsentDistinctFromNull", func(t *testing.T) {
		assert.NotEqual(t, Value{}.Key(), Null().Key())
	})

	t.Run("KindsNeverCollide", func(t *testing.T) {
		// "1" as string vs 1 as number vs true as bool
		keys := []string{String("1").Key(), Number(1).Key(), Bool(true).Key()}
		seen := map[string]bool{}
		for _, k := range keys {
			assert.False(t, seen[k], "duplicate key %q", k)
			seen[k] = true
		}
	})

	t.Run("NumberExactness", func(t *testing.T) {
		assert.Equal(t, Number(0.1).Key(), Number(0.1).Key())
		assert.NotEqual(t, Number(0.1).Key(), Number(0.1000001).Key())
	})
}

func TestValueAccessors(t *testing.T) {
	f, ok := Number(2).AsFloat64()
	require.True(t, ok)
	assert.Equal(t, 2.0, f)

	_, ok = Number(2).AsString()
	assert.False(t, ok)

	s, ok := String("x").AsString()
	require.True(t, ok)
	assert.Equal(t, "x", s)

	members := []*Feature{New(geom.NewPoint(0, 0))}
	fs, ok := Features(members).AsFeatures()
	require.True(t, ok)
	assert.Same(t, members[0], fs[0])
}

func TestAttributesClone(t *testing.T) {
	a := Attributes{"k": Number(1)}
	b := a.Clone()
	b["k"] = Number(2)
	assert.Equal(t, Number(1), a["k"])

	var nilAttrs Attributes
	assert.Nil(t, nilAttrs.Clone())
}
