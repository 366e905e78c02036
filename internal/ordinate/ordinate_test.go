package ordinate

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestOrdinate_ZeroValue(t *testing.T) {
	var o Ordinate
	assert.True(t, o.IsZero())
	assert.Equal(t, "0", o.String())
	assert.True(t, o.Equal(Zero()))
}

func TestOrdinate_ExactDecimalSum(t *testing.T) {
	sum := MustParse("0.1").Add(MustParse("0.2"))
	assert.True(t, sum.Equal(MustParse("0.3")), "0.1 + 0.2 must be exactly 0.3, got %s", sum)
	assert.Equal(t, "0.3", sum.String())
}

func TestOrdinate_RepeatedSmallSteps(t *testing.T) {
	// Ten thousand steps of 0.0001 land exactly on 1.
	step := MustParse("0.0001")
	pos := Zero()
	for i := 0; i < 10000; i++ {
		pos = pos.Add(step)
	}
	assert.True(t, pos.Equal(FromInt(1)), "got %s", pos)

	remaining := FromInt(1)
	for i := 0; i < 10000; i++ {
		remaining = remaining.Sub(step)
	}
	assert.Equal(t, 0, remaining.Sign(), "got %s", remaining)
}

func TestOrdinate_Arithmetic(t *testing.T) {
	assert.Equal(t, "7000", FromInt(7).Mul(FromInt(1000)).String())
	assert.Equal(t, "-2.5", MustParse("2.5").Sub(FromInt(5)).String())
	assert.Equal(t, "0.25", FromInt(1).Quo(FromInt(4)).String())
	assert.Equal(t, "0", FromInt(0).Mul(FromInt(-1)).String())
}

func TestOrdinate_SumsAreNotRounded(t *testing.T) {
	seventh := FromInt(1).Quo(FromInt(7))
	assert.Equal(t, "0.1428571428571428571428571428571429", seventh.String())

	// 5 - 1/7 needs 35 digits; rounding it would leave the round trip off
	// by one unit in the last place.
	back := FromInt(5).Sub(seventh).Add(seventh)
	assert.Equal(t, "5", back.String())

	assert.Equal(t, "0.07142857142857142857142857142857145", seventh.Mul(MustParse("0.5")).String())
}

func TestOrdinate_QuoByZeroPanics(t *testing.T) {
	assert.Panics(t, func() { FromInt(1).Quo(Zero()) })
}

func TestOrdinate_Infinity(t *testing.T) {
	inf := Infinity()
	assert.True(t, inf.IsInf())
	assert.Equal(t, 1, inf.Cmp(FromInt(1_000_000)))
	assert.Equal(t, -1, FromInt(-5).Cmp(inf))
	assert.True(t, inf.Equal(Infinity()))
	assert.Equal(t, "Infinity", inf.String())
	assert.True(t, math.IsInf(inf.Float64(), 1))
	assert.True(t, Min(inf, FromInt(3)).Equal(FromInt(3)))
}

func TestOrdinate_CmpIgnoresRepresentation(t *testing.T) {
	assert.True(t, MustParse("0.30").Equal(MustParse("0.3")))
	assert.True(t, MustParse("1e3").Equal(FromInt(1000)))
	assert.Equal(t, "1000", MustParse("1e3").String())
}

func TestParse_Errors(t *testing.T) {
	tests := []string{"", "abc", "NaN", "-Infinity", "1.2.3"}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestFromFloat(t *testing.T) {
	o, err := FromFloat(0.1)
	require.NoError(t, err)
	assert.Equal(t, "0.1", o.String())

	o, err = FromFloat(math.Inf(1))
	require.NoError(t, err)
	assert.True(t, o.IsInf())

	_, err = FromFloat(math.NaN())
	assert.Error(t, err)
}

func TestMinMax(t *testing.T) {
	a, b := FromInt(2), MustParse("2.5")
	assert.True(t, Min(a, b).Equal(a))
	assert.True(t, Max(a, b).Equal(b))
}

func TestOrdinate_JSON(t *testing.T) {
	data, err := json.Marshal(MustParse("12.50"))
	require.NoError(t, err)
	assert.Equal(t, `"12.5"`, string(data))

	var fromString, fromNumber Ordinate
	require.NoError(t, json.Unmarshal([]byte(`"0.125"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`0.125`), &fromNumber))
	assert.True(t, fromString.Equal(fromNumber))
}

func TestOrdinate_YAML(t *testing.T) {
	var doc struct {
		A Ordinate `yaml:"a"`
		B Ordinate `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 1000\nb: \"0.5\"\n"), &doc))
	assert.Equal(t, "1000", doc.A.String())
	assert.Equal(t, "0.5", doc.B.String())
}
