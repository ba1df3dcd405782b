package quant

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScaled32_RoundTrip(t *testing.T) {
	quantizers := []struct {
		name string
		q    Scaled32
	}{
		{"Position", Position},
		{"Slope", Slope},
		{"Energy", Energy},
		{"Time", Time},
		{"Mass", Mass},
		{"DeltaLL", Table(DeltaLL)},
		{"MVA", Table(MVA)},
	}

	values := []float64{-1234.56789, -1.5, -0.001, 0.0003, 0.77, 12.3456789, 987.654321}

	for _, tt := range quantizers {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, int32(0), tt.q.Quantize(0))
			require.Equal(t, 0.0, tt.q.Dequantize(tt.q.Quantize(0)))

			for _, v := range values {
				if v < tt.q.Lowest() || v > tt.q.Highest() {
					continue
				}
				got := tt.q.Dequantize(tt.q.Quantize(v))
				require.InDelta(t, v, got, tt.q.Resolution(v)/2+1e-15, "value %v", v)
			}
		})
	}
}

func TestScaled32_ExactOnStep(t *testing.T) {
	// Values that are exact multiples of the step come back bit-identical.
	require.Equal(t, 0.25, Position.Dequantize(Position.Quantize(0.25)))
	require.Equal(t, 0.1234, Position.Dequantize(Position.Quantize(0.1234)))
	require.Equal(t, -12.5, Energy.Dequantize(Energy.Quantize(-12.5)))
	require.Equal(t, 0.00000003, Slope.Dequantize(Slope.Quantize(0.00000003)))

	for _, code := range []int32{-100000, -1, 1, 7, 65536, 123456789} {
		require.Equal(t, code, Position.Quantize(Position.Dequantize(code)))
		require.Equal(t, code, Mass.Quantize(Mass.Dequantize(code)))
	}
}

func TestScaled32_Saturation(t *testing.T) {
	t.Run("Full int32 range", func(t *testing.T) {
		require.Equal(t, int32(math.MaxInt32), Position.Quantize(1e12))
		require.Equal(t, int32(math.MinInt32), Position.Quantize(-1e12))
		require.Equal(t, int32(math.MaxInt32), Position.Quantize(math.Inf(1)))
		require.Equal(t, int32(math.MinInt32), Position.Quantize(math.Inf(-1)))

		// boundary value is returned, not a wrapped one
		require.Equal(t, Position.Highest(), Position.Dequantize(Position.Quantize(1e300)))
		require.Greater(t, Position.Dequantize(Position.Quantize(1e300)), 0.0)
		require.Less(t, Slope.Dequantize(Slope.Quantize(-1e3)), 0.0)
	})

	t.Run("Bounded table entries", func(t *testing.T) {
		prob := Table(Probability)
		require.Equal(t, int32(10000), prob.Quantize(1.5))
		require.Equal(t, int32(-10000), prob.Quantize(-7))
		require.Equal(t, 1.0, prob.Dequantize(prob.Quantize(2)))
		require.Equal(t, -1.0, prob.Dequantize(prob.Quantize(-1)))

		chi2 := Table(Chi2)
		require.Equal(t, int32(0), chi2.Quantize(-3))
		require.Equal(t, int32(math.MaxInt32), chi2.Quantize(1e12))
	})

	t.Run("NaN", func(t *testing.T) {
		require.Equal(t, int32(0), Energy.Quantize(math.NaN()))
	})
}

func TestRatio16(t *testing.T) {
	t.Run("Round trip", func(t *testing.T) {
		for _, v := range []float64{-1, -0.5, -0.12345, 0, 0.3, 0.999, 1} {
			got := Fraction.Dequantize(Fraction.Quantize(v))
			require.InDelta(t, v, got, Fraction.Resolution(v)/2+1e-15)
		}
	})

	t.Run("Exact on step", func(t *testing.T) {
		require.Equal(t, 0.0, Fraction.Dequantize(Fraction.Quantize(0)))
		require.Equal(t, 0.5, Fraction.Dequantize(Fraction.Quantize(0.5)))
		for _, code := range []int16{-30000, -1, 1, 15000, 30000} {
			require.Equal(t, code, Fraction.Quantize(Fraction.Dequantize(code)))
		}
	})

	t.Run("Saturation", func(t *testing.T) {
		require.Equal(t, int16(math.MaxInt16), Fraction.Quantize(2))
		require.Equal(t, int16(math.MinInt16), Fraction.Quantize(-2))
		require.Equal(t, int16(0), Fraction.Quantize(math.NaN()))
	})

	t.Run("Ratio", func(t *testing.T) {
		require.Equal(t, int16(0), Fraction.QuantizeRatio(1, 0))
		require.Equal(t, Fraction.Quantize(0.25), Fraction.QuantizeRatio(1, 4))
	})
}

func TestLog16(t *testing.T) {
	t.Run("Zero", func(t *testing.T) {
		require.Equal(t, int16(0), LogEnergy.Quantize(0))
		require.Equal(t, 0.0, LogEnergy.Dequantize(0))
	})

	t.Run("Round trip within one step", func(t *testing.T) {
		for _, v := range []float64{1e-4, 0.5, 3.25, 150, 2750.5, 45000, 1e7, -12.5, -3000} {
			got := LogEnergy.Dequantize(LogEnergy.Quantize(v))
			require.InDelta(t, v, got, LogEnergy.Resolution(v), "value %v", v)
		}
	})

	t.Run("Exact on step", func(t *testing.T) {
		for _, code := range []int16{1, 17, 1000, 12345, 32767, -5, -20000} {
			v := LogEnergy.Dequantize(code)
			require.Equal(t, code, LogEnergy.Quantize(v))
			require.Equal(t, v, LogEnergy.Dequantize(LogEnergy.Quantize(v)))
		}
	})

	t.Run("Symmetric", func(t *testing.T) {
		require.Equal(t, -LogEnergy.Quantize(123.4), LogEnergy.Quantize(-123.4))
	})

	t.Run("Saturation", func(t *testing.T) {
		require.Equal(t, int16(math.MaxInt16), LogEnergy.Quantize(1e30))
		require.Equal(t, int16(-math.MaxInt16), LogEnergy.Quantize(-1e30))
		require.Equal(t, int16(math.MaxInt16), LogEnergy.Quantize(math.Inf(1)))
		require.Equal(t, LogEnergy.Highest(), LogEnergy.Dequantize(LogEnergy.Quantize(1e30)))
		require.Equal(t, int16(0), LogEnergy.Quantize(math.NaN()))
	})
}

func TestTable(t *testing.T) {
	require.Equal(t, 1.0e4, Table(DeltaLL).Scale)
	require.Equal(t, 1.0e6, Table(MVA).Scale)
	require.Equal(t, Table(DeltaLL), Table(Kind(200)))
	require.Equal(t, "Probability", Probability.String())
	require.Equal(t, "Kind(9)", Kind(9).String())
}

func BenchmarkPositionQuantize(b *testing.B) {
	v := 123.456789
	for b.Loop() {
		_ = Position.Quantize(v)
	}
}

func BenchmarkLogEnergyQuantize(b *testing.B) {
	v := 2750.5
	for b.Loop() {
		_ = LogEnergy.Quantize(v)
	}
}

func TestLogCurvature(t *testing.T) {
	for _, v := range []float64{1e-9, 3.3e-8, 2e-6, 7.5e-5} {
		got := LogCurvature.Dequantize(LogCurvature.Quantize(v))
		require.InDelta(t, v, got, LogCurvature.Resolution(v), "value %v", v)
		require.InEpsilon(t, v, got, 1e-3)
	}

	require.Greater(t, LogCurvature.Highest(), 0.1)
}
