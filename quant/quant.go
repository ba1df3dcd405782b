// Package quant maps physical quantities to fixed-width integer codes and back.
//
// Every quantizer is a pair of pure, total functions. Values outside the
// representable range saturate to the boundary code rather than wrapping, and
// NaN quantizes to zero. The loss is bounded by Resolution: for any in-range x,
//
//	|Dequantize(Quantize(x)) - x| <= Resolution(x) / 2
//
// Four families are provided:
//
//   - Linear (Scaled32): positions, slopes, energies, times and masses
//   - Table (Table(kind)): likelihood differences, MVA outputs, probabilities, chi2
//   - Ratio (Ratio16): correlation coefficients and other fractions in int16
//   - Log (Log16): energies spanning many orders of magnitude in int16
//
// Rounding is half away from zero.
package quant

import "math"

// Scale constants of the linear family.
const (
	PositionScale = 1.0e4 // 0.1 micron steps
	SlopeScale    = 1.0e8 // 1e-8 rad steps, full scale about +-21 rad
	EnergyScale   = 1.0e2 // 10 keV steps
	TimeScale     = 1.0e5 // 0.01 ps steps
	MassScale     = 1.0e3 // 1 keV steps
)

// Scale constants of the ratio and log families.
const (
	FractionScale  = 3.0e4 // fits [-1.09, 1.09] in int16
	LogEnergyScale = 1.0e3 // codes per e-fold
	LogEnergyUnit  = 1.0e-3
	// LogCurvatureUnit suits q/p uncertainties, which are of order 1e-9 to 1e-5 per MeV.
	LogCurvatureUnit = 1.0e-12
)

// Scaled32 is a linear quantizer producing int32 codes clamped to [Min, Max].
type Scaled32 struct {
	Scale float64
	Min   int32
	Max   int32
}

var (
	Position = Scaled32{Scale: PositionScale, Min: math.MinInt32, Max: math.MaxInt32}
	Slope    = Scaled32{Scale: SlopeScale, Min: math.MinInt32, Max: math.MaxInt32}
	Energy   = Scaled32{Scale: EnergyScale, Min: math.MinInt32, Max: math.MaxInt32}
	Time     = Scaled32{Scale: TimeScale, Min: math.MinInt32, Max: math.MaxInt32}
	Mass     = Scaled32{Scale: MassScale, Min: math.MinInt32, Max: math.MaxInt32}
)

// Quantize returns the code of v, saturating at Min and Max.
func (q Scaled32) Quantize(v float64) int32 {
	if math.IsNaN(v) {
		return 0
	}

	x := math.Round(v * q.Scale)
	if x >= float64(q.Max) {
		return q.Max
	}
	if x <= float64(q.Min) {
		return q.Min
	}

	return int32(x)
}

// Dequantize returns the value represented by code.
func (q Scaled32) Dequantize(code int32) float64 {
	return float64(code) / q.Scale
}

// Resolution returns the quantization step. It does not depend on v.
func (q Scaled32) Resolution(float64) float64 {
	return 1 / q.Scale
}

// Lowest returns the smallest representable value.
func (q Scaled32) Lowest() float64 {
	return q.Dequantize(q.Min)
}

// Highest returns the largest representable value.
func (q Scaled32) Highest() float64 {
	return q.Dequantize(q.Max)
}

// Ratio16 quantizes fractions into int16 codes.
type Ratio16 struct {
	Scale float64
}

// Fraction is the ratio quantizer used for correlation coefficients.
var Fraction = Ratio16{Scale: FractionScale}

// Quantize returns the code of v, saturating at the int16 range.
func (q Ratio16) Quantize(v float64) int16 {
	if math.IsNaN(v) {
		return 0
	}

	x := math.Round(v * q.Scale)
	if x >= math.MaxInt16 {
		return math.MaxInt16
	}
	if x <= math.MinInt16 {
		return math.MinInt16
	}

	return int16(x)
}

// QuantizeRatio quantizes num/den. A zero denominator yields the zero code.
func (q Ratio16) QuantizeRatio(num, den float64) int16 {
	if den == 0 {
		return 0
	}

	return q.Quantize(num / den)
}

// Dequantize returns the fraction represented by code.
func (q Ratio16) Dequantize(code int16) float64 {
	return float64(code) / q.Scale
}

// Resolution returns the quantization step.
func (q Ratio16) Resolution(float64) float64 {
	return 1 / q.Scale
}

// Log16 quantizes signed values on a logarithmic scale:
//
//	code = sign(v) * round(ln(1 + |v|/Unit) * Scale)
//
// The relative precision is roughly 1/Scale for |v| >> Unit and the absolute
// precision roughly Unit/Scale near zero.
type Log16 struct {
	Scale float64
	Unit  float64
}

// LogEnergy covers calorimeter energies from sub-keV up to about 1.7e11 MeV.
var LogEnergy = Log16{Scale: LogEnergyScale, Unit: LogEnergyUnit}

// LogCurvature covers q/p uncertainties up to about 170 per MeV with 0.1% relative steps.
var LogCurvature = Log16{Scale: LogEnergyScale, Unit: LogCurvatureUnit}

// Quantize returns the code of v, saturating at the symmetric int16 range.
func (q Log16) Quantize(v float64) int16 {
	if math.IsNaN(v) || v == 0 {
		return 0
	}

	x := math.Round(math.Log1p(math.Abs(v)/q.Unit) * q.Scale)
	if x > math.MaxInt16 {
		x = math.MaxInt16
	}
	if v < 0 {
		return -int16(x)
	}

	return int16(x)
}

// Dequantize returns the value represented by code.
func (q Log16) Dequantize(code int16) float64 {
	if code == 0 {
		return 0
	}

	mag := math.Expm1(math.Abs(float64(code))/q.Scale) * q.Unit
	if code < 0 {
		return -mag
	}

	return mag
}

// Resolution returns the width of the quantization step containing v.
func (q Log16) Resolution(v float64) float64 {
	return (q.Unit + math.Abs(v)) * math.Expm1(1/q.Scale)
}

// Highest returns the largest representable magnitude.
func (q Log16) Highest() float64 {
	return q.Dequantize(math.MaxInt16)
}
