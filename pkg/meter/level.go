// ABOUTME: Linear to decibel conversion
// ABOUTME: Reference level bias and peak-to-dB mapping
package meter

import (
	"math"
	"strconv"
)

// Bias returns the linear multiplier that places refLevelDB at 0 dB on the meter.
func Bias(refLevelDB float64) float64 {
	return math.Pow(10, refLevelDB*-0.05)
}

// ToDB converts a linear peak to dB after applying bias.
// A zero peak yields -Inf, which IECScale maps to zero deflection.
func ToDB(peak float32, bias float64) float64 {
	return 20 * math.Log10(float64(peak)*bias)
}

// FormatDB formats a dB value with one decimal place, as printed in numeric mode.
func FormatDB(db float64) string {
	switch {
	case math.IsInf(db, -1):
		return "-inf"
	case math.IsInf(db, 1):
		return "inf"
	case math.IsNaN(db):
		return "nan"
	}
	return strconv.FormatFloat(db, 'f', 1, 64)
}
