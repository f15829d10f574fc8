package engine

import "math"

// roundToDecimalPrecision rounds a quantity to the configured number of
// decimal places. Whole-contract instruments run with precision 0.
func roundToDecimalPrecision(value float64, precision int) float64 {
	factor := math.Pow10(precision)

	return math.Round(value*factor) / factor
}
