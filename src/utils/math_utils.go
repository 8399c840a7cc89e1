package utils

import "math"

// AbsFloat returns the absolute value of a float64. Marketplace exports
// report fees as negative amounts.
func AbsFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// RoundFloat rounds a float64 to a specified number of decimal places.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
