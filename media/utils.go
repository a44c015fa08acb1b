package media

import "math"

// minInt returns the minimum of two int values
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// maxInt returns the maximum of two int values
func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// scaled multiplies n by f, rounding and keeping at least one pixel
func scaled(n int, f float64) int {
	return maxInt(1, int(math.Round(float64(n)*f)))
}
