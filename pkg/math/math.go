package math

import stdmath "math"

// Maximum calculates the maximum value among two integers
func Maximum(a int, b int) int {
	if a > b {
		return a
	}
	return b
}

//Minimum calculates the minimum value among two integers
func Minimum(a int, b int) int {
	if a > b {
		return b
	}
	return a
}

// NearestRankIndex returns the index of the pth percentile of a sorted sample
// of length n, using the nearest-rank method. n must be positive.
func NearestRankIndex(n int, p float64) int {
	if n <= 0 {
		return 0
	}
	rank := int(stdmath.Ceil(p / 100 * float64(n)))
	return Maximum(Minimum(rank, n), 1) - 1
}
