package utils

// Clamp returns v limited to the range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 returns v limited to the range [0.0, 1.0]. Confidence and relation
// strength values are stored in this range.
func Clamp01(v float64) float64 {
	return Clamp(v, 0.0, 1.0)
}
