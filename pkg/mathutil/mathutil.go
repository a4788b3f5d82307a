// Package mathutil provides small integer comparison helpers used to clamp
// values without repeating an if-statement at every call site.
package mathutil

// Min returns the smaller of a and b.
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
