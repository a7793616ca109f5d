//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// NaNComparison flags comparisons against math.NaN(), which are always false.
//
// Old pattern:
//
//	if std == math.NaN() { ... }
//
// New pattern:
//
//	if math.IsNaN(std) { ... }
func NaNComparison(m dsl.Matcher) {
	m.Match(`$x == math.NaN()`, `math.NaN() == $x`).
		Report("comparison with NaN is always false; use math.IsNaN($x)")
	m.Match(`$x != math.NaN()`, `math.NaN() != $x`).
		Report("comparison with NaN is always true; use !math.IsNaN($x)")
}

// SquareWithPow flags math.Pow for squares in moment code paths
func SquareWithPow(m dsl.Matcher) {
	m.Match(`math.Pow($x, 2)`).
		Where(m["x"].Pure).
		Suggest(`$x * $x`).
		Report("use $x * $x instead of math.Pow($x, 2)")
}

// MinMaxBuiltin detects math.Min/math.Max round trips through float64 for
// integers and suggests the built-ins (Go 1.21+).
func MinMaxBuiltin(m dsl.Matcher) {
	m.Match(`int(math.Min(float64($a), float64($b)))`).
		Suggest(`min($a, $b)`).
		Report("use min($a, $b) instead of int(math.Min(float64(...)))")
	m.Match(`int(math.Max(float64($a), float64($b)))`).
		Suggest(`max($a, $b)`).
		Report("use max($a, $b) instead of int(math.Max(float64(...)))")
}
