//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// GlobalRand flags package-level random functions. Every realization draws
// from an explicitly seeded *rand.Rand so that tables are reproducible and
// independent of the worker count.
//
// Old pattern:
//
//	dx := rand.NormFloat64() * sigma
//
// New pattern:
//
//	dx := rng.NormFloat64() * sigma
func GlobalRand(m dsl.Matcher) {
	m.Import("math/rand/v2")

	m.Match(
		`rand.Float64()`,
		`rand.NormFloat64()`,
		`rand.ExpFloat64()`,
		`rand.IntN($_)`,
		`rand.Int64N($_)`,
		`rand.Uint64()`,
		`rand.Perm($_)`,
		`rand.Shuffle($*_)`,
	).
		Where(!m.File().Name.Matches(`_test\.go$`)).
		Report("use a seeded *rand.Rand instead of the global source; results must not depend on scheduling")
}

// LegacyRand flags the math/rand v1 package
func LegacyRand(m dsl.Matcher) {
	m.Match(`rand.Seed($_)`, `rand.NewSource($_)`).
		Where(m.File().Imports("math/rand")).
		Report("use math/rand/v2 with rand.NewPCG for seeded generators")
}

// TimeSeededRand flags generators seeded from the clock
func TimeSeededRand(m dsl.Matcher) {
	m.Import("math/rand/v2")

	m.Match(
		`rand.NewPCG(uint64(time.Now().$_()), $_)`,
		`rand.NewPCG($_, uint64(time.Now().$_()))`,
	).
		Report("seed generators from configuration; clock seeds make tables irreproducible")
}
