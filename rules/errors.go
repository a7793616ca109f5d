//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// ErrorfWithoutWrap flags fmt.Errorf calls that format an error with %v or
// %s. Error categories travel through the wrap chain and are lost otherwise.
func ErrorfWithoutWrap(m dsl.Matcher) {
	m.Match(`fmt.Errorf($f, $*_, $err)`, `fmt.Errorf($f, $err)`).
		Where(m["err"].Type.Implements("error") && m["f"].Text.Matches(`%[vs]"$`)).
		Report("wrap $err with %w so errors.As can recover its category")
}

// StdErrorsInInternal flags the standard errors package inside internal
// packages, which build errors through internal/errors instead.
func StdErrorsInInternal(m dsl.Matcher) {
	m.Import("errors")

	m.Match(`errors.New($_)`).
		Where(m.File().Imports("errors") && m.File().PkgPath.Matches(`/internal/`) && !m.File().PkgPath.Matches(`/internal/errors$`)).
		Report("use the internal/errors builder so the error carries a component and category")
}
