// Package query filters and sorts tasting records.
//
// The engine is stateless: it never mutates its input, never caches
// across calls, and holds no locks. Callers pass a record sequence (usually
// store.All) and get back a fresh slice.
//
// # Predicates
//
// A predicate set (Predicates) compiles to a tree of sealed Predicate
// nodes joined by And. Only types in this package implement Predicate,
// so Match and Pushdown can switch over them exhaustively.
//
//	Text        substring over coffee name, roastery, cafe, origin (OR)
//	Roastery    exact roastery
//	Cafe        exact cafe name
//	ScoreRange  inclusive total-score range
//	DateRange   inclusive createdAt range
//	FlavorAny   any-of on level-1 flavor values
//	ModeIn      any-of on mode
//	And         conjunction (empty = always true)
//
// Text matching normalizes both sides: NFC, Unicode case folding, and
// whitespace collapsed to single spaces.
//
// # Empty and inverted ranges
//
// An empty predicate set matches every live record. A date or score range
// whose lower bound exceeds its upper bound matches nothing; it is not an
// error.
package query
