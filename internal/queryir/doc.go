// Package queryir provides the abstract query intermediate representation
// between the rule pipeline and backend query compilers.
//
// The reporting pipeline flattens rules into CompiledFilters, translates
// them into Predicates, and assembles a Select plan:
//
//	[rules] → [CompiledFilter list] → [Query IR] → [SQL backend]
//
// Query and Predicate are sealed interfaces using the marker method
// pattern. Only types in this package implement them, which enables
// exhaustive type switches in backends and compile-time safety against
// external extensions.
//
// Predicate semantics worth knowing:
//   - And of zero predicates is vacuously true
//   - Or must be grouped by backends (parentheses) so it cannot AND-fold
//     incorrectly against neighboring predicates
//   - Nothing matches zero rows; it is how an empty in-list compiles,
//     because "empty set membership" must never mean "no restriction"
//   - Between is inclusive on both ends
package queryir
