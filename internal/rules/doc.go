// Package rules defines the rule model for the reporting pipeline.
//
// This package contains the data model and pure transformations only. All
// other internal packages import rules; rules imports nothing internal.
//
// Two rule kinds exist, modeled as a sealed Rule interface:
//   - FilterRule: structured conditions authored directly
//   - AIRule: a natural-language prompt compiled once, at authoring time,
//     into a CompiledRule
//
// Flatten collapses an ordered rule set into the ordered CompiledFilter
// list that the query translator consumes. Once every AI rule is Compiled
// or disabled, flattening is fully deterministic - the language model is
// never involved again.
//
// Key design constraints:
//   - Value is a sealed union (scalar | list | range), never a nested object
//   - Operator/value shape compatibility is validated at construction
//   - Serialization is canonical: fixed key order, stable number format,
//     NFC-normalized strings
//   - Legacy single-condition FilterRules upgrade once, at load
package rules
