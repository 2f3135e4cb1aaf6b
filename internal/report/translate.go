// Package report translates flattened rule output into an executable query
// plan: compiled filters become QueryIR predicates, and a report's static
// configuration (columns, grouping, aggregation, order, limit) becomes a
// Select with the joins its fields require.
package report

import (
	"fmt"

	"github.com/MStee09/rocketreport/internal/queryir"
	"github.com/MStee09/rocketreport/internal/rules"
	"github.com/MStee09/rocketreport/internal/schema"
)

// Translate maps compiled filters onto QueryIR predicates, folding them
// into one AND-conjunction. Each filter narrows the result set further.
//
// Malformed filters (empty field, value shape that doesn't fit the
// operator) are dropped silently - rules are commonly mid-edit and one
// half-typed condition must not take the query down.
//
// Defined special cases:
//   - in/matches_any with an empty list matches NOTHING (Nothing
//     predicate), never "no restriction"
//   - not_in with an empty list excludes nothing and is dropped
//   - contains_any becomes a grouped OR of per-element pattern matches
//   - between is inclusive on both bounds
func Translate(filters []rules.CompiledFilter, cat *schema.Catalog) queryir.Predicate {
	var preds []queryir.Predicate
	for _, f := range filters {
		if f.Field == "" {
			continue
		}
		if err := f.Operator.CheckValue(f.Value); err != nil {
			continue
		}
		if p := translateOne(f, cat); p != nil {
			preds = append(preds, p)
		}
	}

	if len(preds) == 0 {
		return nil
	}
	if len(preds) == 1 {
		return preds[0]
	}
	return queryir.And{Predicates: preds}
}

var cmpOps = map[rules.Operator]queryir.CmpOp{
	rules.OpEq:  queryir.CmpEq,
	rules.OpNeq: queryir.CmpNeq,
	rules.OpGt:  queryir.CmpGt,
	rules.OpGte: queryir.CmpGte,
	rules.OpLt:  queryir.CmpLt,
	rules.OpLte: queryir.CmpLte,
}

var matchKinds = map[rules.Operator]queryir.MatchKind{
	rules.OpContains:    queryir.MatchContains,
	rules.OpNotContains: queryir.MatchContains,
	rules.OpStartsWith:  queryir.MatchPrefix,
	rules.OpEndsWith:    queryir.MatchSuffix,
}

func translateOne(f rules.CompiledFilter, cat *schema.Catalog) queryir.Predicate {
	field := cat.QualifyField(f.Field)

	switch f.Operator {
	case rules.OpEq, rules.OpNeq, rules.OpGt, rules.OpGte, rules.OpLt, rules.OpLte:
		return queryir.Compare{Field: field, Op: cmpOps[f.Operator], Value: f.Value}

	case rules.OpContains, rules.OpNotContains, rules.OpStartsWith, rules.OpEndsWith:
		return queryir.Match{
			Field:  field,
			Kind:   matchKinds[f.Operator],
			Needle: scalarText(f.Value),
			Negate: f.Operator == rules.OpNotContains,
		}

	case rules.OpIn, rules.OpMatchesAny:
		list := f.Value.(rules.List)
		if len(list) == 0 {
			// An empty membership list is defined to match nothing.
			return queryir.Nothing{}
		}
		return queryir.In{Field: field, Values: list}

	case rules.OpNotIn:
		list := f.Value.(rules.List)
		if len(list) == 0 {
			return nil // excluding nothing restricts nothing
		}
		return queryir.In{Field: field, Values: list, Negate: true}

	case rules.OpIsNull:
		return queryir.Null{Field: field}

	case rules.OpIsNotNull:
		return queryir.Null{Field: field, Negate: true}

	case rules.OpBetween:
		r, err := rules.AsRange(f.Value)
		if err != nil {
			return nil
		}
		return queryir.Between{Field: field, Lo: r.Min, Hi: r.Max}

	case rules.OpContainsAny:
		return matchEach(field, f.Value.(rules.List), func(ps []queryir.Predicate) queryir.Predicate {
			return queryir.Or{Predicates: ps}
		})

	case rules.OpContainsAll:
		return matchEach(field, f.Value.(rules.List), func(ps []queryir.Predicate) queryir.Predicate {
			if len(ps) == 1 {
				return ps[0]
			}
			return queryir.And{Predicates: ps}
		})

	default:
		return nil
	}
}

// matchEach builds one contains-match per list element and combines them.
func matchEach(field string, list rules.List, combine func([]queryir.Predicate) queryir.Predicate) queryir.Predicate {
	if len(list) == 0 {
		return nil
	}
	preds := make([]queryir.Predicate, 0, len(list))
	for _, elem := range list {
		preds = append(preds, queryir.Match{
			Field:  field,
			Kind:   queryir.MatchContains,
			Needle: scalarText(elem),
		})
	}
	return combine(preds)
}

// scalarText renders a scalar value as pattern-match text.
func scalarText(v rules.Value) string {
	switch val := v.(type) {
	case rules.Str:
		return string(val)
	case rules.Num:
		b, _ := rules.MarshalValue(val)
		return string(b)
	case rules.Bool:
		return fmt.Sprintf("%t", bool(val))
	default:
		return ""
	}
}
