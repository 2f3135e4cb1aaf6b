package queryir

import (
	"fmt"
	"strings"
)

// ValidationError describes a structural problem in a query plan.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Validation error codes.
const (
	ErrCodeNoTable         = "NO_BASE_TABLE"
	ErrCodeUnknownAlias    = "UNKNOWN_JOIN_ALIAS"
	ErrCodeBadAggregation  = "INVALID_AGGREGATION"
	ErrCodeAmbiguousSelect = "AMBIGUOUS_SELECT"
	ErrCodeBadOrdering     = "INVALID_ORDERING"
)

// Validate checks a Select for structural problems before compilation.
//
// The important case: a grouped query must not mix aggregated and
// non-aggregated columns outside the GROUP BY list. That ambiguity is
// rejected fast with a descriptive error rather than compiled into a query
// whose per-row values are undefined.
func Validate(q Select) error {
	if q.From == "" {
		return &ValidationError{Code: ErrCodeNoTable, Message: "query has no base table"}
	}

	aliases := map[string]bool{q.From: true}
	for _, j := range q.Joins {
		if j.Alias == "" || j.Table == "" {
			return &ValidationError{
				Code:    ErrCodeUnknownAlias,
				Message: "join is missing table or alias",
			}
		}
		aliases[j.Alias] = true
	}

	// Every alias-qualified field must reference the base table or a
	// declared join. The routing table and the join list drifting apart is
	// exactly the bug this catches.
	check := func(where, field string) error {
		if alias, _, ok := strings.Cut(field, "."); ok && !aliases[alias] {
			return &ValidationError{
				Code:    ErrCodeUnknownAlias,
				Message: fmt.Sprintf("%s references alias %q with no matching join", where, alias),
			}
		}
		return nil
	}
	for _, col := range q.Columns {
		if err := check("select column "+col.Field, col.Field); err != nil {
			return err
		}
	}
	for _, g := range q.GroupBy {
		if err := check("group-by field "+g, g); err != nil {
			return err
		}
	}
	if err := validatePredicateAliases(q.Filter, aliases); err != nil {
		return err
	}

	for _, agg := range q.Aggregations {
		if !ValidAggFuncs[agg.Func] {
			return &ValidationError{
				Code:    ErrCodeBadAggregation,
				Message: fmt.Sprintf("unknown aggregation function %q", agg.Func),
			}
		}
		if agg.Field == "" {
			return &ValidationError{
				Code:    ErrCodeBadAggregation,
				Message: fmt.Sprintf("aggregation %s has no field", agg.Func),
			}
		}
		if agg.Field == "*" && agg.Func != AggCount {
			return &ValidationError{
				Code:    ErrCodeBadAggregation,
				Message: fmt.Sprintf("aggregation %s(*) is only valid for count", agg.Func),
			}
		}
		if agg.Field != "*" {
			if err := check("aggregation field "+agg.Field, agg.Field); err != nil {
				return err
			}
		}
	}

	if len(q.GroupBy) > 0 || len(q.Aggregations) > 0 {
		grouped := make(map[string]bool, len(q.GroupBy))
		for _, g := range q.GroupBy {
			grouped[g] = true
		}
		for _, col := range q.Columns {
			if !grouped[col.Field] {
				return &ValidationError{
					Code: ErrCodeAmbiguousSelect,
					Message: fmt.Sprintf(
						"column %q is neither aggregated nor in GROUP BY; grouped queries must aggregate every bare column",
						col.Field),
				}
			}
		}
	}

	// ORDER BY keys must resolve to something the query produces.
	if len(q.GroupBy) > 0 || len(q.Aggregations) > 0 {
		produced := make(map[string]bool)
		for _, g := range q.GroupBy {
			produced[g] = true
		}
		for _, agg := range q.Aggregations {
			if agg.Alias != "" {
				produced[agg.Alias] = true
			}
		}
		for _, ord := range q.OrderBy {
			if !produced[ord.Field] {
				return &ValidationError{
					Code:    ErrCodeBadOrdering,
					Message: fmt.Sprintf("order-by field %q is not grouped and not an aggregation alias", ord.Field),
				}
			}
		}
	}

	return nil
}

func validatePredicateAliases(p Predicate, aliases map[string]bool) error {
	if p == nil {
		return nil
	}
	badAlias := func(field string) error {
		if alias, _, ok := strings.Cut(field, "."); ok && !aliases[alias] {
			return &ValidationError{
				Code:    ErrCodeUnknownAlias,
				Message: fmt.Sprintf("filter references alias %q with no matching join", alias),
			}
		}
		return nil
	}
	switch pred := p.(type) {
	case Compare:
		return badAlias(pred.Field)
	case Match:
		return badAlias(pred.Field)
	case In:
		return badAlias(pred.Field)
	case Null:
		return badAlias(pred.Field)
	case Between:
		return badAlias(pred.Field)
	case And:
		for _, child := range pred.Predicates {
			if err := validatePredicateAliases(child, aliases); err != nil {
				return err
			}
		}
	case Or:
		for _, child := range pred.Predicates {
			if err := validatePredicateAliases(child, aliases); err != nil {
				return err
			}
		}
	case Nothing:
	}
	return nil
}
