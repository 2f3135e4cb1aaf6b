package report

import (
	"fmt"
	"strings"

	"github.com/MStee09/rocketreport/internal/queryir"
	"github.com/MStee09/rocketreport/internal/rules"
	"github.com/MStee09/rocketreport/internal/schema"
)

// AggregationSpec is one aggregate a report requests.
type AggregationSpec struct {
	Func  queryir.AggFunc `json:"func"`
	Field string          `json:"field"`
	Alias string          `json:"alias,omitempty"`
}

// OrderSpec is one ordering key a report requests. Field may name a logical
// field or an aggregation alias.
type OrderSpec struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

// Spec is a report/widget's static query configuration. It has no
// independent persistence - a plan is rebuilt from it on every execution.
type Spec struct {
	Columns      []string          `json:"columns"`
	GroupBy      []string          `json:"groupBy,omitempty"`
	Aggregations []AggregationSpec `json:"aggregations,omitempty"`
	OrderBy      []OrderSpec       `json:"orderBy,omitempty"`
	Limit        int               `json:"limit,omitempty"`
}

// BuildPlan assembles the full query plan: the report's static
// configuration plus the rule set's flattened filters, with every logical
// field routed to the join alias that owns it and exactly the joins those
// fields require.
//
// Plan assembly fails fast on structural problems (unknown aggregate
// function, grouped/non-grouped column ambiguity) via queryir.Validate -
// an ambiguous query must never reach the store.
func BuildPlan(spec Spec, filters []rules.CompiledFilter, cat *schema.Catalog) (queryir.Select, error) {
	q := queryir.Select{
		From:  cat.BaseTable,
		Limit: spec.Limit,
	}

	needed := newJoinTracker(cat)

	for _, col := range spec.Columns {
		qualified := cat.QualifyField(col)
		needed.use(qualified)
		q.Columns = append(q.Columns, queryir.Column{Field: qualified, Alias: col})
	}

	for _, g := range spec.GroupBy {
		qualified := cat.QualifyField(g)
		needed.use(qualified)
		q.GroupBy = append(q.GroupBy, qualified)
	}

	for _, agg := range spec.Aggregations {
		field := agg.Field
		if field != "*" {
			field = cat.QualifyField(agg.Field)
			needed.use(field)
		}
		alias := agg.Alias
		if alias == "" {
			alias = defaultAggAlias(agg)
		}
		q.Aggregations = append(q.Aggregations, queryir.Aggregation{
			Func:  agg.Func,
			Field: field,
			Alias: alias,
		})
	}

	aggAliases := make(map[string]bool, len(q.Aggregations))
	for _, agg := range q.Aggregations {
		aggAliases[agg.Alias] = true
	}
	for _, ord := range spec.OrderBy {
		field := ord.Field
		if !aggAliases[field] {
			field = cat.QualifyField(ord.Field)
			needed.use(field)
		}
		q.OrderBy = append(q.OrderBy, queryir.Ordering{Field: field, Desc: ord.Desc})
	}

	if pred := Translate(filters, cat); pred != nil {
		q.Filter = pred
		collectPredicateAliases(pred, needed)
	}

	joins, err := needed.clauses()
	if err != nil {
		return queryir.Select{}, err
	}
	q.Joins = joins

	if err := queryir.Validate(q); err != nil {
		return queryir.Select{}, err
	}
	return q, nil
}

func defaultAggAlias(agg AggregationSpec) string {
	if agg.Field == "*" {
		return string(agg.Func)
	}
	return string(agg.Func) + "_" + strings.ReplaceAll(agg.Field, ".", "_")
}

// joinTracker accumulates the join aliases a plan's fields touch, then
// emits the matching clauses in catalog declaration order so SQL output is
// deterministic.
type joinTracker struct {
	cat  *schema.Catalog
	used map[string]bool
}

func newJoinTracker(cat *schema.Catalog) *joinTracker {
	return &joinTracker{cat: cat, used: make(map[string]bool)}
}

func (t *joinTracker) use(qualifiedField string) {
	alias, _, ok := strings.Cut(qualifiedField, ".")
	if !ok || alias == t.cat.BaseTable {
		return
	}
	t.used[alias] = true
}

func (t *joinTracker) clauses() ([]queryir.JoinClause, error) {
	var joins []queryir.JoinClause
	for _, j := range t.cat.Joins {
		if !t.used[j.Alias] {
			continue
		}
		joins = append(joins, queryir.JoinClause{
			Table: j.Table,
			Alias: j.Alias,
			Kind:  queryir.JoinKind(j.JoinType),
			On:    j.On,
		})
		delete(t.used, j.Alias)
	}
	for alias := range t.used {
		return nil, fmt.Errorf("field routed to alias %q but the catalog declares no such join", alias)
	}
	return joins, nil
}

func collectPredicateAliases(p queryir.Predicate, tracker *joinTracker) {
	switch pred := p.(type) {
	case queryir.Compare:
		tracker.use(pred.Field)
	case queryir.Match:
		tracker.use(pred.Field)
	case queryir.In:
		tracker.use(pred.Field)
	case queryir.Null:
		tracker.use(pred.Field)
	case queryir.Between:
		tracker.use(pred.Field)
	case queryir.And:
		for _, child := range pred.Predicates {
			collectPredicateAliases(child, tracker)
		}
	case queryir.Or:
		for _, child := range pred.Predicates {
			collectPredicateAliases(child, tracker)
		}
	case queryir.Nothing:
	}
}
