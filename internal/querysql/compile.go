// Package querysql compiles QueryIR plans to parameterized SQL.
//
// Two rules hold everywhere:
//   - Every query gets a deterministic ORDER BY so repeated executions of
//     the same plan return rows in the same order.
//   - Values are ALWAYS parameterized, never interpolated into SQL text.
package querysql

import (
	"fmt"
	"strings"

	"github.com/MStee09/rocketreport/internal/queryir"
	"github.com/MStee09/rocketreport/internal/rules"
)

// Dialect describes what the target store supports. Features a dialect
// lacks fail loudly at compile time; a silently dropped exclusion filter
// would return too much data.
type Dialect struct {
	Name          string
	SupportsNotIn bool
}

// SQLite is the shipped dialect.
var SQLite = Dialect{Name: "sqlite", SupportsNotIn: true}

// CapabilityError reports an operator the target dialect cannot express.
type CapabilityError struct {
	Dialect string
	Feature string
	Field   string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("dialect %s does not support %s (field %s); the filter cannot be applied safely",
		e.Dialect, e.Feature, e.Field)
}

// Compiler compiles queryir.Select plans for one dialect.
type Compiler struct {
	dialect Dialect
}

// NewCompiler creates a Compiler for the dialect.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{dialect: d}
}

// Compile converts a Select plan to parameterized SQL.
// Returns (sql, params, error).
func (c *Compiler) Compile(q queryir.Select) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	var params []any

	sb.WriteString("SELECT ")
	sb.WriteString(c.selectList(q))
	sb.WriteString(" FROM ")
	sb.WriteString(q.From)

	for _, j := range q.Joins {
		sb.WriteString(joinKeyword(j.Kind))
		sb.WriteString(j.Table)
		sb.WriteString(" AS ")
		sb.WriteString(j.Alias)
		sb.WriteString(" ON ")
		sb.WriteString(j.On)
	}

	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(filterSQL)
		params = append(params, filterParams...)
	}

	if len(q.GroupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(q.GroupBy, ", "))
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(c.orderList(q))

	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}

	return sb.String(), params, nil
}

// CompileCount converts a Select plan to a row-count query. Columns,
// ordering, and limit are irrelevant to a count; grouped plans count the
// grouped rows via a subquery.
func (c *Compiler) CompileCount(q queryir.Select) (string, []any, error) {
	var sb strings.Builder
	var params []any

	if len(q.GroupBy) > 0 {
		inner, innerParams, err := c.Compile(q)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString("SELECT COUNT(*) FROM (")
		sb.WriteString(inner)
		sb.WriteString(")")
		return sb.String(), innerParams, nil
	}

	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(q.From)
	for _, j := range q.Joins {
		sb.WriteString(joinKeyword(j.Kind))
		sb.WriteString(j.Table)
		sb.WriteString(" AS ")
		sb.WriteString(j.Alias)
		sb.WriteString(" ON ")
		sb.WriteString(j.On)
	}
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(filterSQL)
		params = append(params, filterParams...)
	}
	return sb.String(), params, nil
}

func joinKeyword(kind queryir.JoinKind) string {
	if kind == queryir.JoinLeft {
		return " LEFT JOIN "
	}
	return " INNER JOIN "
}

func (c *Compiler) selectList(q queryir.Select) string {
	var parts []string
	for _, col := range q.Columns {
		if col.Alias != "" && col.Alias != col.Field {
			parts = append(parts, fmt.Sprintf("%s AS %s", col.Field, col.Alias))
		} else {
			parts = append(parts, col.Field)
		}
	}
	for _, agg := range q.Aggregations {
		expr := fmt.Sprintf("%s(%s)", strings.ToUpper(string(agg.Func)), agg.Field)
		if agg.Alias != "" {
			expr += " AS " + agg.Alias
		}
		parts = append(parts, expr)
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, ", ")
}

// orderList builds the ORDER BY clause. When the plan requests no explicit
// ordering, the base table's primary key is the deterministic tiebreaker;
// when it does, the primary key is appended as a secondary key so equal
// sort values still order the same way on every run. Grouped plans order
// by their group keys instead.
func (c *Compiler) orderList(q queryir.Select) string {
	var parts []string
	for _, ord := range q.OrderBy {
		dir := " ASC"
		if ord.Desc {
			dir = " DESC"
		}
		parts = append(parts, ord.Field+dir)
	}

	grouped := len(q.GroupBy) > 0 || len(q.Aggregations) > 0
	if grouped {
		if len(parts) == 0 {
			for _, g := range q.GroupBy {
				parts = append(parts, g+" ASC")
			}
		}
		if len(parts) == 0 {
			parts = append(parts, "1 ASC")
		}
		return strings.Join(parts, ", ")
	}

	parts = append(parts, q.From+".id ASC")
	return strings.Join(parts, ", ")
}

// compilePredicate compiles a Predicate to a WHERE fragment.
// Returns (sql, params, error). Values are never interpolated.
func (c *Compiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Compare:
		param, err := scalarParam(pred.Value)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s %s ?", pred.Field, pred.Op), []any{param}, nil

	case queryir.Match:
		op := "LIKE"
		if pred.Negate {
			op = "NOT LIKE"
		}
		return fmt.Sprintf("LOWER(%s) %s ?", pred.Field, op), []any{likePattern(pred)}, nil

	case queryir.In:
		return c.compileIn(pred)

	case queryir.Null:
		if pred.Negate {
			return pred.Field + " IS NOT NULL", nil, nil
		}
		return pred.Field + " IS NULL", nil, nil

	case queryir.Between:
		sql := fmt.Sprintf("(%s >= ? AND %s <= ?)", pred.Field, pred.Field)
		return sql, []any{numParam(pred.Lo), numParam(pred.Hi)}, nil

	case queryir.And:
		return c.compileConjunction(pred.Predicates, " AND ", "1 = 1", false)

	case queryir.Or:
		// Grouped so it never AND-folds against neighboring predicates.
		return c.compileConjunction(pred.Predicates, " OR ", "1 = 0", true)

	case queryir.Nothing:
		return "1 = 0", nil, nil

	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *Compiler) compileConjunction(preds []queryir.Predicate, join, empty string, group bool) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}

	var sqlParts []string
	var allParams []any
	for _, pred := range preds {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	sql := strings.Join(sqlParts, join)
	if group && len(sqlParts) > 1 {
		sql = "(" + sql + ")"
	}
	return sql, allParams, nil
}

func (c *Compiler) compileIn(pred queryir.In) (string, []any, error) {
	if pred.Negate && !c.dialect.SupportsNotIn {
		return "", nil, &CapabilityError{
			Dialect: c.dialect.Name,
			Feature: "NOT IN",
			Field:   pred.Field,
		}
	}
	if len(pred.Values) == 0 {
		// Defined semantics: empty membership matches nothing. The
		// translator normally emits Nothing instead, but a hand-built plan
		// gets the same answer.
		if pred.Negate {
			return "1 = 1", nil, nil
		}
		return "1 = 0", nil, nil
	}

	placeholders := make([]string, len(pred.Values))
	params := make([]any, len(pred.Values))
	for i, v := range pred.Values {
		placeholders[i] = "?"
		param, err := scalarParam(v)
		if err != nil {
			return "", nil, err
		}
		params[i] = param
	}

	op := "IN"
	if pred.Negate {
		op = "NOT IN"
	}
	sql := fmt.Sprintf("%s %s (%s)", pred.Field, op, strings.Join(placeholders, ", "))
	return sql, params, nil
}

// likePattern builds the case-insensitive LIKE pattern with wildcard
// placement by match kind.
func likePattern(m queryir.Match) string {
	needle := strings.ToLower(m.Needle)
	switch m.Kind {
	case queryir.MatchPrefix:
		return needle + "%"
	case queryir.MatchSuffix:
		return "%" + needle
	default:
		return "%" + needle + "%"
	}
}

// scalarParam converts a scalar rules.Value to a SQL parameter.
func scalarParam(v rules.Value) (any, error) {
	switch val := v.(type) {
	case rules.Str:
		return string(val), nil
	case rules.Num:
		return numParam(float64(val)), nil
	case rules.Bool:
		return bool(val), nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}

// numParam keeps integral values as int64 so comparisons against INTEGER
// columns do not depend on driver float conversion.
func numParam(f float64) any {
	if f == float64(int64(f)) {
		return int64(f)
	}
	return f
}
