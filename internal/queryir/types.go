package queryir

import "github.com/MStee09/rocketreport/internal/rules"

// Query represents an abstract query in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in backend compilers.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
// Backends compile predicates to WHERE fragments; every predicate is
// parameterizable (no value is ever interpolated into SQL text).
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select is the single query form the reporting pipeline produces:
//
//	SELECT <columns, aggregations> FROM <from>
//	[JOIN ...] [WHERE <filter>] [GROUP BY ...] [ORDER BY ...] [LIMIT n]
//
// Field references are either bare ("status", resolved against the base
// table) or alias-qualified ("origin_address.state").
type Select struct {
	From         string
	Columns      []Column
	Joins        []JoinClause
	Filter       Predicate // nil = no filter
	GroupBy      []string
	Aggregations []Aggregation
	OrderBy      []Ordering
	Limit        int // 0 = no limit
}

func (Select) queryNode() {}

// Column is one plain (non-aggregate) select column.
type Column struct {
	Field string
	Alias string // optional output name
}

// JoinKind enumerates supported join types.
type JoinKind string

const (
	JoinInner JoinKind = "inner"
	JoinLeft  JoinKind = "left"
)

// JoinClause joins a supporting table onto the base table.
type JoinClause struct {
	Table string
	Alias string
	Kind  JoinKind
	On    string // equi-join condition over table columns, no parameters
}

// AggFunc enumerates supported aggregation functions.
type AggFunc string

const (
	AggSum   AggFunc = "sum"
	AggAvg   AggFunc = "avg"
	AggCount AggFunc = "count"
	AggMin   AggFunc = "min"
	AggMax   AggFunc = "max"
)

// ValidAggFuncs defines the allowed aggregation functions.
var ValidAggFuncs = map[AggFunc]bool{
	AggSum: true, AggAvg: true, AggCount: true, AggMin: true, AggMax: true,
}

// Aggregation is one aggregate select expression.
type Aggregation struct {
	Func  AggFunc
	Field string // "*" allowed for count
	Alias string
}

// Ordering is one ORDER BY key.
type Ordering struct {
	Field string
	Desc  bool
}

// CmpOp enumerates direct comparison operators for the Compare predicate.
type CmpOp string

const (
	CmpEq  CmpOp = "="
	CmpNeq CmpOp = "!="
	CmpGt  CmpOp = ">"
	CmpGte CmpOp = ">="
	CmpLt  CmpOp = "<"
	CmpLte CmpOp = "<="
)

// Compare is field <op> scalar-literal.
type Compare struct {
	Field string
	Op    CmpOp
	Value rules.Value // scalar only
}

func (Compare) predicateNode() {}

// MatchKind controls wildcard placement for pattern matches.
type MatchKind string

const (
	MatchContains MatchKind = "contains" // %needle%
	MatchPrefix   MatchKind = "prefix"   // needle%
	MatchSuffix   MatchKind = "suffix"   // %needle
)

// Match is a case-insensitive pattern match against a text field.
type Match struct {
	Field  string
	Kind   MatchKind
	Needle string
	Negate bool
}

func (Match) predicateNode() {}

// In is set membership over scalar literals. Negate turns it into
// set exclusion.
type In struct {
	Field  string
	Values []rules.Value
	Negate bool
}

func (In) predicateNode() {}

// Null tests field nullness. Negate means IS NOT NULL.
type Null struct {
	Field  string
	Negate bool
}

func (Null) predicateNode() {}

// Between is an inclusive numeric range test on both ends.
type Between struct {
	Field string
	Lo    float64
	Hi    float64
}

func (Between) predicateNode() {}

// And requires every child predicate to hold. An empty And is vacuously
// true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or requires at least one child predicate to hold. Backends MUST group an
// Or with parentheses so it never AND-folds incorrectly against adjacent
// predicates. An empty Or matches nothing.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Nothing matches zero rows. It exists so "empty in-list" can compile to a
// definite no-rows predicate instead of silently meaning "no restriction".
type Nothing struct{}

func (Nothing) predicateNode() {}
