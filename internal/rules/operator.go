package rules

import "fmt"

// Operator is the closed enumeration of condition operators.
type Operator string

const (
	OpEq          Operator = "eq"
	OpNeq         Operator = "neq"
	OpGt          Operator = "gt"
	OpGte         Operator = "gte"
	OpLt          Operator = "lt"
	OpLte         Operator = "lte"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpIsNull      Operator = "is_null"
	OpIsNotNull   Operator = "is_not_null"
	OpBetween     Operator = "between"
	OpContainsAny Operator = "contains_any"
	OpContainsAll Operator = "contains_all"
	OpMatchesAny  Operator = "matches_any"
)

// ValidOperators defines the allowed operator tags.
var ValidOperators = map[Operator]bool{
	OpEq: true, OpNeq: true,
	OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpContains: true, OpNotContains: true,
	OpStartsWith: true, OpEndsWith: true,
	OpIn: true, OpNotIn: true,
	OpIsNull: true, OpIsNotNull: true,
	OpBetween:     true,
	OpContainsAny: true, OpContainsAll: true, OpMatchesAny: true,
}

// NeedsListValue reports whether the operator requires a list-shaped value.
func (op Operator) NeedsListValue() bool {
	switch op {
	case OpIn, OpNotIn, OpContainsAny, OpContainsAll, OpMatchesAny:
		return true
	default:
		return false
	}
}

// IgnoresValue reports whether the operator disregards its value entirely.
func (op Operator) IgnoresValue() bool {
	return op == OpIsNull || op == OpIsNotNull
}

// CheckValue validates the operator/value shape pairing once, at
// construction, rather than scattered through the translator.
//
// Rules:
//   - is_null / is_not_null ignore the value (nil is fine)
//   - between requires a 2-element numeric pair
//   - list operators require a list value
//   - everything else requires a scalar
func (op Operator) CheckValue(v Value) error {
	if !ValidOperators[op] {
		return fmt.Errorf("unknown operator %q", op)
	}

	if op.IgnoresValue() {
		return nil
	}

	if v == nil {
		return fmt.Errorf("operator %q requires a value", op)
	}

	switch {
	case op == OpBetween:
		if _, err := AsRange(v); err != nil {
			return fmt.Errorf("operator between: %w", err)
		}
	case op.NeedsListValue():
		if _, ok := v.(List); !ok {
			return fmt.Errorf("operator %q requires a list value, got %T", op, v)
		}
	default:
		if !IsScalar(v) {
			return fmt.Errorf("operator %q requires a scalar value, got %T", op, v)
		}
	}
	return nil
}
