package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckValueUnknownOperator(t *testing.T) {
	err := Operator("like").CheckValue(Str("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operator")
}

func TestCheckValueShapes(t *testing.T) {
	tests := []struct {
		name string
		op   Operator
		val  Value
		ok   bool
	}{
		{"eq scalar", OpEq, Str("delivered"), true},
		{"eq list rejected", OpEq, List{Str("a")}, false},
		{"eq nil rejected", OpEq, nil, false},
		{"gt number", OpGt, Num(1500), true},
		{"in list", OpIn, List{Str("CA"), Str("TX")}, true},
		{"in scalar rejected", OpIn, Str("CA"), false},
		{"in empty list allowed", OpIn, List{}, true},
		{"not_in list", OpNotIn, List{Num(1)}, true},
		{"between range", OpBetween, Range{Min: 100, Max: 500}, true},
		{"between pair", OpBetween, List{Num(100), Num(500)}, true},
		{"between scalar rejected", OpBetween, Num(100), false},
		{"between string pair rejected", OpBetween, List{Str("a"), Str("b")}, false},
		{"is_null without value", OpIsNull, nil, true},
		{"is_not_null ignores value", OpIsNotNull, Str("ignored"), true},
		{"contains_any list", OpContainsAny, List{Str("drawer system")}, true},
		{"contains_all scalar rejected", OpContainsAll, Str("x"), false},
		{"matches_any list", OpMatchesAny, List{Str("toolbox")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.CheckValue(tt.val)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestOperatorClassification(t *testing.T) {
	assert.True(t, OpIn.NeedsListValue())
	assert.True(t, OpMatchesAny.NeedsListValue())
	assert.False(t, OpEq.NeedsListValue())
	assert.False(t, OpBetween.NeedsListValue())

	assert.True(t, OpIsNull.IgnoresValue())
	assert.True(t, OpIsNotNull.IgnoresValue())
	assert.False(t, OpEq.IgnoresValue())
}

func TestValidOperatorsClosed(t *testing.T) {
	// 18 operators, nothing else.
	assert.Len(t, ValidOperators, 18)
	assert.False(t, ValidOperators["regex"])
	assert.False(t, ValidOperators[""])
}
