package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalValueForms(t *testing.T) {
	tests := []struct {
		name string
		val  Value
		want string
	}{
		{"string", Str("delayed"), `"delayed"`},
		{"integral number", Num(1500), `1500`},
		{"fractional number", Num(1500.5), `1500.5`},
		{"bool", Bool(true), `true`},
		{"list", List{Str("CA"), Str("NV")}, `["CA","NV"]`},
		{"mixed list", List{Str("a"), Num(2), Bool(false)}, `["a",2,false]`},
		{"range", Range{Min: 100, Max: 500}, `[100,500]`},
		{"nil", nil, `null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalValue(tt.val)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestMarshalValueStableNumberFormat(t *testing.T) {
	// The same numeric value must render identically on every call;
	// integral floats never grow a decimal point.
	for i := 0; i < 3; i++ {
		data, err := MarshalValue(Num(2000))
		require.NoError(t, err)
		assert.Equal(t, "2000", string(data))
	}

	data, err := MarshalValue(Num(0.1))
	require.NoError(t, err)
	assert.Equal(t, "0.1", string(data))
}

func TestMarshalValueRejectsNestedList(t *testing.T) {
	_, err := MarshalValue(List{List{Str("nested")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scalars only")
}

func TestUnmarshalValueForms(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Value
	}{
		{"string", `"FedEx"`, Str("FedEx")},
		{"number", `42.5`, Num(42.5)},
		{"bool", `false`, Bool(false)},
		{"array", `["a","b"]`, List{Str("a"), Str("b")}},
		{"numeric array", `[100,500]`, List{Num(100), Num(500)}},
		{"null", `null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalValue([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalValueRejectsObjects(t *testing.T) {
	_, err := UnmarshalValue([]byte(`{"nested":"object"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object values are not allowed")
}

func TestUnmarshalValueRejectsNestedArrays(t *testing.T) {
	_, err := UnmarshalValue([]byte(`[["a"],["b"]]`))
	require.Error(t, err)
}

func TestUnmarshalValueDropsNullsInLists(t *testing.T) {
	got, err := UnmarshalValue([]byte(`["a",null,"b"]`))
	require.NoError(t, err)
	assert.Equal(t, List{Str("a"), Str("b")}, got)
}

func TestValueRoundTrip(t *testing.T) {
	values := []Value{
		Str("in_transit"),
		Num(1250),
		Bool(true),
		List{Str("CA"), Str("TX"), Str("NV")},
	}
	for _, v := range values {
		data, err := MarshalValue(v)
		require.NoError(t, err)
		got, err := UnmarshalValue(data)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestAsRange(t *testing.T) {
	t.Run("from range", func(t *testing.T) {
		r, err := AsRange(Range{Min: 1, Max: 2})
		require.NoError(t, err)
		assert.Equal(t, Range{Min: 1, Max: 2}, r)
	})

	t.Run("from numeric pair", func(t *testing.T) {
		r, err := AsRange(List{Num(100), Num(500)})
		require.NoError(t, err)
		assert.Equal(t, Range{Min: 100, Max: 500}, r)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := AsRange(List{Num(1)})
		require.Error(t, err)
	})

	t.Run("non-numeric bound", func(t *testing.T) {
		_, err := AsRange(List{Str("low"), Num(2)})
		require.Error(t, err)
	})

	t.Run("scalar", func(t *testing.T) {
		_, err := AsRange(Num(5))
		require.Error(t, err)
	})
}

func TestAsList(t *testing.T) {
	got, err := AsList(Str("one"))
	require.NoError(t, err)
	assert.Equal(t, List{Str("one")}, got)

	got, err = AsList(List{Num(1), Num(2)})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = AsList(Range{Min: 1, Max: 2})
	require.Error(t, err)
}
