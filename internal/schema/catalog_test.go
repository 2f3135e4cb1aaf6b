package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "shipments", cat.BaseTable)
	assert.Len(t, cat.Joins, 3)
	assert.Len(t, cat.Routes, 3)
	assert.True(t, cat.HasField("total_cost"))
	assert.True(t, cat.HasField("origin_state"))
	assert.False(t, cat.HasField("nonexistent"))
	assert.NotEmpty(t, cat.Heuristic.Carriers)
	assert.NotEmpty(t, cat.Heuristic.Products)
}

func TestQualifyField(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	tests := []struct {
		field string
		want  string
	}{
		{"total_cost", "shipments.total_cost"},
		{"status", "shipments.status"},
		{"origin_state", "origin_address.state"},
		{"origin_city", "origin_address.city"},
		{"destination_state", "destination_address.state"},
		{"carrier_name", "carrier.name"},
		{"carrier_scac", "carrier.scac"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, cat.QualifyField(tt.field))
		})
	}
}

func TestAliasFor(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "origin_address", cat.AliasFor("origin_state"))
	assert.Equal(t, "carrier", cat.AliasFor("carrier_name"))
	assert.Equal(t, "shipments", cat.AliasFor("total_cost"))
}

func TestJoinByAlias(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	j, ok := cat.JoinByAlias("carrier")
	require.True(t, ok)
	assert.Equal(t, "carriers", j.Table)
	assert.Equal(t, "left", j.JoinType)

	_, ok = cat.JoinByAlias("warehouse")
	assert.False(t, ok)
}

func TestLoadSourceRejectsInvalidCatalog(t *testing.T) {
	t.Run("not cue", func(t *testing.T) {
		_, err := LoadSource("catalog: [}{")
		require.Error(t, err)
	})

	t.Run("missing catalog field", func(t *testing.T) {
		_, err := LoadSource(`other: {x: 1}`)
		require.Error(t, err)
	})

	t.Run("route with undeclared alias", func(t *testing.T) {
		_, err := LoadSource(`
catalog: {
	baseTable: "shipments"
	joins: []
	routes: [{prefix: "origin_", alias: "missing"}]
	fields: [
		{name: "total_cost", type: "number"},
		{name: "weight_lbs", type: "number"},
		{name: "distance_miles", type: "number"},
		{name: "description", type: "string"},
		{name: "origin_state", type: "string"},
		{name: "destination_state", type: "string"},
		{name: "carrier_name", type: "string"},
		{name: "status", type: "string"},
		{name: "transport_mode", type: "string"},
	]
	heuristic: {
		metricField:      "total_cost"
		weightField:      "weight_lbs"
		distanceField:    "distance_miles"
		descriptionField: "description"
		originField:      "origin_state"
		destinationField: "destination_state"
		carrierField:     "carrier_name"
		statusField:      "status"
		modeField:        "transport_mode"
		carriers: []
		statuses: []
		modes: []
		products: []
	}
}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "undeclared join alias")
	})

	t.Run("heuristic binding to undeclared field", func(t *testing.T) {
		_, err := LoadSource(`
catalog: {
	baseTable: "shipments"
	joins: []
	routes: []
	fields: [{name: "total_cost", type: "number"}]
	heuristic: {
		metricField:      "total_cost"
		weightField:      "weight_lbs"
		distanceField:    "total_cost"
		descriptionField: "total_cost"
		originField:      "total_cost"
		destinationField: "total_cost"
		carrierField:     "total_cost"
		statusField:      "total_cost"
		modeField:        "total_cost"
		carriers: []
		statuses: []
		modes: []
		products: []
	}
}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "undeclared field")
	})
}
