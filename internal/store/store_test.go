package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MStee09/rocketreport/internal/queryir"
	"github.com/MStee09/rocketreport/internal/report"
	"github.com/MStee09/rocketreport/internal/rules"
	"github.com/MStee09/rocketreport/internal/schema"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedTestShipments(t *testing.T, st *Store) {
	t.Helper()
	err := st.Seed(context.Background(),
		Shipment{
			Reference: "SH-1", Description: "drawer system restock", TotalCost: 1800,
			Status: "in_transit", TransportMode: "ltl",
			Carrier: "FedEx", CarrierSCAC: "FXFE",
			OriginCity: "Sacramento", OriginState: "CA",
			DestCity: "Austin", DestState: "TX",
		},
		Shipment{
			Reference: "SH-2", Description: "toolbox pallets", TotalCost: 500,
			Status: "delivered", TransportMode: "ltl",
			Carrier: "FedEx", CarrierSCAC: "FXFE",
			OriginCity: "Reno", OriginState: "NV",
			DestCity: "Boise", DestState: "ID",
		},
		Shipment{
			Reference: "SH-3", Description: "bed rack hardware", TotalCost: 2200,
			Status: "delayed", TransportMode: "ftl", Expedited: true,
			Carrier: "XPO", CarrierSCAC: "XPOL",
			OriginCity: "Fresno", OriginState: "CA",
			DestCity: "Denver", DestState: "CO",
		},
		Shipment{
			Reference: "SH-4", Description: "small parts", TotalCost: 100,
			Status: "delivered", TransportMode: "parcel",
			Carrier: "UPS", CarrierSCAC: "UPSN",
			OriginCity: "Portland", OriginState: "OR",
			DestCity: "Phoenix", DestState: "AZ",
		},
	)
	require.NoError(t, err)
}

func loadTestCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	cat, err := schema.Load()
	require.NoError(t, err)
	return cat
}

func buildTestPlan(t *testing.T, spec report.Spec, filters []rules.CompiledFilter) queryir.Select {
	t.Helper()
	plan, err := report.BuildPlan(spec, filters, loadTestCatalog(t))
	require.NoError(t, err)
	return plan
}

func references(rs *ResultSet) []string {
	var refs []string
	for _, row := range rs.Rows {
		refs = append(refs, row[0].(string))
	}
	return refs
}

func TestRunListingInInsertionOrder(t *testing.T) {
	st := openTestStore(t)
	seedTestShipments(t, st)

	plan := buildTestPlan(t, report.Spec{Columns: []string{"reference"}}, nil)
	rs, err := st.Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, []string{"reference"}, rs.Columns)
	assert.Equal(t, []string{"SH-1", "SH-2", "SH-3", "SH-4"}, references(rs))
}

func TestRunWithFiltersAndJoins(t *testing.T) {
	st := openTestStore(t)
	seedTestShipments(t, st)

	plan := buildTestPlan(t,
		report.Spec{Columns: []string{"reference", "origin_state", "carrier_name"}},
		[]rules.CompiledFilter{
			{Field: "total_cost", Operator: rules.OpGt, Value: rules.Num(1000)},
			{Field: "origin_state", Operator: rules.OpEq, Value: rules.Str("CA")},
		})

	rs, err := st.Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"SH-1", "SH-3"}, references(rs))
}

func TestRunBetweenIncludesBothBounds(t *testing.T) {
	st := openTestStore(t)
	seedTestShipments(t, st)

	plan := buildTestPlan(t,
		report.Spec{Columns: []string{"reference"}},
		[]rules.CompiledFilter{
			{Field: "total_cost", Operator: rules.OpBetween, Value: rules.Range{Min: 100, Max: 500}},
		})

	rs, err := st.Run(context.Background(), plan)
	require.NoError(t, err)

	// 100 and 500 sit exactly on the bounds; both rows match.
	assert.Equal(t, []string{"SH-2", "SH-4"}, references(rs))
}

func TestRunEmptyInMatchesNoRows(t *testing.T) {
	st := openTestStore(t)
	seedTestShipments(t, st)

	plan := buildTestPlan(t,
		report.Spec{Columns: []string{"reference"}},
		[]rules.CompiledFilter{
			{Field: "status", Operator: rules.OpIn, Value: rules.List{}},
		})

	rs, err := st.Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Zero(t, rs.Len())
}

func TestRunContainsAnyMatchesEither(t *testing.T) {
	st := openTestStore(t)
	seedTestShipments(t, st)

	plan := buildTestPlan(t,
		report.Spec{Columns: []string{"reference"}},
		[]rules.CompiledFilter{
			{Field: "description", Operator: rules.OpContainsAny,
				Value: rules.List{rules.Str("drawer system"), rules.Str("toolbox")}},
		})

	rs, err := st.Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"SH-1", "SH-2"}, references(rs))
}

func TestRunNotInExcludes(t *testing.T) {
	st := openTestStore(t)
	seedTestShipments(t, st)

	plan := buildTestPlan(t,
		report.Spec{Columns: []string{"reference"}},
		[]rules.CompiledFilter{
			{Field: "status", Operator: rules.OpNotIn, Value: rules.List{rules.Str("delivered")}},
		})

	rs, err := st.Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"SH-1", "SH-3"}, references(rs))
}

func TestRunGroupedAggregation(t *testing.T) {
	st := openTestStore(t)
	seedTestShipments(t, st)

	plan := buildTestPlan(t, report.Spec{
		Columns: []string{"status"},
		GroupBy: []string{"status"},
		Aggregations: []report.AggregationSpec{
			{Func: queryir.AggSum, Field: "total_cost", Alias: "total"},
		},
		OrderBy: []report.OrderSpec{{Field: "total", Desc: true}},
	}, nil)

	rs, err := st.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, 3, rs.Len())

	// delayed 2200, in_transit 1800, delivered 600.
	assert.Equal(t, "delayed", rs.Rows[0][0])
	assert.Equal(t, "in_transit", rs.Rows[1][0])
	assert.Equal(t, "delivered", rs.Rows[2][0])
}

func TestCountMatchesRun(t *testing.T) {
	st := openTestStore(t)
	seedTestShipments(t, st)
	ctx := context.Background()

	plan := buildTestPlan(t,
		report.Spec{Columns: []string{"reference"}},
		[]rules.CompiledFilter{
			{Field: "status", Operator: rules.OpEq, Value: rules.Str("delivered")},
		})

	rs, err := st.Run(ctx, plan)
	require.NoError(t, err)
	n, err := st.Count(ctx, plan)
	require.NoError(t, err)
	assert.EqualValues(t, rs.Len(), n)
}

func TestCountGroupedCountsGroups(t *testing.T) {
	st := openTestStore(t)
	seedTestShipments(t, st)

	plan := buildTestPlan(t, report.Spec{
		Columns: []string{"status"},
		GroupBy: []string{"status"},
		Aggregations: []report.AggregationSpec{
			{Func: queryir.AggCount, Field: "*", Alias: "n"},
		},
	}, nil)

	n, err := st.Count(context.Background(), plan)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestSeedDeduplicatesCarriers(t *testing.T) {
	st := openTestStore(t)
	seedTestShipments(t, st)

	var carriers int
	err := st.DB().QueryRow("SELECT COUNT(*) FROM carriers").Scan(&carriers)
	require.NoError(t, err)
	assert.Equal(t, 3, carriers)
}

func TestRunReportsExecutionFailureAsQueryError(t *testing.T) {
	st := openTestStore(t)

	// Structurally valid plan over a column the schema does not have.
	_, err := st.Run(context.Background(), queryir.Select{
		From:    "shipments",
		Columns: []queryir.Column{{Field: "shipments.no_such_column"}},
	})
	require.Error(t, err)

	var qerr *QueryError
	assert.ErrorAs(t, err, &qerr)
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/report.db"

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Seed(context.Background(), Shipment{Reference: "SH-1"}))
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	var rows int
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM shipments").Scan(&rows))
	assert.Equal(t, 1, rows)
}
