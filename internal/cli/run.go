package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MStee09/rocketreport/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	DBPath     string
	ReportPath string
	SeedDemo   bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "run <ruleset.json>",
		Short:         "Run a rule set against the shipment store",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "rocketreport.db", "sqlite database path")
	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "report spec file (default: shipment listing)")
	cmd.Flags().BoolVar(&opts.SeedDemo, "seed-demo", false, "seed demo shipments before running")

	return cmd
}

type runOutput struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Count   int      `json:"count"`
}

func runReport(opts *RunOptions, rulesPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	plan, filters, err := buildPlanFromFiles(rulesPath, opts.ReportPath, formatter)
	if err != nil {
		return reportPlanError(formatter, err)
	}
	formatter.VerboseLog("running with %d filter(s)", len(filters))

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening store", err)
	}
	defer st.Close()

	if opts.SeedDemo {
		if err := st.Seed(cmd.Context(), demoShipments()...); err != nil {
			return WrapExitError(ExitCommandError, "seeding demo data", err)
		}
	}

	result, err := st.Run(cmd.Context(), plan)
	if err != nil {
		formatter.Error("E_QUERY", err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	return formatter.SuccessText(
		renderTable(result),
		runOutput{Columns: result.Columns, Rows: result.Rows, Count: result.Len()})
}

func renderTable(r *store.ResultSet) string {
	var text strings.Builder
	text.WriteString(strings.Join(r.Columns, "\t"))
	for _, row := range r.Rows {
		text.WriteString("\n")
		for i, cell := range row {
			if i > 0 {
				text.WriteString("\t")
			}
			if cell == nil {
				text.WriteString("-")
				continue
			}
			fmt.Fprintf(&text, "%v", cell)
		}
	}
	fmt.Fprintf(&text, "\n%d row(s)", r.Len())
	return text.String()
}

// demoShipments is a small fixed data set for trying the CLI without a
// populated store.
func demoShipments() []store.Shipment {
	return []store.Shipment{
		{
			Reference: "SH-1001", Description: "drawer system restock",
			TotalCost: 1840.50, WeightLbs: 920, DistanceMiles: 2100,
			Status: "in_transit", TransportMode: "ltl",
			Carrier: "FedEx", CarrierSCAC: "FXFE",
			OriginCity: "Sacramento", OriginState: "CA",
			DestCity: "Austin", DestState: "TX",
		},
		{
			Reference: "SH-1002", Description: "toolbox pallets",
			TotalCost: 640.00, WeightLbs: 455, DistanceMiles: 310,
			Status: "delivered", TransportMode: "ltl",
			Carrier: "Old Dominion", CarrierSCAC: "ODFL",
			OriginCity: "Reno", OriginState: "NV",
			DestCity: "Boise", DestState: "ID",
		},
		{
			Reference: "SH-1003", Description: "bed rack hardware",
			TotalCost: 2250.75, WeightLbs: 1300, DistanceMiles: 1680,
			Status: "delayed", TransportMode: "ftl", Expedited: true,
			Carrier: "XPO", CarrierSCAC: "XPOL",
			OriginCity: "Fresno", OriginState: "CA",
			DestCity: "Denver", DestState: "CO",
		},
		{
			Reference: "SH-1004", Description: "small parts",
			TotalCost: 84.20, WeightLbs: 18, DistanceMiles: 950,
			Status: "delivered", TransportMode: "parcel",
			Carrier: "UPS", CarrierSCAC: "UPSN",
			OriginCity: "Portland", OriginState: "OR",
			DestCity: "Phoenix", DestState: "AZ",
		},
	}
}
