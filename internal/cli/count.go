package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MStee09/rocketreport/internal/store"
)

// CountOptions holds flags for the count command.
type CountOptions struct {
	*RootOptions
	DBPath     string
	ReportPath string
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <ruleset.json>",
		Short: "Count the rows a rule set matches",
		Long: `Count the rows the flattened rule set would match, without fetching
them. Grouped reports count result groups, not base rows.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "rocketreport.db", "sqlite database path")
	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "report spec file (default: shipment listing)")

	return cmd
}

type countOutput struct {
	Filters int   `json:"filters"`
	Count   int64 `json:"count"`
}

func runCount(opts *CountOptions, rulesPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	plan, filters, err := buildPlanFromFiles(rulesPath, opts.ReportPath, formatter)
	if err != nil {
		return reportPlanError(formatter, err)
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening store", err)
	}
	defer st.Close()

	n, err := st.Count(cmd.Context(), plan)
	if err != nil {
		formatter.Error("E_QUERY", err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	return formatter.SuccessText(
		fmt.Sprintf("%d row(s) match %d filter(s)", n, len(filters)),
		countOutput{Filters: len(filters), Count: n})
}
