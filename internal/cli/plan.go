package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MStee09/rocketreport/internal/queryir"
	"github.com/MStee09/rocketreport/internal/querysql"
	"github.com/MStee09/rocketreport/internal/report"
	"github.com/MStee09/rocketreport/internal/rules"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	ReportPath string
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <ruleset.json>",
		Short: "Show the query plan and SQL for a rule set",
		Long: `Flatten a rule set, build the query plan for the report, and print the
SQL the plan compiles to. The same rule set always produces the same SQL.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "report spec file (default: shipment listing)")

	return cmd
}

type planOutput struct {
	Filters int      `json:"filters"`
	SQL     string   `json:"sql"`
	Args    []any    `json:"args"`
	Joins   []string `json:"joins,omitempty"`
}

func runPlan(opts *PlanOptions, rulesPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	plan, filters, err := buildPlanFromFiles(rulesPath, opts.ReportPath, formatter)
	if err != nil {
		return reportPlanError(formatter, err)
	}

	sqlText, args, err := querysql.NewCompiler(querysql.SQLite).Compile(plan)
	if err != nil {
		return reportPlanError(formatter, err)
	}

	out := planOutput{Filters: len(filters), SQL: sqlText, Args: args}
	for _, j := range plan.Joins {
		out.Joins = append(out.Joins, j.Alias)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%d filter(s)\n%s", out.Filters, sqlText)
	if len(args) > 0 {
		fmt.Fprintf(&text, "\nargs: %v", args)
	}
	return formatter.SuccessText(text.String(), out)
}

// buildPlanFromFiles loads the rule set and report spec and builds the
// validated plan. Shared by plan, run and count.
func buildPlanFromFiles(rulesPath, reportPath string, formatter *OutputFormatter) (queryir.Select, []rules.CompiledFilter, error) {
	set, _, err := loadRuleSet(rulesPath, formatter)
	if err != nil {
		return queryir.Select{}, nil, err
	}
	spec, err := loadReportSpec(reportPath)
	if err != nil {
		return queryir.Select{}, nil, err
	}
	cat, err := loadCatalog()
	if err != nil {
		return queryir.Select{}, nil, err
	}

	filters := rules.Flatten(set)
	plan, err := report.BuildPlan(spec, filters, cat)
	if err != nil {
		return queryir.Select{}, nil, err
	}
	return plan, filters, nil
}

// reportPlanError maps plan and dialect failures onto the structured
// error output and exit code 1; anything else is a command error.
func reportPlanError(formatter *OutputFormatter, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	var capErr *querysql.CapabilityError
	if errors.As(err, &capErr) {
		formatter.Error("E_CAPABILITY", err.Error(), map[string]string{
			"dialect": capErr.Dialect,
			"field":   capErr.Field,
		})
		return NewExitError(ExitFailure, err.Error())
	}
	var valErr *queryir.ValidationError
	if errors.As(err, &valErr) {
		formatter.Error(valErr.Code, valErr.Message, nil)
		return NewExitError(ExitFailure, err.Error())
	}
	formatter.Error("E_PLAN", err.Error(), nil)
	return NewExitError(ExitFailure, err.Error())
}
