package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MStee09/rocketreport/internal/report"
	"github.com/MStee09/rocketreport/internal/rules"
	"github.com/MStee09/rocketreport/internal/schema"
)

// loadCatalog loads the embedded reporting catalog.
func loadCatalog() (*schema.Catalog, error) {
	cat, err := schema.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading catalog", err)
	}
	return cat, nil
}

// loadRuleSet reads and decodes a rule-set file. Dropped entries are
// reported through the formatter's verbose channel; they do not abort
// the load.
func loadRuleSet(path string, formatter *OutputFormatter) (*rules.RuleSet, []rules.LoadProblem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "reading rule set", err)
	}
	set, problems, err := rules.UnmarshalRuleSet(data)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "decoding rule set", err)
	}
	for _, p := range problems {
		formatter.VerboseLog("dropped: %s", p)
	}
	return set, problems, nil
}

// loadReportSpec reads a report spec file, or returns the default listing
// spec when path is empty.
func loadReportSpec(path string) (report.Spec, error) {
	if path == "" {
		return defaultReportSpec(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return report.Spec{}, WrapExitError(ExitCommandError, "reading report spec", err)
	}
	var spec report.Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return report.Spec{}, WrapExitError(ExitCommandError, "decoding report spec", err)
	}
	return spec, nil
}

// defaultReportSpec is the plain shipment listing used when no report
// configuration is given.
func defaultReportSpec() report.Spec {
	return report.Spec{
		Columns: []string{
			"reference", "description", "total_cost", "status",
			"origin_state", "destination_state", "carrier_name",
		},
		Limit: 100,
	}
}

// describeFilters renders a short human-readable filter summary.
func describeFilters(filters []rules.CompiledFilter) string {
	if len(filters) == 0 {
		return "(no filters)"
	}
	out := ""
	for i, f := range filters {
		if i > 0 {
			out += "\n"
		}
		b, err := json.Marshal(f)
		if err != nil {
			out += fmt.Sprintf("%s %s <unprintable>", f.Field, f.Operator)
			continue
		}
		out += string(b)
	}
	return out
}
