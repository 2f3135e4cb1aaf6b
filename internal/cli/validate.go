package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MStee09/rocketreport/internal/rules"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <ruleset.json>",
		Short: "Validate a saved rule set",
		Long: `Load a rule-set file and report per-rule problems.

Malformed entries are dropped, not fatal - the command reports what was
dropped and what each surviving rule contributes after flattening.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

type ruleSummary struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Enabled bool   `json:"enabled"`
	Status  string `json:"status,omitempty"`
	Filters int    `json:"filters"`
	Problem string `json:"problem,omitempty"`
}

type validateOutput struct {
	Rules   []ruleSummary `json:"rules"`
	Dropped []string      `json:"dropped,omitempty"`
	Filters int           `json:"flattenedFilters"`
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	set, problems, err := loadRuleSet(path, formatter)
	if err != nil {
		return err
	}

	out := validateOutput{Filters: len(rules.Flatten(set))}
	for _, p := range problems {
		out.Dropped = append(out.Dropped, p.String())
	}

	for _, r := range set.Rules {
		switch rule := r.(type) {
		case *rules.FilterRule:
			s := ruleSummary{ID: rule.ID, Kind: "filter", Enabled: rule.Enabled}
			for _, c := range rule.Conditions {
				if c.Valid() {
					s.Filters++
				} else if s.Problem == "" {
					s.Problem = fmt.Sprintf("condition on %q is incomplete", c.Field)
				}
			}
			out.Rules = append(out.Rules, s)
		case *rules.AIRule:
			s := ruleSummary{ID: rule.ID, Kind: "ai", Enabled: rule.Enabled, Status: string(rule.Status)}
			if rule.Status == rules.StatusCompiled && rule.Compiled != nil {
				s.Filters = len(rule.Compiled.Filters)
			}
			if rule.Status == rules.StatusError {
				s.Problem = rule.Error
			}
			out.Rules = append(out.Rules, s)
		}
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%d rule(s), %d executable filter(s)", len(out.Rules), out.Filters)
	for _, d := range out.Dropped {
		fmt.Fprintf(&text, "\ndropped: %s", d)
	}
	for _, s := range out.Rules {
		fmt.Fprintf(&text, "\n%s %s enabled=%t filters=%d", s.Kind, s.ID, s.Enabled, s.Filters)
		if s.Problem != "" {
			fmt.Fprintf(&text, " problem=%q", s.Problem)
		}
	}

	if err := formatter.SuccessText(text.String(), out); err != nil {
		return err
	}
	if len(out.Dropped) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d entries dropped", len(out.Dropped)))
	}
	return nil
}
