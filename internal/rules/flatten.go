package rules

// Flatten collapses an ordered rule list into one ordered list of
// executable filters.
//
// Rules are visited in authored order:
//   - enabled FilterRules emit their valid conditions in order; a condition
//     with a missing field or a value shape that doesn't fit its operator
//     is dropped silently (rules are commonly mid-edit)
//   - enabled AIRules emit their compiled filters only when
//     Status == Compiled and the compiled rule is present
//   - disabled rules and non-compiled AI rules contribute nothing
//
// The output order is deterministic and reproducible; consumers treat the
// list as an unordered AND-conjunction, but stable ordering keeps
// serialization diffs and filter summaries readable.
func Flatten(set *RuleSet) []CompiledFilter {
	if set == nil {
		return nil
	}

	var out []CompiledFilter
	for _, r := range set.Rules {
		if !r.IsEnabled() {
			continue
		}
		switch rule := r.(type) {
		case *FilterRule:
			for _, c := range rule.Conditions {
				if !c.Valid() {
					continue
				}
				out = append(out, CompiledFilter{
					Field:    c.Field,
					Operator: c.Operator,
					Value:    c.Value,
				})
			}
		case *AIRule:
			if rule.Status != StatusCompiled || rule.Compiled == nil {
				continue
			}
			out = append(out, rule.Compiled.Filters...)
		}
	}
	return out
}
