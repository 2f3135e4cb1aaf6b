package rules

import "github.com/google/uuid"

// Rule represents one entry in a rule set.
//
// This is a sealed interface - only *FilterRule and *AIRule implement it.
// The marker method pattern enables exhaustive type switches in the
// flattener: "only compiled AI rules contribute predicates" is a match arm,
// not a runtime null check.
type Rule interface {
	ruleNode() // Marker method - seals interface to this package

	// RuleID returns the rule's stable identifier.
	RuleID() string

	// IsEnabled reports whether the rule participates in flattening.
	IsEnabled() bool
}

// Condition is a single field/operator/value clause within a FilterRule.
type Condition struct {
	Field    string
	Operator Operator
	Value    Value
}

// Valid reports whether the condition is complete enough to emit a
// predicate. Partially-filled conditions are common mid-edit and are
// dropped, not errored.
func (c Condition) Valid() bool {
	if c.Field == "" {
		return false
	}
	return c.Operator.CheckValue(c.Value) == nil
}

// FilterRule is a structured rule: an ordered list of conditions combined
// with implicit AND.
type FilterRule struct {
	ID      string
	Enabled bool

	// Conditions is never nil once the rule has been normalized; an empty
	// list compiles to zero predicates.
	Conditions []Condition
}

func (*FilterRule) ruleNode() {}

// RuleID implements Rule.
func (r *FilterRule) RuleID() string { return r.ID }

// IsEnabled implements Rule.
func (r *FilterRule) IsEnabled() bool { return r.Enabled }

// NewFilterRule creates an enabled FilterRule with a fresh ID and a
// non-nil conditions list.
func NewFilterRule(conditions ...Condition) *FilterRule {
	if conditions == nil {
		conditions = []Condition{}
	}
	return &FilterRule{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Enabled:    true,
		Conditions: conditions,
	}
}

// AIStatus tracks the compilation state of an AIRule.
//
// Transitions: Pending -> Compiling -> {Compiled | Error}.
// Editing the prompt resets to Pending from any state.
type AIStatus string

const (
	StatusPending   AIStatus = "pending"
	StatusCompiling AIStatus = "compiling"
	StatusCompiled  AIStatus = "compiled"
	StatusError     AIStatus = "error"
)

// ValidStatuses defines the allowed AI rule states.
var ValidStatuses = map[AIStatus]bool{
	StatusPending:   true,
	StatusCompiling: true,
	StatusCompiled:  true,
	StatusError:     true,
}

// AIRule is a natural-language rule. The prompt is compiled once into a
// CompiledRule at authoring time; the compiled output is then stored
// verbatim and never recomputed implicitly.
type AIRule struct {
	ID      string
	Enabled bool
	Prompt  string
	Status  AIStatus

	// Compiled holds the compiler output; only meaningful when
	// Status == StatusCompiled.
	Compiled *CompiledRule

	// Error holds the failure message when Status == StatusError.
	Error string

	// Explanation is optional human-readable text from the remote compiler.
	Explanation string
}

func (*AIRule) ruleNode() {}

// RuleID implements Rule.
func (r *AIRule) RuleID() string { return r.ID }

// IsEnabled implements Rule.
func (r *AIRule) IsEnabled() bool { return r.Enabled }

// NewAIRule creates an enabled, pending AIRule with a fresh ID.
func NewAIRule(prompt string) *AIRule {
	return &AIRule{
		ID:      uuid.Must(uuid.NewV7()).String(),
		Enabled: true,
		Prompt:  prompt,
		Status:  StatusPending,
	}
}

// SetPrompt replaces the prompt and resets the rule to Pending, discarding
// any prior compiled output or error.
//
// INVARIANT: stale compiled output must never survive a prompt edit. A
// compilation still in flight for the old prompt is invalidated by the
// session's request token, not here.
func (r *AIRule) SetPrompt(prompt string) {
	r.Prompt = prompt
	r.Status = StatusPending
	r.Compiled = nil
	r.Error = ""
	r.Explanation = ""
}

// MarkCompiling moves the rule into the Compiling state.
func (r *AIRule) MarkCompiling() {
	r.Status = StatusCompiling
	r.Error = ""
}

// MarkCompiled stores the compiler output and moves to Compiled.
func (r *AIRule) MarkCompiled(compiled *CompiledRule, explanation string) {
	r.Status = StatusCompiled
	r.Compiled = compiled
	r.Explanation = explanation
	r.Error = ""
}

// MarkError records a compilation failure. The rule contributes zero
// predicates while in this state; it never blocks the rest of the set.
func (r *AIRule) MarkError(msg string) {
	r.Status = StatusError
	r.Compiled = nil
	r.Error = msg
}

// CompiledRule is the output of prompt compilation: an ordered list of
// executable filters combined with implicit AND.
type CompiledRule struct {
	Filters []CompiledFilter `json:"filters"`
}

// CompiledFilter is the common currency between FilterRules and AIRules
// after flattening. Same shape as Condition.
type CompiledFilter struct {
	Field    string
	Operator Operator
	Value    Value
}

// RuleSet is the ordered list of rules as authored. Order is preserved
// through serialization and flattening.
type RuleSet struct {
	Rules []Rule
}

// Find returns the rule with the given ID, or nil.
func (s *RuleSet) Find(id string) Rule {
	for _, r := range s.Rules {
		if r.RuleID() == id {
			return r
		}
	}
	return nil
}

// Remove deletes the rule with the given ID, preserving order of the rest.
// Reports whether a rule was removed.
func (s *RuleSet) Remove(id string) bool {
	for i, r := range s.Rules {
		if r.RuleID() == id {
			s.Rules = append(s.Rules[:i], s.Rules[i+1:]...)
			return true
		}
	}
	return false
}
