package rules

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Serialization format: a single self-describing payload. Each rule entry
// carries a "type" tag ("filter" or "ai"). The legacy FilterRule form with
// a top-level field/operator/value triple is upgraded to a one-element
// conditions list at load time, once - not on every flatten call.

// docVersion identifies the current rule-set payload format.
const docVersion = 1

type ruleSetDoc struct {
	Version int               `json:"version"`
	Rules   []json.RawMessage `json:"rules"`
}

type conditionDoc struct {
	Field    string          `json:"field"`
	Operator Operator        `json:"operator"`
	Value    json.RawMessage `json:"value,omitempty"`
}

type filterRuleDoc struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Enabled    bool           `json:"enabled"`
	Conditions []conditionDoc `json:"conditions"`

	// Legacy single-condition form, accepted on input only.
	Field    string          `json:"field,omitempty"`
	Operator Operator        `json:"operator,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
}

type aiRuleDoc struct {
	Type        string       `json:"type"`
	ID          string       `json:"id"`
	Enabled     bool         `json:"enabled"`
	Prompt      string       `json:"prompt"`
	Status      AIStatus     `json:"status"`
	Compiled    *compiledDoc `json:"compiled_rule,omitempty"`
	Error       string       `json:"error,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
}

type compiledDoc struct {
	Filters []conditionDoc `json:"filters"`
}

// MarshalRuleSet encodes a rule set to its canonical JSON payload.
//
// The encoding is byte-stable: fixed key order (struct order), fixed number
// formatting, and NFC-normalized strings. Deserializing and re-serializing
// any payload converges after at most one legacy upgrade step.
func MarshalRuleSet(set *RuleSet) ([]byte, error) {
	doc := ruleSetDoc{Version: docVersion, Rules: make([]json.RawMessage, 0, len(set.Rules))}

	for _, r := range set.Rules {
		var (
			entry any
			err   error
		)
		switch rule := r.(type) {
		case *FilterRule:
			entry, err = filterRuleToDoc(rule)
		case *AIRule:
			entry, err = aiRuleToDoc(rule)
		default:
			err = fmt.Errorf("unknown rule type %T", r)
		}
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.RuleID(), err)
		}
		raw, err := marshalCompact(entry)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.RuleID(), err)
		}
		doc.Rules = append(doc.Rules, raw)
	}

	return marshalCompact(doc)
}

// marshalCompact marshals without HTML escaping and without a trailing
// newline, for stable byte-for-byte comparison.
func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func filterRuleToDoc(rule *FilterRule) (*filterRuleDoc, error) {
	doc := &filterRuleDoc{
		Type:       "filter",
		ID:         rule.ID,
		Enabled:    rule.Enabled,
		Conditions: make([]conditionDoc, 0, len(rule.Conditions)),
	}
	for i, c := range rule.Conditions {
		cd, err := conditionToDoc(c.Field, c.Operator, c.Value)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		doc.Conditions = append(doc.Conditions, cd)
	}
	return doc, nil
}

func aiRuleToDoc(rule *AIRule) (*aiRuleDoc, error) {
	doc := &aiRuleDoc{
		Type:        "ai",
		ID:          rule.ID,
		Enabled:     rule.Enabled,
		Prompt:      norm.NFC.String(rule.Prompt),
		Status:      rule.Status,
		Error:       rule.Error,
		Explanation: rule.Explanation,
	}
	if rule.Compiled != nil {
		cd := &compiledDoc{Filters: make([]conditionDoc, 0, len(rule.Compiled.Filters))}
		for i, f := range rule.Compiled.Filters {
			fd, err := conditionToDoc(f.Field, f.Operator, f.Value)
			if err != nil {
				return nil, fmt.Errorf("compiled filter %d: %w", i, err)
			}
			cd.Filters = append(cd.Filters, fd)
		}
		doc.Compiled = cd
	}
	return doc, nil
}

func conditionToDoc(field string, op Operator, v Value) (conditionDoc, error) {
	doc := conditionDoc{Field: norm.NFC.String(field), Operator: op}
	if v != nil {
		raw, err := MarshalValue(normalizeValue(v))
		if err != nil {
			return conditionDoc{}, err
		}
		doc.Value = raw
	}
	return doc, nil
}

// normalizeValue applies NFC normalization to string payloads so the
// canonical encoding does not depend on the Unicode form the author typed.
func normalizeValue(v Value) Value {
	switch val := v.(type) {
	case Str:
		return Str(norm.NFC.String(string(val)))
	case List:
		out := make(List, len(val))
		for i, elem := range val {
			out[i] = normalizeValue(elem)
		}
		return out
	default:
		return v
	}
}

// LoadProblem describes a rule-set entry that was dropped during load.
type LoadProblem struct {
	Index   int    // position in the serialized rules array
	RuleID  string // rule ID if one could be read
	Message string
}

func (p LoadProblem) String() string {
	if p.RuleID != "" {
		return fmt.Sprintf("rules[%d] (%s): %s", p.Index, p.RuleID, p.Message)
	}
	return fmt.Sprintf("rules[%d]: %s", p.Index, p.Message)
}

// UnmarshalRuleSet decodes a rule-set payload.
//
// Unknown or malformed entries are dropped and reported as LoadProblems
// rather than aborting the whole load: one bad rule must not take the rest
// of the set down with it.
func UnmarshalRuleSet(data []byte) (*RuleSet, []LoadProblem, error) {
	var doc ruleSetDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode rule set: %w", err)
	}

	set := &RuleSet{Rules: make([]Rule, 0, len(doc.Rules))}
	var problems []LoadProblem

	for i, raw := range doc.Rules {
		rule, err := unmarshalRule(raw)
		if err != nil {
			problems = append(problems, LoadProblem{
				Index:   i,
				RuleID:  peekID(raw),
				Message: err.Error(),
			})
			continue
		}
		set.Rules = append(set.Rules, rule)
	}

	return set, problems, nil
}

// peekID extracts the "id" field for problem reporting, best-effort.
func peekID(raw json.RawMessage) string {
	var head struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &head)
	return head.ID
}

func unmarshalRule(raw json.RawMessage) (Rule, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode rule: %w", err)
	}

	switch head.Type {
	case "filter":
		return unmarshalFilterRule(raw)
	case "ai":
		return unmarshalAIRule(raw)
	default:
		return nil, fmt.Errorf("unknown rule type %q", head.Type)
	}
}

func unmarshalFilterRule(raw json.RawMessage) (*FilterRule, error) {
	var doc filterRuleDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode filter rule: %w", err)
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("filter rule missing id")
	}

	rule := &FilterRule{
		ID:         doc.ID,
		Enabled:    doc.Enabled,
		Conditions: make([]Condition, 0, len(doc.Conditions)),
	}

	// Legacy upgrade: a top-level field/operator/value triple becomes a
	// one-element conditions list. Happens here, once, at load.
	if len(doc.Conditions) == 0 && doc.Field != "" {
		doc.Conditions = []conditionDoc{{
			Field:    doc.Field,
			Operator: doc.Operator,
			Value:    doc.Value,
		}}
	}

	for i, cd := range doc.Conditions {
		c, err := conditionFromDoc(cd)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		rule.Conditions = append(rule.Conditions, c)
	}
	return rule, nil
}

func unmarshalAIRule(raw json.RawMessage) (*AIRule, error) {
	var doc aiRuleDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode ai rule: %w", err)
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("ai rule missing id")
	}
	if !ValidStatuses[doc.Status] {
		return nil, fmt.Errorf("ai rule has unknown status %q", doc.Status)
	}

	rule := &AIRule{
		ID:          doc.ID,
		Enabled:     doc.Enabled,
		Prompt:      doc.Prompt,
		Status:      doc.Status,
		Error:       doc.Error,
		Explanation: doc.Explanation,
	}

	// A persisted Compiling state is meaningless across processes; the
	// in-flight request died with the old process.
	if rule.Status == StatusCompiling {
		rule.Status = StatusPending
	}

	if doc.Compiled != nil {
		compiled := &CompiledRule{Filters: make([]CompiledFilter, 0, len(doc.Compiled.Filters))}
		for i, fd := range doc.Compiled.Filters {
			c, err := conditionFromDoc(fd)
			if err != nil {
				return nil, fmt.Errorf("compiled filter %d: %w", i, err)
			}
			compiled.Filters = append(compiled.Filters, CompiledFilter{
				Field:    c.Field,
				Operator: c.Operator,
				Value:    c.Value,
			})
		}
		rule.Compiled = compiled
	}

	// Compiled status without compiled output is inconsistent; demote so
	// the flattener's eligibility invariant holds.
	if rule.Status == StatusCompiled && rule.Compiled == nil {
		rule.Status = StatusPending
	}

	return rule, nil
}

func conditionFromDoc(doc conditionDoc) (Condition, error) {
	var v Value
	if len(doc.Value) > 0 {
		decoded, err := UnmarshalValue(doc.Value)
		if err != nil {
			return Condition{}, err
		}
		v = decoded
	}
	// between travels as a 2-element array; re-tag it as a Range so the
	// value union stays honest in memory
	if doc.Operator == OpBetween && v != nil {
		if r, err := AsRange(v); err == nil {
			v = r
		}
	}
	return Condition{Field: doc.Field, Operator: doc.Operator, Value: v}, nil
}
