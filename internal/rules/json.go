package rules

import "encoding/json"

// JSON round-tripping for the condition-shaped types. These reuse the
// canonical document encoding so a condition serialized alone matches how
// it appears inside a rule-set payload.

// MarshalJSON implements json.Marshaler for Condition.
func (c Condition) MarshalJSON() ([]byte, error) {
	doc, err := conditionToDoc(c.Field, c.Operator, c.Value)
	if err != nil {
		return nil, err
	}
	return marshalCompact(doc)
}

// UnmarshalJSON implements json.Unmarshaler for Condition.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var doc conditionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	decoded, err := conditionFromDoc(doc)
	if err != nil {
		return err
	}
	*c = decoded
	return nil
}

// MarshalJSON implements json.Marshaler for CompiledFilter.
func (f CompiledFilter) MarshalJSON() ([]byte, error) {
	doc, err := conditionToDoc(f.Field, f.Operator, f.Value)
	if err != nil {
		return nil, err
	}
	return marshalCompact(doc)
}

// UnmarshalJSON implements json.Unmarshaler for CompiledFilter.
func (f *CompiledFilter) UnmarshalJSON(data []byte) error {
	var c Condition
	if err := c.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = CompiledFilter{Field: c.Field, Operator: c.Operator, Value: c.Value}
	return nil
}
