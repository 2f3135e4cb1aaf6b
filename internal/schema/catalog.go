// Package schema loads the reporting catalog: which tables and joins exist,
// how field names route to join aliases, and the fixed vocabularies the
// heuristic compiler matches against.
//
// The catalog is defined in CUE and validated against its schema at load,
// so a malformed catalog is a startup error rather than a silently wrong
// query at execution time.
package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed catalog.cue
var catalogCUE string

// Field describes one queryable field in the catalog.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Join describes a join from the base table to a supporting table.
type Join struct {
	Table    string `json:"table"`
	Alias    string `json:"alias"`
	JoinType string `json:"joinType"`
	On       string `json:"on"`
}

// Route maps a field-name prefix to the join alias that owns the field.
type Route struct {
	Prefix string `json:"prefix"`
	Alias  string `json:"alias"`
}

// Heuristic holds the field bindings and vocabularies for the local
// prompt compiler. The vocabularies are part of the compiler's versioned
// pattern table: changing them changes compilation output.
type Heuristic struct {
	MetricField      string   `json:"metricField"`
	WeightField      string   `json:"weightField"`
	DistanceField    string   `json:"distanceField"`
	DescriptionField string   `json:"descriptionField"`
	OriginField      string   `json:"originField"`
	DestinationField string   `json:"destinationField"`
	CarrierField     string   `json:"carrierField"`
	StatusField      string   `json:"statusField"`
	ModeField        string   `json:"modeField"`
	Carriers         []string `json:"carriers"`
	Statuses         []string `json:"statuses"`
	Modes            []string `json:"modes"`
	Products         []string `json:"products"`
}

// Catalog is the decoded reporting catalog.
type Catalog struct {
	BaseTable string    `json:"baseTable"`
	Joins     []Join    `json:"joins"`
	Routes    []Route   `json:"routes"`
	Fields    []Field   `json:"fields"`
	Heuristic Heuristic `json:"heuristic"`
}

// Load compiles and validates the embedded catalog.
func Load() (*Catalog, error) {
	return loadFromSource(catalogCUE)
}

// LoadSource compiles and validates a caller-supplied catalog definition.
// Used by tests and by deployments that override the embedded schema.
func LoadSource(src string) (*Catalog, error) {
	return loadFromSource(src)
}

func loadFromSource(src string) (*Catalog, error) {
	ctx := cuecontext.New()

	val := ctx.CompileString(src)
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog: %w", err)
	}

	catVal := val.LookupPath(cue.ParsePath("catalog"))
	if err := catVal.Err(); err != nil {
		return nil, fmt.Errorf("catalog field missing: %w", err)
	}
	if err := catVal.Validate(); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}

	var cat Catalog
	if err := catVal.Decode(&cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	if err := cat.check(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// check enforces cross-references CUE cannot express locally: every route
// must point at a declared join alias, and the heuristic field bindings
// must name declared fields.
func (c *Catalog) check() error {
	aliases := make(map[string]bool, len(c.Joins))
	for _, j := range c.Joins {
		aliases[j.Alias] = true
	}
	for _, r := range c.Routes {
		if !aliases[r.Alias] {
			return fmt.Errorf("route prefix %q references undeclared join alias %q", r.Prefix, r.Alias)
		}
	}

	names := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		names[f.Name] = true
	}
	bindings := map[string]string{
		"metricField":      c.Heuristic.MetricField,
		"weightField":      c.Heuristic.WeightField,
		"distanceField":    c.Heuristic.DistanceField,
		"descriptionField": c.Heuristic.DescriptionField,
		"originField":      c.Heuristic.OriginField,
		"destinationField": c.Heuristic.DestinationField,
		"carrierField":     c.Heuristic.CarrierField,
		"statusField":      c.Heuristic.StatusField,
		"modeField":        c.Heuristic.ModeField,
	}
	for binding, field := range bindings {
		if !names[field] {
			return fmt.Errorf("heuristic %s references undeclared field %q", binding, field)
		}
	}
	return nil
}

// AliasFor returns the join alias that owns the field, or the base table
// when no route prefix matches. The routing table is static per schema.
func (c *Catalog) AliasFor(field string) string {
	for _, r := range c.Routes {
		if strings.HasPrefix(field, r.Prefix) {
			return r.Alias
		}
	}
	return c.BaseTable
}

// QualifyField resolves a logical field name to its physical
// "alias.column" form. Prefixed fields route to their join alias with the
// prefix stripped ("origin_state" -> "origin_address.state"); everything
// else belongs to the base table.
func (c *Catalog) QualifyField(field string) string {
	for _, r := range c.Routes {
		if strings.HasPrefix(field, r.Prefix) {
			return r.Alias + "." + strings.TrimPrefix(field, r.Prefix)
		}
	}
	return c.BaseTable + "." + field
}

// JoinByAlias returns the join declaration for an alias, if any.
func (c *Catalog) JoinByAlias(alias string) (Join, bool) {
	for _, j := range c.Joins {
		if j.Alias == alias {
			return j, true
		}
	}
	return Join{}, false
}

// HasField reports whether the catalog declares the field.
func (c *Catalog) HasField(name string) bool {
	for _, f := range c.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
