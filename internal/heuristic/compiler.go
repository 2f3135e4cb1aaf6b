// Package heuristic implements the deterministic local prompt compiler.
//
// Compile is a pure function of its input plus a fixed, versioned pattern
// table - no network, no model call. It is both the authoring-time
// fallback when the remote compiler is unavailable and the correctness
// baseline the remote path is tested against.
package heuristic

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/MStee09/rocketreport/internal/rules"
	"github.com/MStee09/rocketreport/internal/schema"
)

// PatternTableVersion identifies the extraction table. Bump it whenever a
// pattern or vocabulary binding changes compilation output.
const PatternTableVersion = 1

var (
	// Amounts accept an optional $ and thousands separators: $1,500 or 1500.
	reOver    = regexp.MustCompile(`(?i)\b(?:over|greater than|more than|above)\s+\$?([0-9][0-9,]*(?:\.[0-9]+)?)`)
	reUnder   = regexp.MustCompile(`(?i)\b(?:under|less than|below)\s+\$?([0-9][0-9,]*(?:\.[0-9]+)?)`)
	reBetween = regexp.MustCompile(`(?i)\bbetween\s+\$?([0-9][0-9,]*(?:\.[0-9]+)?)\s+and\s+\$?([0-9][0-9,]*(?:\.[0-9]+)?)`)

	// State codes must be upper-case in the original prompt; the keyword
	// before them is case-insensitive.
	reOrigin      = regexp.MustCompile(`\b(?i:from|origin(?:ating)?(?:\s+in)?)\s+([A-Z]{2})\b`)
	reDestination = regexp.MustCompile(`\b(?i:to|destination|into|bound for)\s+([A-Z]{2})\b`)

	reQuoted = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)

	reWeightKeyword   = regexp.MustCompile(`(?i)\b(?:weight|lbs?|pounds?)\b`)
	reDistanceKeyword = regexp.MustCompile(`(?i)\b(?:miles?|distance)\b`)
)

// Compiler turns a natural-language prompt into a CompiledRule using an
// ordered sequence of pattern extractions. Each category contributes at
// most one filter (first match wins within the category); categories are
// independent and their filters accumulate with implicit AND.
type Compiler struct {
	fields schema.Heuristic
}

// New creates a Compiler bound to the catalog's heuristic vocabulary.
func New(cat *schema.Catalog) *Compiler {
	return &Compiler{fields: cat.Heuristic}
}

// Compile parses the prompt against the pattern table.
//
// Returns nil when zero filters were extracted: callers must distinguish
// "failed to parse" (nil) from "no filter" (an empty rule, which is valid).
func (c *Compiler) Compile(prompt string) *rules.CompiledRule {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil
	}
	lower := strings.ToLower(prompt)

	var filters []rules.CompiledFilter

	// Extraction order is fixed; it determines output order and is part of
	// the compiler's contract.
	extractors := []func(prompt, lower string) *rules.CompiledFilter{
		c.extractNumeric,
		c.extractLiteralSet,
		c.extractOrigin,
		c.extractDestination,
		c.extractCarrier,
		c.extractStatus,
		c.extractMode,
	}
	for _, extract := range extractors {
		if f := extract(prompt, lower); f != nil {
			filters = append(filters, *f)
		}
	}

	if len(filters) == 0 {
		return nil
	}
	return &rules.CompiledRule{Filters: filters}
}

// numericField picks the field a numeric comparison binds to. The default
// metric is cost; a weight or distance keyword anywhere in the prompt
// reroutes it.
func (c *Compiler) numericField(lower string) string {
	if reWeightKeyword.MatchString(lower) {
		return c.fields.WeightField
	}
	if reDistanceKeyword.MatchString(lower) {
		return c.fields.DistanceField
	}
	return c.fields.MetricField
}

func (c *Compiler) extractNumeric(prompt, lower string) *rules.CompiledFilter {
	field := c.numericField(lower)

	// between first: "between 100 and 500" also matches the reUnder-free
	// amount patterns, so the more specific form wins
	if m := reBetween.FindStringSubmatch(prompt); m != nil {
		lo, okLo := parseAmount(m[1])
		hi, okHi := parseAmount(m[2])
		if okLo && okHi {
			return &rules.CompiledFilter{
				Field:    field,
				Operator: rules.OpBetween,
				Value:    rules.Range{Min: lo, Max: hi},
			}
		}
	}
	if m := reOver.FindStringSubmatch(prompt); m != nil {
		if n, ok := parseAmount(m[1]); ok {
			return &rules.CompiledFilter{Field: field, Operator: rules.OpGt, Value: rules.Num(n)}
		}
	}
	if m := reUnder.FindStringSubmatch(prompt); m != nil {
		if n, ok := parseAmount(m[1]); ok {
			return &rules.CompiledFilter{Field: field, Operator: rules.OpLt, Value: rules.Num(n)}
		}
	}
	return nil
}

// extractLiteralSet collects quoted substrings, or failing that, members of
// the product keyword list, into a single contains_any filter against the
// description field. This is an OR-of-substring-match, not an equality list.
func (c *Compiler) extractLiteralSet(prompt, lower string) *rules.CompiledFilter {
	var literals []string

	for _, m := range reQuoted.FindAllStringSubmatch(prompt, -1) {
		if m[1] != "" {
			literals = append(literals, m[1])
		} else if m[2] != "" {
			literals = append(literals, m[2])
		}
	}

	if len(literals) == 0 {
		for _, product := range c.fields.Products {
			if strings.Contains(lower, strings.ToLower(product)) {
				literals = append(literals, product)
			}
		}
	}

	if len(literals) == 0 {
		return nil
	}
	list := make(rules.List, len(literals))
	for i, lit := range literals {
		list[i] = rules.Str(lit)
	}
	return &rules.CompiledFilter{
		Field:    c.fields.DescriptionField,
		Operator: rules.OpContainsAny,
		Value:    list,
	}
}

func (c *Compiler) extractOrigin(prompt, _ string) *rules.CompiledFilter {
	m := reOrigin.FindStringSubmatch(prompt)
	if m == nil {
		return nil
	}
	return &rules.CompiledFilter{
		Field:    c.fields.OriginField,
		Operator: rules.OpEq,
		Value:    rules.Str(m[1]),
	}
}

func (c *Compiler) extractDestination(prompt, _ string) *rules.CompiledFilter {
	m := reDestination.FindStringSubmatch(prompt)
	if m == nil {
		return nil
	}
	return &rules.CompiledFilter{
		Field:    c.fields.DestinationField,
		Operator: rules.OpEq,
		Value:    rules.Str(m[1]),
	}
}

func (c *Compiler) extractCarrier(_, lower string) *rules.CompiledFilter {
	if name, ok := firstVocabularyMatch(lower, c.fields.Carriers); ok {
		return &rules.CompiledFilter{
			Field:    c.fields.CarrierField,
			Operator: rules.OpEq,
			Value:    rules.Str(name),
		}
	}
	return nil
}

func (c *Compiler) extractStatus(_, lower string) *rules.CompiledFilter {
	if status, ok := firstVocabularyMatch(lower, c.fields.Statuses); ok {
		return &rules.CompiledFilter{
			Field:    c.fields.StatusField,
			Operator: rules.OpEq,
			Value:    rules.Str(status),
		}
	}
	return nil
}

func (c *Compiler) extractMode(_, lower string) *rules.CompiledFilter {
	for _, mode := range c.fields.Modes {
		if containsWord(lower, strings.ToLower(mode)) {
			return &rules.CompiledFilter{
				Field:    c.fields.ModeField,
				Operator: rules.OpEq,
				Value:    rules.Str(mode),
			}
		}
	}
	return nil
}

// firstVocabularyMatch returns the first vocabulary entry whose lower-cased
// form appears in the prompt. Vocabulary order is the tie-break.
func firstVocabularyMatch(lower string, vocab []string) (string, bool) {
	for _, entry := range vocab {
		if containsWord(lower, strings.ToLower(entry)) {
			return entry, true
		}
	}
	return "", false
}

// containsWord reports whether needle occurs in haystack on word
// boundaries. Plain substring matching would let "ltl" match inside
// "multltool"-style tokens.
func containsWord(haystack, needle string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		beforeOK := start == 0 || !isWordByte(haystack[start-1])
		afterOK := end == len(haystack) || !isWordByte(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// parseAmount strips thousands separators and parses the amount.
func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
