package engine

import (
	"context"
	"log/slog"

	"github.com/MStee09/rocketreport/internal/compile"
	"github.com/MStee09/rocketreport/internal/rules"
)

// Session owns the rule set during an authoring editing session.
//
// Concurrency model: single-threaded and event-driven. All mutations run
// from user-triggered handlers that complete before the next handler runs,
// so no locking is needed - but completions of async work (compilation,
// count previews) arrive in no guaranteed order and are validated against
// a request token captured at dispatch time. A completion whose token no
// longer matches is discarded, never applied.
type Session struct {
	set      *rules.RuleSet
	compiler *compile.Service
	tokens   TokenGenerator
	log      *slog.Logger

	// compileTokens maps rule ID -> token of the most recent compilation
	// dispatch. Editing the prompt clears the entry, which invalidates any
	// compilation still in flight for the old prompt.
	compileTokens map[string]string

	count countPreview
}

// Option configures a Session.
type Option func(*Session)

// WithTokenGenerator overrides the request token source (tests use
// FixedGenerator).
func WithTokenGenerator(g TokenGenerator) Option {
	return func(s *Session) { s.tokens = g }
}

// WithLogger sets the session logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// NewSession creates a Session over an existing rule set. compiler may be
// nil for sessions that only edit structured rules.
func NewSession(set *rules.RuleSet, compiler *compile.Service, opts ...Option) *Session {
	if set == nil {
		set = &rules.RuleSet{}
	}
	s := &Session{
		set:           set,
		compiler:      compiler,
		tokens:        UUIDv7Generator{},
		log:           slog.Default(),
		compileTokens: make(map[string]string),
		count:         countPreview{Status: CountIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RuleSet returns the session's rule set.
func (s *Session) RuleSet() *rules.RuleSet { return s.set }

// Flatten returns the current executable filters.
func (s *Session) Flatten() []rules.CompiledFilter {
	return rules.Flatten(s.set)
}

// AddFilterRule appends a new structured rule and returns it.
func (s *Session) AddFilterRule(conditions ...rules.Condition) *rules.FilterRule {
	rule := rules.NewFilterRule(conditions...)
	s.set.Rules = append(s.set.Rules, rule)
	return rule
}

// AddAIRule appends a new natural-language rule in the Pending state.
func (s *Session) AddAIRule(prompt string) *rules.AIRule {
	rule := rules.NewAIRule(prompt)
	s.set.Rules = append(s.set.Rules, rule)
	return rule
}

// RemoveRule deletes a rule by ID.
func (s *Session) RemoveRule(id string) error {
	if !s.set.Remove(id) {
		return notFound(id)
	}
	delete(s.compileTokens, id)
	return nil
}

// ToggleRule flips a rule's enabled flag and returns the new state.
// Disabling removes the rule's predicates from the next flatten; compiled
// output is kept so re-enabling restores them unchanged.
func (s *Session) ToggleRule(id string) (bool, error) {
	switch rule := s.set.Find(id).(type) {
	case *rules.FilterRule:
		rule.Enabled = !rule.Enabled
		return rule.Enabled, nil
	case *rules.AIRule:
		rule.Enabled = !rule.Enabled
		return rule.Enabled, nil
	default:
		return false, notFound(id)
	}
}

// UpdateConditions replaces a filter rule's conditions.
func (s *Session) UpdateConditions(id string, conditions []rules.Condition) error {
	rule, ok := s.set.Find(id).(*rules.FilterRule)
	if !ok {
		if s.set.Find(id) != nil {
			return wrongKind(id, "a filter rule")
		}
		return notFound(id)
	}
	if conditions == nil {
		conditions = []rules.Condition{}
	}
	rule.Conditions = conditions
	return nil
}

// EditPrompt replaces an AI rule's prompt. The rule resets to Pending and
// its compiled output is discarded; any compilation in flight for the old
// prompt is invalidated by clearing the dispatch token.
func (s *Session) EditPrompt(id, prompt string) error {
	rule, ok := s.set.Find(id).(*rules.AIRule)
	if !ok {
		if s.set.Find(id) != nil {
			return wrongKind(id, "an AI rule")
		}
		return notFound(id)
	}
	rule.SetPrompt(prompt)
	delete(s.compileTokens, id)
	return nil
}

// CompileRequest is a compilation dispatch captured at BeginCompile time.
type CompileRequest struct {
	Token  string
	RuleID string
	Prompt string
}

// BeginCompile moves an AI rule to Compiling and captures a request token.
// The caller performs the actual (possibly slow) compilation and reports
// back through FinishCompile with the same token.
func (s *Session) BeginCompile(id string) (CompileRequest, error) {
	rule, ok := s.set.Find(id).(*rules.AIRule)
	if !ok {
		if s.set.Find(id) != nil {
			return CompileRequest{}, wrongKind(id, "an AI rule")
		}
		return CompileRequest{}, notFound(id)
	}

	token := s.tokens.Generate()
	rule.MarkCompiling()
	s.compileTokens[id] = token
	return CompileRequest{Token: token, RuleID: id, Prompt: rule.Prompt}, nil
}

// FinishCompile applies a compilation completion. Returns false when the
// completion was stale (the prompt changed or a newer dispatch superseded
// this one) and was discarded without touching the rule.
func (s *Session) FinishCompile(req CompileRequest, result *compile.Result, compileErr error) bool {
	if s.compileTokens[req.RuleID] != req.Token {
		s.log.Debug("discarding stale compile result", "rule", req.RuleID, "token", req.Token)
		return false
	}
	rule, ok := s.set.Find(req.RuleID).(*rules.AIRule)
	if !ok {
		return false
	}
	delete(s.compileTokens, req.RuleID)

	if compileErr != nil {
		rule.MarkError(compileErr.Error())
		return true
	}
	rule.MarkCompiled(result.Compiled, result.Explanation)
	return true
}

// CompileRule runs the full compile cycle synchronously: dispatch, call
// the remote-with-fallback chain, apply the completion. A compile failure
// lands on the rule as status=Error; it is not returned as an error
// because one bad rule must not abort the caller's flow.
func (s *Session) CompileRule(ctx context.Context, id string) (*rules.AIRule, error) {
	req, err := s.BeginCompile(id)
	if err != nil {
		return nil, err
	}

	var result *compile.Result
	var compileErr error
	if s.compiler == nil {
		compileErr = &compile.ErrUnparseable{Prompt: req.Prompt}
	} else {
		result, compileErr = s.compiler.Compile(ctx, req.Prompt)
	}

	s.FinishCompile(req, result, compileErr)
	rule, _ := s.set.Find(id).(*rules.AIRule)
	return rule, nil
}
