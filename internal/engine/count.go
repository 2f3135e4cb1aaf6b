package engine

import (
	"time"

	"github.com/MStee09/rocketreport/internal/rules"
)

// DefaultDebounce is how long the count preview waits after the last
// rule-set change before issuing a query.
const DefaultDebounce = 500 * time.Millisecond

// CountStatus enumerates the preview state machine.
type CountStatus string

const (
	CountIdle     CountStatus = "idle"
	CountCounting CountStatus = "counting"
	CountCounted  CountStatus = "counted"
	CountFailed   CountStatus = "failed"
)

type countPreview struct {
	Status CountStatus
	Rows   int64
	Err    string

	// token of the most recently issued count request; only its completion
	// may be applied (last-write-wins by identity, not completion order)
	token string

	// dueAt is when the pending (debounced) request fires; zero when no
	// request is pending
	dueAt time.Time
}

// CountPreview is the externally visible preview state.
type CountPreview struct {
	Status CountStatus
	Rows   int64
	Err    string
}

// CountRequest is a count dispatch captured at BeginCount time.
type CountRequest struct {
	Token   string
	Filters []rules.CompiledFilter
}

// Preview returns the current count preview state.
func (s *Session) Preview() CountPreview {
	return CountPreview{Status: s.count.Status, Rows: s.count.Rows, Err: s.count.Err}
}

// RequestCount notes a rule-set change at time now. The pending count is
// (re)scheduled for now + DefaultDebounce: a trailing debounce, so a burst
// of edits issues one query.
func (s *Session) RequestCount(now time.Time) {
	s.count.dueAt = now.Add(DefaultDebounce)
}

// CountDue reports when the pending count should be issued. ok is false
// when nothing is pending.
func (s *Session) CountDue() (time.Time, bool) {
	return s.count.dueAt, !s.count.dueAt.IsZero()
}

// BeginCount issues the pending count if its debounce window has elapsed.
// It captures a fresh token and the flattened filters at this instant;
// the caller executes the count query and reports through FinishCount.
func (s *Session) BeginCount(now time.Time) (CountRequest, bool) {
	if s.count.dueAt.IsZero() || now.Before(s.count.dueAt) {
		return CountRequest{}, false
	}
	s.count.dueAt = time.Time{}
	s.count.token = s.tokens.Generate()
	s.count.Status = CountCounting
	return CountRequest{Token: s.count.token, Filters: s.Flatten()}, true
}

// FinishCount applies a count completion. Only the completion of the most
// recently issued request is applied; superseded in-flight requests are
// ignored no matter what order they complete in, so a slow earlier count
// can never overwrite a faster later one.
func (s *Session) FinishCount(token string, rows int64, err error) bool {
	if token != s.count.token || s.count.token == "" {
		s.log.Debug("discarding stale count result", "token", token)
		return false
	}
	s.count.token = ""

	if err != nil {
		s.count.Status = CountFailed
		s.count.Err = err.Error()
		return true
	}
	s.count.Status = CountCounted
	s.count.Rows = rows
	s.count.Err = ""
	return true
}
