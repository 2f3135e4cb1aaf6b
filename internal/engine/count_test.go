package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MStee09/rocketreport/internal/rules"
	"github.com/MStee09/rocketreport/internal/testutil"
)

func TestCountPreviewDebounce(t *testing.T) {
	clock := testutil.NewManualClock(time.Unix(1000, 0))
	s := NewSession(nil, nil, WithTokenGenerator(NewFixedGenerator("tok-1")))

	assert.Equal(t, CountIdle, s.Preview().Status)

	s.RequestCount(clock.Now())

	// Before the window elapses, nothing fires.
	clock.Advance(200 * time.Millisecond)
	_, ok := s.BeginCount(clock.Now())
	assert.False(t, ok)

	clock.Advance(DefaultDebounce)
	req, ok := s.BeginCount(clock.Now())
	require.True(t, ok)
	assert.Equal(t, "tok-1", req.Token)
	assert.Equal(t, CountCounting, s.Preview().Status)

	assert.True(t, s.FinishCount(req.Token, 42, nil))
	preview := s.Preview()
	assert.Equal(t, CountCounted, preview.Status)
	assert.EqualValues(t, 42, preview.Rows)
}

func TestCountDebounceTrailing(t *testing.T) {
	clock := testutil.NewManualClock(time.Unix(1000, 0))
	s := NewSession(nil, nil, WithTokenGenerator(NewFixedGenerator("tok-1")))

	// A burst of edits keeps pushing the window out; only one request
	// fires, after the last edit's window elapses.
	s.RequestCount(clock.Now())
	clock.Advance(300 * time.Millisecond)
	s.RequestCount(clock.Now())
	clock.Advance(300 * time.Millisecond)
	s.RequestCount(clock.Now())

	// 600ms since the first edit, but only 300ms since the last.
	_, ok := s.BeginCount(clock.Now())
	assert.False(t, ok)

	clock.Advance(DefaultDebounce)
	_, ok = s.BeginCount(clock.Now())
	assert.True(t, ok)

	// Nothing further is pending.
	_, ok = s.BeginCount(clock.Advance(time.Second))
	assert.False(t, ok)
	_, pending := s.CountDue()
	assert.False(t, pending)
}

func TestCountStaleResultDiscarded(t *testing.T) {
	clock := testutil.NewManualClock(time.Unix(1000, 0))
	s := NewSession(nil, nil, WithTokenGenerator(NewFixedGenerator("tok-1", "tok-2")))

	s.RequestCount(clock.Now())
	first, ok := s.BeginCount(clock.Advance(DefaultDebounce))
	require.True(t, ok)

	// The rule set changes again before the first count completes.
	s.RequestCount(clock.Now())
	second, ok := s.BeginCount(clock.Advance(DefaultDebounce))
	require.True(t, ok)

	// Completions arrive out of order: the newer result lands first, then
	// the superseded one shows up late and is dropped.
	assert.True(t, s.FinishCount(second.Token, 7, nil))
	assert.False(t, s.FinishCount(first.Token, 9999, nil))

	preview := s.Preview()
	assert.Equal(t, CountCounted, preview.Status)
	assert.EqualValues(t, 7, preview.Rows)
}

func TestCountFailure(t *testing.T) {
	clock := testutil.NewManualClock(time.Unix(1000, 0))
	s := NewSession(nil, nil, WithTokenGenerator(NewFixedGenerator("tok-1")))

	s.RequestCount(clock.Now())
	req, ok := s.BeginCount(clock.Advance(DefaultDebounce))
	require.True(t, ok)

	assert.True(t, s.FinishCount(req.Token, 0, errors.New("store unavailable")))
	preview := s.Preview()
	assert.Equal(t, CountFailed, preview.Status)
	assert.Contains(t, preview.Err, "store unavailable")

	// A duplicate completion for the same token is ignored.
	assert.False(t, s.FinishCount(req.Token, 5, nil))
}

func TestBeginCountCapturesFiltersAtDispatch(t *testing.T) {
	clock := testutil.NewManualClock(time.Unix(1000, 0))
	s := NewSession(nil, nil, WithTokenGenerator(NewFixedGenerator("tok-1")))

	s.AddFilterRule(rules.Condition{Field: "status", Operator: rules.OpEq, Value: rules.Str("delayed")})
	s.RequestCount(clock.Now())

	req, ok := s.BeginCount(clock.Advance(DefaultDebounce))
	require.True(t, ok)
	require.Len(t, req.Filters, 1)
	assert.Equal(t, "status", req.Filters[0].Field)
}
