package termination

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaiwa/pkg/thread"
)

// stubStrategy returns a fixed verdict or error.
type stubStrategy struct {
	result Result
	err    error
	calls  int
}

func (s *stubStrategy) Check(_ context.Context, _ []thread.Message) (Result, error) {
	s.calls++
	return s.result, s.err
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	return engine
}

func advance(e *Engine, turns int) {
	for i := 0; i < turns; i++ {
		e.RecordTurnTaken()
	}
}

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine(Config{MinTurns: 0})
	assert.ErrorIs(t, err, ErrMinTurns)

	_, err = NewEngine(Config{MinTurns: 3, MaxTurns: 1})
	assert.ErrorIs(t, err, ErrMaxBelowMin)

	_, err = NewEngine(Config{MinTurns: 3, MaxTurns: 0})
	assert.NoError(t, err)
}

func TestCheck_MinTurnsGateSuppressesEverything(t *testing.T) {
	rule := &stubStrategy{result: Stop(ReasonConsecutiveEmptyInput, "empty")}
	engine := newTestEngine(t, Config{MinTurns: 3, MaxTurns: 3, Rules: []Strategy{rule}})

	ctx := context.Background()

	// Up to and including the minimum, nothing may terminate and no
	// strategy is even consulted.
	for i := 0; i < 3; i++ {
		engine.RecordTurnTaken()
		result, err := engine.Check(ctx, nil)
		require.NoError(t, err)
		assert.False(t, result.Terminated)
	}
	assert.Equal(t, 0, rule.calls)
	assert.Equal(t, StateRunning, engine.State())
}

func TestCheck_MaxTurnsAfterGate(t *testing.T) {
	engine := newTestEngine(t, Config{MinTurns: 1, MaxTurns: 3})
	ctx := context.Background()

	advance(engine, 2)
	result, err := engine.Check(ctx, nil)
	require.NoError(t, err)
	assert.False(t, result.Terminated)

	engine.RecordTurnTaken()
	result, err = engine.Check(ctx, nil)
	require.NoError(t, err)
	assert.True(t, result.Terminated)
	assert.Equal(t, ReasonMaxTurnsReached, result.Reason)
	assert.Equal(t, StateTerminated, engine.State())
	assert.Equal(t, ReasonMaxTurnsReached, engine.TerminationReason())
}

func TestCheck_ZeroMaxTurnsIsUnlimited(t *testing.T) {
	engine := newTestEngine(t, Config{MinTurns: 1})
	ctx := context.Background()

	advance(engine, 100)
	result, err := engine.Check(ctx, nil)
	require.NoError(t, err)
	assert.False(t, result.Terminated)
}

func TestCheck_RulesShortCircuitInOrder(t *testing.T) {
	first := &stubStrategy{result: Stop(ReasonConsecutiveEmptyInput, "first wins")}
	second := &stubStrategy{result: Stop(ReasonGoalReached, "never seen")}
	engine := newTestEngine(t, Config{MinTurns: 1, Rules: []Strategy{first, second}})

	advance(engine, 2)
	result, err := engine.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.Terminated)
	assert.Equal(t, ReasonConsecutiveEmptyInput, result.Reason)
	assert.Equal(t, "first wins", result.Explanation)
	assert.Equal(t, 0, second.calls)
}

func TestCheck_JudgeConsultedAfterRules(t *testing.T) {
	rule := &stubStrategy{result: Continue("")}
	judge := &stubStrategy{result: Stop(ReasonGoalReached, "goal met")}
	engine := newTestEngine(t, Config{MinTurns: 1, Rules: []Strategy{rule}, Judge: judge})

	advance(engine, 2)
	result, err := engine.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.Terminated)
	assert.Equal(t, ReasonGoalReached, result.Reason)
	assert.Equal(t, 1, rule.calls)
	assert.Equal(t, 1, judge.calls)
}

func TestCheck_RuleErrorPropagates(t *testing.T) {
	boom := errors.New("rule exploded")
	rule := &stubStrategy{err: boom}
	engine := newTestEngine(t, Config{MinTurns: 1, Rules: []Strategy{rule}})

	advance(engine, 2)
	_, err := engine.Check(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateRunning, engine.State())
}

func TestReset_Idempotent(t *testing.T) {
	engine := newTestEngine(t, Config{MinTurns: 1, MaxTurns: 2})
	ctx := context.Background()

	advance(engine, 2)
	result, err := engine.Check(ctx, nil)
	require.NoError(t, err)
	require.True(t, result.Terminated)

	engine.Reset()
	engine.Reset()

	assert.Equal(t, StateNotStarted, engine.State())
	assert.Equal(t, ReasonUnset, engine.TerminationReason())
	assert.Equal(t, 0, engine.TurnsTaken())

	// The engine is reusable after a reset.
	advance(engine, 2)
	result, err = engine.Check(ctx, nil)
	require.NoError(t, err)
	assert.True(t, result.Terminated)
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "unset", ReasonUnset.String())
	assert.Equal(t, "max_turns_reached", ReasonMaxTurnsReached.String())
	assert.Equal(t, "goal_reached", ReasonGoalReached.String())
	assert.Equal(t, "consecutive_empty_input", ReasonConsecutiveEmptyInput.String())
}
