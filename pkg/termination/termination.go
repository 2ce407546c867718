// Package termination decides, once per completed exchange turn, whether an
// open-ended agent conversation must stop. Cheap rule-based strategies are
// evaluated before the model-based reflection judge; a malformed judge
// response never fails the conversation, it degrades to "keep going".
package termination

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"kaiwa/pkg/thread"
)

// Reason tags a terminal verdict.
type Reason int

const (
	ReasonUnset Reason = iota
	ReasonMaxTurnsReached
	ReasonGoalReached
	ReasonConsecutiveEmptyInput
)

// String returns the reason name
func (r Reason) String() string {
	switch r {
	case ReasonMaxTurnsReached:
		return "max_turns_reached"
	case ReasonGoalReached:
		return "goal_reached"
	case ReasonConsecutiveEmptyInput:
		return "consecutive_empty_input"
	default:
		return "unset"
	}
}

// Result is one stop/continue verdict.
type Result struct {
	Terminated  bool
	Reason      Reason
	Explanation string
}

// Stop builds a terminal verdict.
func Stop(reason Reason, explanation string) Result {
	return Result{Terminated: true, Reason: reason, Explanation: explanation}
}

// Continue builds a non-terminal verdict.
func Continue(explanation string) Result {
	return Result{Explanation: explanation}
}

// Strategy is a pluggable stop/continue rule evaluated against the persisted
// transcript of one exchange.
type Strategy interface {
	Check(ctx context.Context, history []thread.Message) (Result, error)
}

// State is the engine lifecycle state.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateTerminated
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "not_started"
	}
}

// Engine composes rule strategies and an optional model-based judge into one
// verdict per turn. One engine instance is bound to exactly one conversation.
type Engine struct {
	mu         sync.Mutex
	state      State
	reason     Reason
	turnsTaken int

	minTurns int
	maxTurns int // 0 means unlimited
	rules    []Strategy
	judge    Strategy
	logger   zerolog.Logger
}

// Config holds engine configuration
type Config struct {
	MinTurns int        // strategies are suppressed until turnsTaken > MinTurns
	MaxTurns int        // 0 disables the turn cap
	Rules    []Strategy // evaluated in order, first terminal verdict wins
	Judge    Strategy   // consulted last, verdict authoritative
	Logger   zerolog.Logger
}

// NewEngine creates a new termination engine
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.MinTurns < 1 {
		return nil, ErrMinTurns
	}
	if cfg.MaxTurns != 0 && cfg.MaxTurns < cfg.MinTurns {
		return nil, ErrMaxBelowMin
	}

	return &Engine{
		state:    StateNotStarted,
		minTurns: cfg.MinTurns,
		maxTurns: cfg.MaxTurns,
		rules:    cfg.Rules,
		judge:    cfg.Judge,
		logger:   cfg.Logger,
	}, nil
}

// RecordTurnTaken advances the turn counter. It is the only mutator outside
// construction and Reset, which keeps the state machine auditable.
func (e *Engine) RecordTurnTaken() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.turnsTaken++
	if e.state == StateNotStarted {
		e.state = StateRunning
	}
}

// TurnsTaken returns the number of recorded turns.
func (e *Engine) TurnsTaken() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.turnsTaken
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// TerminationReason returns the reason recorded by a terminal Check.
func (e *Engine) TerminationReason() Reason {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reason
}

// Check evaluates all strategies for the current turn. The minimum-turns gate
// suppresses every verdict, the turn cap included, until turnsTaken exceeds
// it, so a conversation always gets one turn more than the configured
// minimum before any strategy may stop it.
func (e *Engine) Check(ctx context.Context, history []thread.Message) (Result, error) {
	e.mu.Lock()
	turns := e.turnsTaken
	e.mu.Unlock()

	if turns <= e.minTurns {
		return Continue("minimum turns not reached"), nil
	}

	if e.maxTurns != 0 && turns >= e.maxTurns {
		return e.conclude(Stop(ReasonMaxTurnsReached, "Max turns reached.")), nil
	}

	for _, rule := range e.rules {
		result, err := rule.Check(ctx, history)
		if err != nil {
			return Result{}, err
		}
		if result.Terminated {
			return e.conclude(result), nil
		}
	}

	if e.judge != nil {
		result, err := e.judge.Check(ctx, history)
		if err != nil {
			return Result{}, err
		}
		if result.Terminated {
			return e.conclude(result), nil
		}
		return result, nil
	}

	return Continue(""), nil
}

func (e *Engine) conclude(result Result) Result {
	e.mu.Lock()
	e.state = StateTerminated
	e.reason = result.Reason
	e.mu.Unlock()

	e.logger.Info().
		Str("reason", result.Reason.String()).
		Str("explanation", result.Explanation).
		Msg("Conversation terminated")

	return result
}

// Reset returns the engine to NotStarted with a zero turn counter. Calling it
// repeatedly is harmless.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = StateNotStarted
	e.reason = ReasonUnset
	e.turnsTaken = 0
}
