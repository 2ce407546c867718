package termination

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"kaiwa/internal/observability"
	"kaiwa/pkg/agent"
	"kaiwa/pkg/thread"
)

// judgeSystemMessage is the fixed instruction given to the reflection judge.
const judgeSystemMessage = `You are a helpful agent that can look at a conversation and decide if a given goal has been reached by that conversation.
- If code has been proposed but not yet run then the goal has not been reached.
- If the code has been run and the output is not as expected then the goal has not been reached.
- If the code has been run and the output is as expected then the goal has been reached.
- If the conversation has not yet reached the goal then the agent should continue the conversation.

You must provide your response as JSON, with two properties:
- ` + "`is_done`" + ` (bool): whether the goal has been reached.
- ` + "`reason`" + ` (str): the reason for your decision.

Goal: %s`

// judgeReminder is appended as the final message of the judgment prompt.
const judgeReminder = "Please provide your response as JSON, with two properties: `is_done` (bool) and `reason` (str). Goal: %s"

// ReflectionJudge asks the model itself whether the conversation's goal has
// been met. It is the expensive, authoritative strategy and is only consulted
// after every rule strategy declined to terminate.
type ReflectionJudge struct {
	client agent.ModelClient
	model  string
	goal   string
	logger zerolog.Logger
}

// JudgeConfig holds reflection judge configuration
type JudgeConfig struct {
	Client agent.ModelClient
	Model  string
	Goal   string
	Logger zerolog.Logger
}

// NewReflectionJudge creates a new reflection judge
func NewReflectionJudge(cfg JudgeConfig) (*ReflectionJudge, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("model client is required")
	}
	if cfg.Goal == "" {
		return nil, fmt.Errorf("goal is required")
	}

	model := cfg.Model
	if model == "" {
		model = agent.DefaultModel(cfg.Client.Provider())
	}

	return &ReflectionJudge{
		client: cfg.Client,
		model:  model,
		goal:   cfg.Goal,
		logger: cfg.Logger,
	}, nil
}

// Check builds the judgment prompt from the transcript and invokes the model
// once. A transport failure is a JudgeError; a malformed answer is folded
// into a non-terminal verdict and never escapes as an error.
func (j *ReflectionJudge) Check(ctx context.Context, history []thread.Message) (Result, error) {
	if len(history) == 0 {
		return Continue(""), nil
	}

	messages := convertTranscript(history)
	messages = append(messages, agent.ChatMessage{
		Role:    "assistant",
		Content: fmt.Sprintf(judgeReminder, j.goal),
	})

	response, err := j.client.Create(ctx, agent.ChatRequest{
		Model:        j.model,
		Messages:     messages,
		SystemPrompt: fmt.Sprintf(judgeSystemMessage, j.goal),
	})
	if err != nil {
		observability.RecordJudgeVerdict("transport_error")
		return Result{}, &JudgeError{Err: err}
	}

	if len(response.ToolCalls) > 0 {
		observability.RecordJudgeVerdict("unsupported")
		return Result{}, ErrUnsupportedResponse
	}

	v, err := decodeVerdict(response.Content)
	if err != nil {
		// Malformed judgment degrades to "keep going", never an error.
		j.logger.Warn().Err(err).Msg("Reflection judge returned malformed verdict")
		observability.RecordJudgeVerdict("malformed")
		return Continue(fmt.Sprintf("failed to parse judge response: %v", err)), nil
	}

	if v.IsDone {
		observability.RecordJudgeVerdict("goal_reached")
		return Stop(ReasonGoalReached, v.Reason), nil
	}

	observability.RecordJudgeVerdict("continue")
	return Continue(v.Reason), nil
}

// convertTranscript maps persisted thread messages to the model-call message
// shape. Non-assistant roles collapse to user so the judge sees a two-party
// conversation.
func convertTranscript(history []thread.Message) []agent.ChatMessage {
	messages := make([]agent.ChatMessage, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == "assistant" {
			role = "assistant"
		}
		messages = append(messages, agent.ChatMessage{Role: role, Content: m.Content})
	}
	return messages
}
