// Package exchange implements the in-memory multi-agent conversation
// runtime: participants that generate replies, send messages through the
// hook pipeline, and honor registered reply rules.
package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"kaiwa/pkg/agent"
	"kaiwa/pkg/hook"
)

// TerminateToken is the legacy in-band stop marker a participant may emit.
const TerminateToken = "TERMINATE"

// ReplyRule short-circuits model generation. Rules see the participant's
// conversation view, silent seeds included; the first rule to fire supplies
// the reply.
type ReplyRule func(view []agent.ChatMessage) (hook.Message, bool)

// Participant is one side of the exchange. A participant with a model client
// generates replies by calling the model over its private view of the
// conversation; one without (the user proxy) replies through rules alone and
// otherwise stays silent.
type Participant struct {
	name         string
	client       agent.ModelClient
	model        string
	systemPrompt string
	temperature  float64
	maxTokens    int

	pipeline   *hook.Pipeline
	replyRules []ReplyRule
	view       []agent.ChatMessage

	logger zerolog.Logger
}

// ParticipantConfig holds participant configuration
type ParticipantConfig struct {
	Name         string
	Client       agent.ModelClient // nil for a proxy participant
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	Logger       zerolog.Logger
}

// NewParticipant creates a new participant
func NewParticipant(cfg ParticipantConfig) (*Participant, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("participant name is required")
	}

	model := cfg.Model
	if model == "" && cfg.Client != nil {
		model = agent.DefaultModel(cfg.Client.Provider())
	}

	return &Participant{
		name:         cfg.Name,
		client:       cfg.Client,
		model:        model,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		logger:       cfg.Logger,
	}, nil
}

// Name returns the participant name, used as the persisted message role.
func (p *Participant) Name() string {
	return p.name
}

// AttachPipeline binds the hook pipeline invoked on every send.
func (p *Participant) AttachPipeline(pipeline *hook.Pipeline) {
	p.pipeline = pipeline
}

// RegisterReplyRule appends a reply rule. Rules run in registration order
// before any model call.
func (p *Participant) RegisterReplyRule(rule ReplyRule) {
	p.replyRules = append(p.replyRules, rule)
}

// Seed replays an already-persisted message into this participant's view
// without any hook side effects.
func (p *Participant) Seed(role, content string) {
	viewRole := "user"
	if role == p.name {
		viewRole = "assistant"
	}
	p.view = append(p.view, agent.ChatMessage{Role: viewRole, Content: content})
}

// View returns a copy of the participant's conversation view.
func (p *Participant) View() []agent.ChatMessage {
	out := make([]agent.ChatMessage, len(p.view))
	copy(out, p.view)
	return out
}

// Send delivers a message to another participant. The hook pipeline always
// observes the transfer; with silent set, the handlers are contractually
// side-effect free and the message only updates the in-memory views.
func (p *Participant) Send(ctx context.Context, msg hook.Message, to *Participant, silent bool) error {
	if p.pipeline != nil {
		out, err := p.pipeline.Dispatch(ctx, hook.Delivery{
			Sender:    p.name,
			Recipient: to.name,
			Message:   msg,
			Silent:    silent,
		})
		if err != nil {
			return err
		}
		msg = out
	}

	p.view = append(p.view, agent.ChatMessage{Role: "assistant", Content: msg.Content, ToolCalls: msg.ToolCalls})
	to.view = append(to.view, agent.ChatMessage{Role: "user", Content: msg.Content, ToolCalls: msg.ToolCalls})

	return nil
}

// GenerateReply produces this participant's next message. Reply rules are
// consulted first against the conversation view; a proxy without a model
// client falls back to an empty reply, mirroring a user with nothing to add.
func (p *Participant) GenerateReply(ctx context.Context) (hook.Message, error) {
	for _, rule := range p.replyRules {
		if msg, ok := rule(p.View()); ok {
			return msg, nil
		}
	}

	if p.client == nil {
		return hook.Text(""), nil
	}

	response, err := p.client.Create(ctx, agent.ChatRequest{
		Model:        p.model,
		Messages:     p.view,
		SystemPrompt: p.systemPrompt,
		Temperature:  p.temperature,
		MaxTokens:    p.maxTokens,
	})
	if err != nil {
		return hook.Message{}, fmt.Errorf("reply generation failed: %w", err)
	}

	msg := hook.Message{Content: response.Content, ToolCalls: response.ToolCalls}
	if response.Content != "" || len(response.ToolCalls) == 0 {
		msg.HasText = true
	}
	return msg, nil
}

// IsTerminationMessage reports whether a message carries the in-band stop
// token.
func IsTerminationMessage(msg hook.Message) bool {
	return strings.Contains(msg.Content, TerminateToken)
}
