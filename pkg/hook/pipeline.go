// Package hook implements the ordered side-effect pipeline every outgoing
// exchange message passes through before it counts as delivered.
package hook

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"kaiwa/internal/observability"
	"kaiwa/pkg/agent"
)

// Message is the payload a hook receives. A message carries plain text
// content, a structured tool-call batch, or both. HasText separates an
// intentionally empty text message (a user proxy with nothing to say) from a
// message that has no payload at all.
type Message struct {
	Content   string           `json:"content"`
	HasText   bool             `json:"has_text"`
	ToolCalls []agent.ToolCall `json:"tool_calls,omitempty"`
}

// Text builds a plain text message. Empty text is a valid message.
func Text(content string) Message {
	return Message{Content: content, HasText: true}
}

// Calls builds a message carrying only a structured tool-call batch.
func Calls(calls ...agent.ToolCall) Message {
	return Message{ToolCalls: calls}
}

// Delivery describes one message transfer between two participants.
type Delivery struct {
	Sender    string
	Recipient string
	Message   Message
	Silent    bool
}

// Handler is one side-effect function. It may rewrite the message; a silent
// delivery must pass through with no side effect at all.
type Handler func(ctx context.Context, d Delivery) (Message, error)

// Stage selects which side of a transfer a handler observes.
type Stage int

const (
	// StageSender handlers run first, in registration order
	StageSender Stage = iota
	// StageRecipient handlers run after every sender handler
	StageRecipient
)

// Pipeline is an ordered list of handlers invoked on every message transfer.
type Pipeline struct {
	senderHooks    []Handler
	recipientHooks []Handler
	logger         zerolog.Logger
}

// NewPipeline creates an empty pipeline
func NewPipeline(logger zerolog.Logger) *Pipeline {
	return &Pipeline{logger: logger}
}

// Register appends a handler to the given stage. Handlers run in
// registration order within their stage.
func (p *Pipeline) Register(stage Stage, h Handler) {
	switch stage {
	case StageSender:
		p.senderHooks = append(p.senderHooks, h)
	case StageRecipient:
		p.recipientHooks = append(p.recipientHooks, h)
	}
}

// Len returns the number of registered handlers.
func (p *Pipeline) Len() int {
	return len(p.senderHooks) + len(p.recipientHooks)
}

// Dispatch threads the delivery through every handler, sender stage first.
// The message each handler returns feeds the next one.
func (p *Pipeline) Dispatch(ctx context.Context, d Delivery) (Message, error) {
	kind := "message"
	if d.Silent {
		kind = "silent"
	}
	observability.RecordHookDispatch(kind)

	for i, h := range p.senderHooks {
		msg, err := h(ctx, d)
		if err != nil {
			return d.Message, fmt.Errorf("sender hook %d failed: %w", i, err)
		}
		d.Message = msg
	}
	for i, h := range p.recipientHooks {
		msg, err := h(ctx, d)
		if err != nil {
			return d.Message, fmt.Errorf("recipient hook %d failed: %w", i, err)
		}
		d.Message = msg
	}

	return d.Message, nil
}
