package hook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"kaiwa/pkg/thread"
)

// toolCallSummary stands in for the snippet when a message carries only a
// structured payload.
const toolCallSummary = "Calling tools…"

// Recorder persists every non-silent delivery of one exchange into the
// thread store: the full message under the exchange root, and a bounded info
// snippet under the top-level thread at the linking turn so the UI can show
// progress without opening the inner thread.
type Recorder struct {
	store      *thread.Store
	root       int64
	linkTurn   int64
	snippetLen int
	logger     zerolog.Logger
}

// RecorderConfig holds recorder configuration
type RecorderConfig struct {
	Store      *thread.Store
	Root       int64 // exchange thread the full messages land in
	LinkTurn   int64 // top-level turn the snippet row is upserted at
	SnippetLen int
	Logger     zerolog.Logger
}

// NewRecorder creates a new history recorder
func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("thread store is required")
	}
	if cfg.SnippetLen <= 0 {
		cfg.SnippetLen = 100
	}

	return &Recorder{
		store:      cfg.Store,
		root:       cfg.Root,
		linkTurn:   cfg.LinkTurn,
		snippetLen: cfg.SnippetLen,
		logger:     cfg.Logger,
	}, nil
}

// Handler returns the pipeline handler. Silent deliveries pass through
// untouched; each non-silent delivery persists exactly one message row.
func (r *Recorder) Handler() Handler {
	return func(ctx context.Context, d Delivery) (Message, error) {
		if d.Silent {
			return d.Message, nil
		}

		var content, summary string
		switch {
		case d.Message.HasText:
			content = d.Message.Content
			summary = d.Message.Content
		case len(d.Message.ToolCalls) > 0:
			raw, err := json.Marshal(d.Message.ToolCalls)
			if err != nil {
				return d.Message, fmt.Errorf("failed to serialize tool calls: %w", err)
			}
			content = string(raw)
			summary = toolCallSummary
		default:
			return d.Message, ErrMalformedMessage
		}

		if _, err := r.store.Append(ctx, r.root, d.Sender, content); err != nil {
			return d.Message, err
		}

		if err := r.store.AppendAt(ctx, thread.TopLevelRoot, r.linkTurn, "info", r.snippet(summary)); err != nil {
			return d.Message, err
		}

		r.logger.Debug().
			Int64("root", r.root).
			Str("sender", d.Sender).
			Msg("Delivery recorded")

		return d.Message, nil
	}
}

// snippet bounds the summary for the top-level info row.
func (r *Recorder) snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= r.snippetLen {
		return text
	}
	return string(runes[:r.snippetLen])
}
