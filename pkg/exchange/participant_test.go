package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaiwa/pkg/agent"
	"kaiwa/pkg/hook"
)

type fakeClient struct {
	response *agent.ChatResponse
	err      error
	lastReq  agent.ChatRequest
	calls    int
}

func (f *fakeClient) Create(_ context.Context, req agent.ChatRequest) (*agent.ChatResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeClient) Provider() string { return "openai" }

func mustParticipant(t *testing.T, cfg ParticipantConfig) *Participant {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	p, err := NewParticipant(cfg)
	require.NoError(t, err)
	return p
}

func TestNewParticipant_RequiresName(t *testing.T) {
	_, err := NewParticipant(ParticipantConfig{})
	assert.Error(t, err)
}

func TestNewParticipant_DefaultsModelFromProvider(t *testing.T) {
	p := mustParticipant(t, ParticipantConfig{Name: "assistant", Client: &fakeClient{}})
	assert.Equal(t, agent.DefaultModel("openai"), p.model)
}

func TestSend_UpdatesBothViews(t *testing.T) {
	a := mustParticipant(t, ParticipantConfig{Name: "assistant"})
	u := mustParticipant(t, ParticipantConfig{Name: "user"})

	require.NoError(t, a.Send(context.Background(), hook.Text("hello"), u, false))

	aView := a.View()
	require.Len(t, aView, 1)
	assert.Equal(t, "assistant", aView[0].Role)
	assert.Equal(t, "hello", aView[0].Content)

	uView := u.View()
	require.Len(t, uView, 1)
	assert.Equal(t, "user", uView[0].Role)
	assert.Equal(t, "hello", uView[0].Content)
}

func TestSend_DispatchesThroughPipeline(t *testing.T) {
	a := mustParticipant(t, ParticipantConfig{Name: "assistant"})
	u := mustParticipant(t, ParticipantConfig{Name: "user"})

	var seen []hook.Delivery
	pipeline := hook.NewPipeline(zerolog.Nop())
	pipeline.Register(hook.StageSender, func(_ context.Context, d hook.Delivery) (hook.Message, error) {
		seen = append(seen, d)
		return d.Message, nil
	})
	a.AttachPipeline(pipeline)

	require.NoError(t, a.Send(context.Background(), hook.Text("visible"), u, false))
	require.NoError(t, a.Send(context.Background(), hook.Text("seeded"), u, true))

	require.Len(t, seen, 2)
	assert.Equal(t, "assistant", seen[0].Sender)
	assert.Equal(t, "user", seen[0].Recipient)
	assert.False(t, seen[0].Silent)
	assert.True(t, seen[1].Silent)
}

func TestSend_PipelineErrorLeavesViewsUntouched(t *testing.T) {
	a := mustParticipant(t, ParticipantConfig{Name: "assistant"})
	u := mustParticipant(t, ParticipantConfig{Name: "user"})

	boom := errors.New("persist failed")
	pipeline := hook.NewPipeline(zerolog.Nop())
	pipeline.Register(hook.StageSender, func(_ context.Context, _ hook.Delivery) (hook.Message, error) {
		return hook.Message{}, boom
	})
	a.AttachPipeline(pipeline)

	err := a.Send(context.Background(), hook.Text("doomed"), u, false)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, a.View())
	assert.Empty(t, u.View())
}

func TestGenerateReply_ReplyRuleShortCircuitsModel(t *testing.T) {
	client := &fakeClient{response: &agent.ChatResponse{Content: "from the model"}}
	p := mustParticipant(t, ParticipantConfig{Name: "assistant", Client: client})

	p.RegisterReplyRule(func(view []agent.ChatMessage) (hook.Message, bool) {
		if len(view) == 0 {
			return hook.Text("rule reply"), true
		}
		return hook.Message{}, false
	})

	msg, err := p.GenerateReply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rule reply", msg.Content)
	assert.Equal(t, 0, client.calls)
}

func TestGenerateReply_ProxyWithoutClientIsEmptyText(t *testing.T) {
	p := mustParticipant(t, ParticipantConfig{Name: "user"})

	msg, err := p.GenerateReply(context.Background())
	require.NoError(t, err)
	assert.True(t, msg.HasText)
	assert.Empty(t, msg.Content)
}

func TestGenerateReply_ModelCallUsesView(t *testing.T) {
	client := &fakeClient{response: &agent.ChatResponse{Content: "model answer"}}
	a := mustParticipant(t, ParticipantConfig{
		Name:         "assistant",
		Client:       client,
		Model:        "gpt-4o",
		SystemPrompt: "be helpful",
	})
	u := mustParticipant(t, ParticipantConfig{Name: "user"})

	require.NoError(t, u.Send(context.Background(), hook.Text("do the thing"), a, false))

	msg, err := a.GenerateReply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "model answer", msg.Content)
	assert.True(t, msg.HasText)

	assert.Equal(t, "gpt-4o", client.lastReq.Model)
	assert.Equal(t, "be helpful", client.lastReq.SystemPrompt)
	require.Len(t, client.lastReq.Messages, 1)
	assert.Equal(t, "user", client.lastReq.Messages[0].Role)
}

func TestGenerateReply_ToolCallsCarriedThrough(t *testing.T) {
	client := &fakeClient{response: &agent.ChatResponse{
		ToolCalls: []agent.ToolCall{{ID: "1", Name: "search"}},
	}}
	p := mustParticipant(t, ParticipantConfig{Name: "assistant", Client: client})

	msg, err := p.GenerateReply(context.Background())
	require.NoError(t, err)
	assert.False(t, msg.HasText)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "search", msg.ToolCalls[0].Name)
}

func TestGenerateReply_ModelErrorWrapped(t *testing.T) {
	boom := errors.New("rate limited")
	p := mustParticipant(t, ParticipantConfig{Name: "assistant", Client: &fakeClient{err: boom}})

	_, err := p.GenerateReply(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSeed_MapsRolesToViewPerspective(t *testing.T) {
	p := mustParticipant(t, ParticipantConfig{Name: "assistant"})

	p.Seed("user", "a question")
	p.Seed("assistant", "my earlier answer")
	p.Seed("info", "a snippet")

	view := p.View()
	require.Len(t, view, 3)
	assert.Equal(t, "user", view[0].Role)
	assert.Equal(t, "assistant", view[1].Role)
	assert.Equal(t, "user", view[2].Role)
}

func TestIsTerminationMessage(t *testing.T) {
	assert.True(t, IsTerminationMessage(hook.Text("TERMINATE")))
	assert.True(t, IsTerminationMessage(hook.Text("All done. TERMINATE")))
	assert.False(t, IsTerminationMessage(hook.Text("keep going")))
	assert.False(t, IsTerminationMessage(hook.Text("")))
}
