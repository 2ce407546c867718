// Package scheduler runs multi-agent exchanges as cancellable background
// tasks. Each accepted request owns one exchange root; the scheduler is the
// single writer for that root until the task finishes.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kaiwa/internal/observability"
	"kaiwa/pkg/agent"
	"kaiwa/pkg/exchange"
	"kaiwa/pkg/hook"
	"kaiwa/pkg/termination"
	"kaiwa/pkg/thread"
)

// placeholderText is written at the linking turn when a request is accepted
// and later overwritten by the summary or error row.
const placeholderText = "Computing response…"

// responsePrompt recasts the inner monologue into a user-facing answer.
const responsePrompt = `Based on the results in above conversation, create a response for the user.
While computing the response, remember that this conversation was your inner mono-logue. The user does not need to know every detail of the conversation.
All they want to see is the appropriate result for their task (repeated below) in a manner that would be most useful.
The task was: %s

There is no need to use the word TERMINATE in this response.
`

// Request describes one generation request.
type Request struct {
	// RequestTurn is the top-level turn of the originating user message.
	// The exchange owns root RequestTurn+1 and links its outcome back to
	// the top-level thread at that same number.
	RequestTurn int64

	// Task is the user's task text.
	Task string

	// Goal enables the reflection judge when non-empty.
	Goal string
}

// Scheduler starts, tracks and cancels generation tasks.
type Scheduler struct {
	store       *thread.Store
	client      agent.ModelClient
	judgeClient agent.ModelClient
	logger      zerolog.Logger

	model        string
	systemPrompt string
	temperature  float64
	maxTokens    int

	minTurns    int
	maxTurns    int
	emptyWindow int
	snippetLen  int
	budget      int

	mu     sync.Mutex
	active map[int64]*Task
}

// Config holds scheduler configuration
type Config struct {
	Store       *thread.Store
	Client      agent.ModelClient
	JudgeClient agent.ModelClient // defaults to Client
	Logger      zerolog.Logger

	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int

	MinTurns    int // termination engine minimum-turns gate
	MaxTurns    int // termination engine turn cap, 0 disables
	EmptyWindow int // consecutive-empty rule window
	SnippetLen  int // top-level info snippet bound
	Budget      int // hard cap on exchange steps regardless of strategies
}

// New creates a new scheduler
func New(cfg Config) (*Scheduler, error) {
	observability.EnsureRegistered()

	if cfg.Store == nil {
		return nil, fmt.Errorf("thread store is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("model client is required")
	}

	judgeClient := cfg.JudgeClient
	if judgeClient == nil {
		judgeClient = cfg.Client
	}

	if cfg.MinTurns < 1 {
		cfg.MinTurns = 1
	}
	if cfg.EmptyWindow < 1 {
		cfg.EmptyWindow = 2
	}
	if cfg.Budget < 1 {
		cfg.Budget = 25
	}

	s := &Scheduler{
		store:        cfg.Store,
		client:       cfg.Client,
		judgeClient:  judgeClient,
		logger:       cfg.Logger,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		minTurns:     cfg.MinTurns,
		maxTurns:     cfg.MaxTurns,
		emptyWindow:  cfg.EmptyWindow,
		snippetLen:   cfg.SnippetLen,
		budget:       cfg.Budget,
		active:       make(map[int64]*Task),
	}

	return s, nil
}

// Start launches a generation task for the request's root. It never blocks
// on the exchange itself; progress is observable by re-reading the store.
func (s *Scheduler) Start(ctx context.Context, req Request) (*Task, error) {
	root := req.RequestTurn + 1

	genCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	task := &Task{
		id:     uuid.New().String(),
		root:   root,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if _, exists := s.active[root]; exists {
		s.mu.Unlock()
		cancel()
		return nil, &AlreadyRunningError{Root: root}
	}
	s.active[root] = task
	observability.SetActiveTasks(len(s.active))
	s.mu.Unlock()

	// The placeholder row is the caller-visible acknowledgment; it is later
	// overwritten in place by the summary or error row.
	if err := s.store.AppendAt(ctx, thread.TopLevelRoot, root, "info", placeholderText); err != nil {
		s.release(root)
		cancel()
		return nil, err
	}

	s.logger.Info().
		Int64("root", root).
		Str("task_id", task.id).
		Msg("Generation task started")

	go s.run(genCtx, task, req)

	return task, nil
}

// Cancel requests cancellation of the active task for root. It reports
// whether a task was found.
func (s *Scheduler) Cancel(root int64) bool {
	s.mu.Lock()
	task, ok := s.active[root]
	s.mu.Unlock()

	if !ok {
		return false
	}

	s.logger.Info().Int64("root", root).Msg("Cancelling generation task")
	task.Cancel()
	return true
}

// Running reports whether a task is active for root.
func (s *Scheduler) Running(root int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.active[root]
	return ok
}

// ActiveCount returns the number of running tasks.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.active)
}

func (s *Scheduler) release(root int64) {
	s.mu.Lock()
	delete(s.active, root)
	observability.SetActiveTasks(len(s.active))
	s.mu.Unlock()
}

func (s *Scheduler) run(ctx context.Context, task *Task, req Request) {
	start := time.Now()

	err := s.drive(ctx, task.root, req)

	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, context.Canceled) {
			status = "cancelled"
		}

		// The error row must land even when the task context is gone.
		persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if perr := s.store.AppendAt(persistCtx, thread.TopLevelRoot, task.root, "error",
			fmt.Sprintf("Generation failed: %v", err)); perr != nil {
			s.logger.Error().Err(perr).Int64("root", task.root).Msg("Failed to persist generation error")
		}
		cancel()

		task.err = &GenerationError{Root: task.root, Err: err}
		s.logger.Error().Err(err).Int64("root", task.root).Msg("Generation task failed")
	} else {
		s.logger.Info().
			Int64("root", task.root).
			Dur("duration", time.Since(start)).
			Msg("Generation task completed")
	}

	observability.RecordGeneration(status, time.Since(start))
	s.release(task.root)
	close(task.done)
}

// drive runs one complete exchange: seed, converse, summarize.
func (s *Scheduler) drive(ctx context.Context, root int64, req Request) error {
	assistant, err := exchange.NewParticipant(exchange.ParticipantConfig{
		Name:         "assistant",
		Client:       s.client,
		Model:        s.model,
		SystemPrompt: s.systemPrompt,
		Temperature:  s.temperature,
		MaxTokens:    s.maxTokens,
		Logger:       s.logger,
	})
	if err != nil {
		return err
	}

	userProxy, err := exchange.NewParticipant(exchange.ParticipantConfig{
		Name:   "user",
		Logger: s.logger,
	})
	if err != nil {
		return err
	}

	recorder, err := hook.NewRecorder(hook.RecorderConfig{
		Store:      s.store,
		Root:       root,
		LinkTurn:   root,
		SnippetLen: s.snippetLen,
		Logger:     s.logger,
	})
	if err != nil {
		return err
	}

	pipeline := hook.NewPipeline(s.logger)
	pipeline.Register(hook.StageSender, recorder.Handler())
	assistant.AttachPipeline(pipeline)
	userProxy.AttachPipeline(pipeline)

	if err := s.seed(ctx, root, assistant, userProxy); err != nil {
		return err
	}

	assistant.RegisterReplyRule(consecutiveEmptyRule(s.emptyWindow))

	engine, err := s.newEngine(req)
	if err != nil {
		return err
	}

	if err := s.converse(ctx, root, assistant, userProxy, engine); err != nil {
		return err
	}

	return s.summarize(ctx, root, req, assistant, userProxy)
}

// seed replays persisted history into the participants' views with no hook
// side effects: first the top-level thread for long-lived context, then any
// rows a previous, interrupted run left under the exchange root.
func (s *Scheduler) seed(ctx context.Context, root int64, assistant, userProxy *exchange.Participant) error {
	for _, r := range []int64{thread.TopLevelRoot, root} {
		messages, err := s.store.Thread(ctx, r)
		if err != nil {
			return err
		}
		for _, m := range messages {
			if m.Role == "user" {
				if err := userProxy.Send(ctx, hook.Text(m.Content), assistant, true); err != nil {
					return err
				}
			} else {
				if err := assistant.Send(ctx, hook.Text(m.Content), userProxy, true); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *Scheduler) newEngine(req Request) (*termination.Engine, error) {
	cfg := termination.Config{
		MinTurns: s.minTurns,
		MaxTurns: s.maxTurns,
		Rules:    []termination.Strategy{termination.NewConsecutiveEmpty(s.emptyWindow)},
		Logger:   s.logger,
	}

	if req.Goal != "" {
		judge, err := termination.NewReflectionJudge(termination.JudgeConfig{
			Client: s.judgeClient,
			Goal:   req.Goal,
			Logger: s.logger,
		})
		if err != nil {
			return nil, err
		}
		cfg.Judge = judge
	}

	return termination.NewEngine(cfg)
}

// converse drives the exchange turn by turn until a strategy terminates it,
// the assistant emits the stop token, or the step budget runs out.
func (s *Scheduler) converse(ctx context.Context, root int64, assistant, userProxy *exchange.Participant, engine *termination.Engine) error {
	for step := 0; step < s.budget; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		reply, err := assistant.GenerateReply(ctx)
		if err != nil {
			return err
		}
		if err := assistant.Send(ctx, reply, userProxy, false); err != nil {
			return err
		}
		if exchange.IsTerminationMessage(reply) {
			return nil
		}

		userReply, err := userProxy.GenerateReply(ctx)
		if err != nil {
			return err
		}
		if err := userProxy.Send(ctx, userReply, assistant, false); err != nil {
			return err
		}

		engine.RecordTurnTaken()

		history, err := s.store.Thread(ctx, root)
		if err != nil {
			return err
		}
		verdict, err := engine.Check(ctx, history)
		if err != nil {
			return err
		}
		if verdict.Terminated {
			return nil
		}
	}

	s.logger.Warn().Int64("root", root).Int("budget", s.budget).Msg("Exchange step budget exhausted")
	return nil
}

// summarize asks the assistant for the user-facing response and upserts it at
// the linking turn, replacing the placeholder row.
func (s *Scheduler) summarize(ctx context.Context, root int64, req Request, assistant, userProxy *exchange.Participant) error {
	prompt := fmt.Sprintf(responsePrompt, req.Task)
	if err := userProxy.Send(ctx, hook.Text(prompt), assistant, true); err != nil {
		return err
	}

	response, err := assistant.GenerateReply(ctx)
	if err != nil {
		return err
	}
	if err := assistant.Send(ctx, response, userProxy, true); err != nil {
		return err
	}

	return s.store.AppendAt(ctx, thread.TopLevelRoot, root, "assistant", response.Content)
}

// consecutiveEmptyRule mirrors the termination strategy as an in-band reply
// rule: once the window of most recent user view messages is entirely empty,
// the assistant answers with the stop token instead of calling the model.
func consecutiveEmptyRule(window int) exchange.ReplyRule {
	return func(view []agent.ChatMessage) (hook.Message, bool) {
		seen := 0
		for i := len(view) - 1; i >= 0; i-- {
			if view[i].Role != "user" {
				continue
			}
			if view[i].Content != "" {
				return hook.Message{}, false
			}
			seen++
			if seen == window {
				return hook.Text(exchange.TerminateToken), true
			}
		}
		return hook.Message{}, false
	}
}
