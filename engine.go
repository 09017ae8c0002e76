package duet

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/duet/config"
	"github.com/randalmurphal/duet/notify"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
	"github.com/randalmurphal/llmkit/model"
)

// =============================================================================
// Engine
// =============================================================================

// Engine orchestrates tasks across the two agents: it classifies the prompt,
// routes it, runs the draft/review/correction loop as a flowgraph, and keeps
// the session registry and cost ledger current.
type Engine struct {
	settings   config.Settings
	thresholds Thresholds
	agents     map[AdapterID]Agent
	router     *Router
	registry   *Registry
	ledger     *Ledger
	store      *ContextStore
	prompts    *PromptLoader
	notifier   notify.Notifier
	logger     *slog.Logger

	run func(flowgraph.Context, execState, ...flowgraph.RunOption) (execState, error)

	events  chan notify.Event
	drained chan struct{}
	closed  atomic.Bool
}

// Option configures the engine.
type Option func(*Engine)

// WithAgent installs or replaces an agent backend.
func WithAgent(id AdapterID, agent Agent) Option {
	return func(e *Engine) { e.agents[id] = agent }
}

// WithNotifier sets the notifier for session events.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRouter replaces the routing policy.
func WithRouter(r *Router) Option {
	return func(e *Engine) { e.router = r }
}

// WithContextStore replaces the session synopsis store.
func WithContextStore(s *ContextStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithPromptLoader replaces the prompt template loader.
func WithPromptLoader(l *PromptLoader) Option {
	return func(e *Engine) { e.prompts = l }
}

// WithThresholds overrides the complexity length thresholds.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) { e.thresholds = t }
}

// New creates an engine from settings. Both CLI backends are installed by
// default; use WithAgent to substitute test doubles or alternate backends.
func New(settings config.Settings, opts ...Option) (*Engine, error) {
	e := &Engine{
		settings: settings,
		thresholds: Thresholds{
			Trivial:  settings.ThresholdTrivial,
			Standard: settings.ThresholdStandard,
			Complex:  settings.ThresholdComplex,
		},
		agents: map[AdapterID]Agent{
			AdapterClaude: NewClaudeAgent(ClaudeConfig{
				BinaryPath: settings.ClaudeBinary,
				Timeout:    settings.RequestTimeout,
			}),
			AdapterGemini: NewGeminiCLI(GeminiConfig{
				BinaryPath: settings.GeminiBinary,
				Timeout:    settings.RequestTimeout,
			}),
		},
		router:   NewRouter(nil),
		registry: NewRegistry(),
		ledger:   NewLedger(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.notifier == nil {
		if settings.SlackWebhook != "" {
			e.notifier = notify.NewSlackNotifier(settings.SlackWebhook)
		} else {
			e.notifier = notify.NopNotifier{}
		}
	}
	if e.store == nil {
		e.store = NewContextStore(settings.ContextPath, e.logger)
	}
	if e.prompts == nil {
		e.prompts = NewPromptLoader(".")
		if settings.PromptDir != "" {
			e.prompts.AddSearchDir(settings.PromptDir)
		}
	}

	if err := e.router.Validate(); err != nil {
		return nil, err
	}

	graph := flowgraph.NewGraph[execState]().
		AddNode("route", e.routeNode).
		AddNode("spawn", e.spawnNode).
		AddNode("draft", e.draftNode).
		AddNode("review", e.reviewNode).
		AddNode("correct", e.correctNode).
		AddNode("finalize", e.finalizeNode).
		AddEdge("route", "spawn").
		AddEdge("spawn", "draft").
		AddConditionalEdge("draft", e.afterDraft).
		AddConditionalEdge("review", e.afterReview).
		AddConditionalEdge("correct", e.afterCorrect).
		AddEdge("finalize", flowgraph.END).
		SetEntry("route")

	compiled, err := graph.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile execution graph: %w", err)
	}
	e.run = compiled.Run

	e.events = make(chan notify.Event, 64)
	e.drained = make(chan struct{})
	go e.dispatch()

	return e, nil
}

// dispatch delivers queued events to the notifier, in order, off the
// execution path.
func (e *Engine) dispatch() {
	for ev := range e.events {
		if err := e.notifier.Notify(context.Background(), ev); err != nil {
			e.logger.Debug("notification failed", "stage", ev.Stage, "error", err)
		}
	}
	close(e.drained)
}

// Close flushes pending notifications and stops the dispatcher. Call it
// after all Execute calls have returned; the engine must not be used
// afterwards. Close is idempotent.
func (e *Engine) Close() {
	if e.closed.CompareAndSwap(false, true) {
		close(e.events)
		<-e.drained
	}
}

// Options tune a single execution.
type Options struct {
	// ForceAdapter bypasses routing's adapter choice. The route table's
	// review requirement for the classified task still applies.
	ForceAdapter AdapterID

	// ForceModel bypasses the model choice. Only meaningful together with
	// the adapter that serves it.
	ForceModel model.ModelName

	// SkipReview disables the review pass regardless of routing.
	SkipReview bool

	// AttachContext prepends the previous session's synopsis to the draft
	// prompt when one exists.
	AttachContext bool
}

// Result is the outcome of one executed task.
type Result struct {
	SessionID string
	Output    string
	Routing   Decision
	Cost      float64
	Summary   Summary
}

// Summary describes how a result came to be.
type Summary struct {
	TaskType    TaskType
	Complexity  Complexity
	Approved    bool
	Reviews     int
	Corrections int
	Steps       int
	ModelsUsed  []model.ModelName
}

// Execute runs one task end to end and returns its result. The session
// stays queryable through the engine afterwards.
func (e *Engine) Execute(ctx context.Context, prompt string, opts Options) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	sess := e.registry.Create(prompt)
	st := execState{sessionID: sess.ID, prompt: prompt, opts: opts}

	if opts.AttachContext {
		content, ok, err := e.store.Load()
		if err != nil {
			e.logger.Warn("could not load previous context", "error", err)
		} else if ok {
			st.prior = content
		}
	}

	final, err := e.run(flowgraph.NewContext(ctx), st)
	if err != nil {
		if ferr := e.registry.Finish(sess.ID, StatusError, "", err.Error()); ferr != nil {
			e.logger.Warn("could not finish session", "session_id", sess.ID, "error", ferr)
		}
		e.persist(sess.ID)
		e.emit(notify.StageError, sess.ID, err.Error(), notify.SeverityError, nil)
		return nil, fmt.Errorf("session %s: %w", sess.ID, err)
	}

	cost, _ := e.registry.SessionCost(sess.ID)
	snapshot, _ := e.registry.Snapshot(sess.ID)

	var models []model.ModelName
	seen := make(map[model.ModelName]bool)
	for _, step := range snapshot.Steps {
		if !seen[step.Model] {
			seen[step.Model] = true
			models = append(models, step.Model)
		}
	}

	return &Result{
		SessionID: sess.ID,
		Output:    final.result,
		Routing:   final.decision,
		Cost:      cost,
		Summary: Summary{
			TaskType:    final.taskType,
			Complexity:  final.complexity,
			Approved:    final.approved || !final.decision.RequiresReview,
			Reviews:     final.reviews,
			Corrections: final.corrections,
			Steps:       len(snapshot.Steps),
			ModelsUsed:  models,
		},
	}, nil
}

// Session returns a copy of a session by id.
func (e *Engine) Session(id string) (Session, bool) {
	return e.registry.Snapshot(id)
}

// SessionCost returns the accumulated cost of one session.
func (e *Engine) SessionCost(id string) (float64, error) {
	return e.registry.SessionCost(id)
}

// TotalCosts returns per-adapter totals and the grand total across all
// sessions this engine has run.
func (e *Engine) TotalCosts() (map[AdapterID]Totals, float64) {
	return e.ledger.TotalCosts()
}

// agent resolves an adapter id to its backend.
func (e *Engine) agent(id AdapterID) (Agent, error) {
	a, ok := e.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAdapter, id)
	}
	return a, nil
}

// recordStep appends a step to the session and the cost ledger. Bookkeeping
// failures are logged, never propagated; they must not abort a session that
// already has a usable agent response.
func (e *Engine) recordStep(sessionID string, actor AdapterID, role StepRole, mdl model.ModelName, resp *Response, cost float64) {
	step := Step{
		Actor:        actor,
		Role:         role,
		Model:        mdl,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Cost:         cost,
		Output:       resp.Text,
		Timestamp:    time.Now(),
	}
	if err := e.registry.AppendStep(sessionID, step); err != nil {
		e.logger.Warn("could not record step", "session_id", sessionID, "role", role, "error", err)
	}
	e.ledger.Record(actor, resp.Usage, cost)
}

// persist writes the session synopsis. Persistence failures are logged,
// never propagated.
func (e *Engine) persist(sessionID string) {
	sess, ok := e.registry.Snapshot(sessionID)
	if !ok {
		return
	}
	if err := e.store.Persist(sess); err != nil {
		e.logger.Warn("could not persist session context", "session_id", sessionID, "error", err)
	}
}

// emit queues a notification event for the dispatcher. The send never
// blocks the execution path: when the queue is full the event is dropped
// with a debug log.
func (e *Engine) emit(stage notify.Stage, sessionID, msg, severity string, details map[string]any) {
	if e.closed.Load() {
		return
	}
	ev := notify.Event{
		Stage:     stage,
		SessionID: sessionID,
		Message:   msg,
		Severity:  severity,
		Timestamp: time.Now(),
		Details:   details,
	}
	select {
	case e.events <- ev:
	default:
		e.logger.Debug("notification dropped", "stage", stage, "session_id", sessionID)
	}
}
