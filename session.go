package duet

import (
	"fmt"
	"sync"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/randalmurphal/llmkit/model"
)

// =============================================================================
// Session Types
// =============================================================================

// StepRole identifies what an agent round trip was for.
type StepRole string

const (
	StepDraft      StepRole = "draft"
	StepReview     StepRole = "review"
	StepCorrection StepRole = "correction"
)

// Status is a session's lifecycle state. Transitions are monotonic:
// running -> complete or running -> error, never back.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Step is one agent round trip within a session.
type Step struct {
	Actor        AdapterID       `json:"actor"`
	Role         StepRole        `json:"role"`
	Model        model.ModelName `json:"model"`
	InputTokens  int             `json:"inputTokens"`
	OutputTokens int             `json:"outputTokens"`
	Cost         float64         `json:"cost"`
	Output       string          `json:"output"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Session is one orchestrated task execution and its accumulated steps.
// Steps are append-only; insertion order is execution order.
type Session struct {
	ID         string     `json:"id"`
	Prompt     string     `json:"prompt"`
	TaskType   TaskType   `json:"taskType,omitempty"`
	Complexity Complexity `json:"complexity,omitempty"`
	Routing    Decision   `json:"routing,omitempty"`
	Steps      []Step     `json:"steps,omitempty"`
	Status     Status     `json:"status"`
	Result     string     `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartTime  time.Time  `json:"startTime"`
}

// Cost returns the session's total cost, recomputed from its steps.
func (s *Session) Cost() float64 {
	var total float64
	for _, step := range s.Steps {
		total += step.Cost
	}
	return total
}

// CostByActor returns the session's cost grouped by adapter.
func (s *Session) CostByActor() map[AdapterID]float64 {
	costs := make(map[AdapterID]float64)
	for _, step := range s.Steps {
		costs[step.Actor] += step.Cost
	}
	return costs
}

// Tokens returns the session's total input and output tokens.
func (s *Session) Tokens() (in, out int) {
	for _, step := range s.Steps {
		in += step.InputTokens
		out += step.OutputTokens
	}
	return in, out
}

// Summary returns a one-line human-readable summary of the session.
func (s *Session) Summary() string {
	in, out := s.Tokens()
	return fmt.Sprintf("Session %s [%s]: %s/%s via %s (steps: %d, tokens: %d in, %d out, cost: $%.4f)",
		s.ID, s.Status, s.TaskType, s.Complexity, s.Routing.Adapter,
		len(s.Steps), in, out, s.Cost())
}

// newSessionID generates an opaque unique session identifier.
func newSessionID() string {
	return nanoid.Must()
}

// =============================================================================
// Registry
// =============================================================================

// Registry holds sessions for the lifetime of the engine so per-session
// costs stay queryable after a call returns. All mutation goes through the
// registry, which serializes access; sessions handed out via Snapshot are
// copies and safe to read concurrently.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create registers a new running session for the given prompt.
func (r *Registry) Create(prompt string) Session {
	sess := &Session{
		ID:        newSessionID(),
		Prompt:    prompt,
		Status:    StatusRunning,
		StartTime: time.Now(),
	}

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	return *sess
}

// SetRouting records classification and routing outputs. Set once by the
// engine; immutable afterwards by convention.
func (r *Registry) SetRouting(id string, taskType TaskType, complexity Complexity, d Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	sess.TaskType = taskType
	sess.Complexity = complexity
	sess.Routing = d
	return nil
}

// AppendStep appends a step to a running session.
func (r *Registry) AppendStep(id string, step Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.Status != StatusRunning {
		return ErrSessionFinished
	}
	if step.Timestamp.IsZero() {
		step.Timestamp = time.Now()
	}
	sess.Steps = append(sess.Steps, step)
	return nil
}

// Finish moves a running session to a terminal status. The transition is
// monotonic: finishing an already-finished session is an error and leaves
// the first terminal status in place.
func (r *Registry) Finish(id string, status Status, result, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.Status != StatusRunning {
		return ErrSessionFinished
	}
	sess.Status = status
	sess.Result = result
	sess.Error = errMsg
	return nil
}

// Snapshot returns a copy of a session, with its step log copied so the
// caller can read it without holding any lock.
func (r *Registry) Snapshot(id string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	copied := *sess
	copied.Steps = append([]Step(nil), sess.Steps...)
	return copied, true
}

// SessionCost sums the cost of a session's steps.
func (r *Registry) SessionCost(id string) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return 0, ErrSessionNotFound
	}
	return sess.Cost(), nil
}
