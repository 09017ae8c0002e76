// Package testutil provides test doubles for agent backends.
package testutil

import (
	"context"
	"fmt"
	"sync"

	duet "github.com/randalmurphal/duet"
	"github.com/randalmurphal/llmkit/model"
)

// Call records one SendAndWait invocation.
type Call struct {
	SessionID string
	Message   string
}

// ScriptedAgent is an Agent double that replays canned responses in order.
// The zero value is usable; configure fields before first use.
type ScriptedAgent struct {
	// Responses are returned in order. When exhausted, the last response
	// repeats.
	Responses []duet.Response

	// Rate is the flat per-token price used by EstimateCost.
	Rate float64

	// Unavailable makes IsAvailable report false and Spawn fail.
	Unavailable bool

	// SpawnErr and SendErr, when set, are returned by the corresponding
	// method.
	SpawnErr error
	SendErr  error

	mu      sync.Mutex
	next    int
	spawned []string
	calls   []Call
}

// Spawn implements duet.Agent.
func (a *ScriptedAgent) Spawn(ctx context.Context, sessionID string, opts duet.SpawnOptions) error {
	if a.Unavailable {
		return fmt.Errorf("scripted: %w", duet.ErrAgentUnavailable)
	}
	if a.SpawnErr != nil {
		return a.SpawnErr
	}
	a.mu.Lock()
	a.spawned = append(a.spawned, sessionID)
	a.mu.Unlock()
	return nil
}

// SendAndWait implements duet.Agent.
func (a *ScriptedAgent) SendAndWait(ctx context.Context, sessionID, message string, opts duet.SendOptions) (*duet.Response, error) {
	if a.SendErr != nil {
		return nil, a.SendErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls = append(a.calls, Call{SessionID: sessionID, Message: message})

	if len(a.Responses) == 0 {
		return &duet.Response{Text: "ok"}, nil
	}
	idx := a.next
	if idx >= len(a.Responses) {
		idx = len(a.Responses) - 1
	}
	a.next++
	resp := a.Responses[idx]
	return &resp, nil
}

// EstimateCost implements duet.Agent with a flat per-token rate across
// all models.
func (a *ScriptedAgent) EstimateCost(mdl model.ModelName, inputTokens, outputTokens int) float64 {
	return float64(inputTokens+outputTokens) * a.Rate
}

// IsAvailable implements duet.Agent.
func (a *ScriptedAgent) IsAvailable() bool {
	return !a.Unavailable
}

// Calls returns all recorded SendAndWait invocations.
func (a *ScriptedAgent) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Call(nil), a.calls...)
}

// CallCount returns the number of SendAndWait invocations.
func (a *ScriptedAgent) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

// Spawned returns the session ids passed to Spawn, in order.
func (a *ScriptedAgent) Spawned() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.spawned...)
}
