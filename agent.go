package duet

import (
	"context"
	"time"

	"github.com/randalmurphal/llmkit/model"
)

// Usage is the token usage metadata an agent reports for one round trip.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Response is one complete agent reply with its usage metadata.
type Response struct {
	Text  string
	Usage Usage
}

// SpawnOptions configure a new conversational session with an agent.
type SpawnOptions struct {
	Model        model.ModelName // Model for this session (empty = backend default)
	SystemPrompt string          // System prompt, if the backend supports one
	WorkDir      string          // Working directory for CLI backends
}

// SendOptions configure a single send.
type SendOptions struct {
	Timeout time.Duration // Per-call timeout (zero = backend default)
}

// Agent is the capability interface every backend implements. The engine
// depends only on this interface, so backends (CLI subprocesses, HTTP APIs)
// and test doubles are interchangeable.
type Agent interface {
	// Spawn initializes a conversational session with the backend.
	// Returns an error wrapping ErrAgentUnavailable if the backend is not
	// installed or not usable.
	Spawn(ctx context.Context, sessionID string, opts SpawnOptions) error

	// SendAndWait sends one message and blocks until the full response and
	// its usage metadata are available. Exceeding the timeout returns an
	// error wrapping ErrAgentTimeout.
	SendAndWait(ctx context.Context, sessionID, message string, opts SendOptions) (*Response, error)

	// EstimateCost prices a round trip on the given model in USD. Pure,
	// no I/O. An unknown or empty model prices at the backend's default;
	// a subscription channel may price everything at zero.
	EstimateCost(mdl model.ModelName, inputTokens, outputTokens int) float64

	// IsAvailable reports whether the backend is installed and usable.
	// Consulted before routing work to the agent.
	IsAvailable() bool
}
