package duet

import "errors"

// Agent errors
var (
	// ErrAgentUnavailable indicates the selected backend failed its
	// availability check before spawning.
	ErrAgentUnavailable = errors.New("agent unavailable")

	// ErrAgentTimeout indicates an agent call exceeded its timeout.
	ErrAgentTimeout = errors.New("agent call timed out")

	// ErrAgentFailed indicates an agent call failed during execution.
	ErrAgentFailed = errors.New("agent call failed")

	// ErrSessionNotFound indicates the session id is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionFinished indicates the session already reached a terminal
	// status and cannot be mutated.
	ErrSessionFinished = errors.New("session already finished")
)

// Orchestration errors
var (
	// ErrEmptyPrompt indicates the task prompt was empty or whitespace.
	ErrEmptyPrompt = errors.New("empty prompt")

	// ErrUnknownAdapter indicates a routing decision named an adapter
	// the engine has no backend for.
	ErrUnknownAdapter = errors.New("unknown adapter")

	// ErrIncompleteRouteTable indicates a route table does not cover the
	// full task type x complexity cross-product.
	ErrIncompleteRouteTable = errors.New("route table does not cover all task types and complexities")
)

// AgentError wraps a backend failure with context.
type AgentError struct {
	Adapter AdapterID // Adapter that failed
	Op      string    // Operation that failed (e.g., "spawn", "send")
	Output  string    // Captured stderr output, if any
	Err     error     // Underlying error
}

func (e *AgentError) Error() string {
	if e.Output != "" {
		return string(e.Adapter) + " " + e.Op + ": " + e.Output
	}
	return string(e.Adapter) + " " + e.Op + ": " + e.Err.Error()
}

func (e *AgentError) Unwrap() error {
	return e.Err
}
