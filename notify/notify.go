package notify

import (
	"context"
	"time"
)

// =============================================================================
// Notification Types
// =============================================================================

// Stage represents the phase of a session an event belongs to.
type Stage string

// Stage constants.
const (
	StageRouting    Stage = "routing"
	StageExecuting  Stage = "executing"
	StageReview     Stage = "review"
	StageCorrection Stage = "correction"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// Severity constants for notification events.
const (
	SeverityCritical = "critical"
	SeverityError    = "error"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Event describes a session event for notification.
type Event struct {
	Stage     Stage          `json:"stage"`
	SessionID string         `json:"session_id"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity"` // SeverityInfo, SeverityWarning, SeverityError
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// =============================================================================
// Notifier Interface
// =============================================================================

// Notifier sends notifications about session events. Callers dispatch
// events off their hot path; implementations may still block on I/O.
type Notifier interface {
	// Notify sends a notification.
	Notify(ctx context.Context, event Event) error
}
