package duet

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultContextPath is the synopsis file location when none is configured.
const DefaultContextPath = ".duet/context.md"

// ContextStore persists a single-slot, human-readable synopsis of the most
// recent session so a later invocation can pick up where the last one left
// off. The slot is fully overwritten on every persist.
type ContextStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewContextStore creates a context store writing to the given path.
// An empty path uses DefaultContextPath. A nil logger uses slog.Default.
func NewContextStore(path string, logger *slog.Logger) *ContextStore {
	if path == "" {
		path = DefaultContextPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextStore{path: path, logger: logger}
}

// Path returns the synopsis file path.
func (s *ContextStore) Path() string {
	return s.path
}

// Persist writes the session synopsis, replacing any prior content. The
// write is atomic: content goes to a temp file which is renamed over the
// slot, so readers never observe a partial write.
func (s *ContextStore) Persist(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create context dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(renderSynopsis(sess)), 0644); err != nil {
		return fmt.Errorf("write context: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace context: %w", err)
	}

	s.logger.Debug("persisted session context", "path", s.path, "session_id", sess.ID)
	return nil
}

// Load reads the synopsis slot. It returns ok=false when no synopsis exists.
// The content is returned raw; interpretation is the caller's concern.
func (s *ContextStore) Load() (content string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read context: %w", err)
	}
	return string(data), true, nil
}

// renderSynopsis formats a session as the persisted synopsis document.
func renderSynopsis(sess Session) string {
	var head strings.Builder
	fmt.Fprintf(&head, "# duet session %s\n\n", sess.ID)
	fmt.Fprintf(&head, "Status: %s\n", sess.Status)
	fmt.Fprintf(&head, "Task: %s (%s)\n", sess.TaskType, sess.Complexity)
	fmt.Fprintf(&head, "Routing: %s / %s (review required: %t)",
		sess.Routing.Adapter, sess.Routing.Model, sess.Routing.RequiresReview)
	if sess.Error != "" {
		fmt.Fprintf(&head, "\nError: %s", sess.Error)
	}

	b := NewPromptBuilder().
		Add(head.String()).
		AddSection("Result", sess.Result)

	if len(sess.Steps) > 0 {
		var steps strings.Builder
		for i, step := range sess.Steps {
			fmt.Fprintf(&steps, "%d. %s by %s (%s): %d in / %d out, $%.4f\n",
				i+1, step.Role, step.Actor, step.Model,
				step.InputTokens, step.OutputTokens, step.Cost)
		}
		b.AddSection("Steps", strings.TrimRight(steps.String(), "\n"))
	}

	var cost strings.Builder
	for _, actor := range []AdapterID{AdapterClaude, AdapterGemini} {
		if c, ok := sess.CostByActor()[actor]; ok {
			fmt.Fprintf(&cost, "%s: $%.4f\n", actor, c)
		}
	}
	fmt.Fprintf(&cost, "total: $%.4f", sess.Cost())
	b.AddSection("Cost", cost.String())

	return b.Build() + "\n"
}
