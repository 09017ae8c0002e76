package duet_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	duet "github.com/randalmurphal/duet"
	"github.com/randalmurphal/duet/config"
	"github.com/randalmurphal/duet/notify"
	"github.com/randalmurphal/duet/testutil"
	"github.com/randalmurphal/llmkit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scripted(responses ...duet.Response) *testutil.ScriptedAgent {
	return &testutil.ScriptedAgent{Responses: responses}
}

func newTestEngine(t *testing.T, maxRetries int, gemini, claude *testutil.ScriptedAgent, opts ...duet.Option) *duet.Engine {
	t.Helper()

	settings := config.Default()
	settings.MaxCorrectionRetries = maxRetries
	settings.ContextPath = filepath.Join(t.TempDir(), "context.md")

	base := []duet.Option{
		duet.WithAgent(duet.AdapterGemini, gemini),
		duet.WithAgent(duet.AdapterClaude, claude),
		duet.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	eng, err := duet.New(settings, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng
}

func TestExecute_TrivialTaskRoutesToFastAgentWithoutReview(t *testing.T) {
	gemini := scripted(duet.Response{Text: "All set.", Usage: duet.Usage{InputTokens: 10, OutputTokens: 5}})
	claude := scripted()

	eng := newTestEngine(t, 2, gemini, claude)

	result, err := eng.Execute(context.Background(), "Simple task", duet.Options{})
	require.NoError(t, err)

	assert.Equal(t, duet.ComplexityTrivial, result.Summary.Complexity)
	assert.Equal(t, duet.TaskQuestion, result.Summary.TaskType)
	assert.Equal(t, duet.AdapterGemini, result.Routing.Adapter)
	assert.False(t, result.Routing.RequiresReview)
	assert.Equal(t, "All set.", result.Output)
	assert.True(t, result.Summary.Approved, "unreviewed tasks complete approved")
	assert.Equal(t, 1, gemini.CallCount())
	assert.Equal(t, 0, claude.CallCount(), "supervisor should stay idle")
	assert.Equal(t, 0, result.Summary.Reviews)
	assert.Equal(t, 1, result.Summary.Steps)
}

func TestExecute_ArchitectureRoutesToSupervisor(t *testing.T) {
	gemini := scripted()
	claude := scripted(duet.Response{Text: "Plan: split into three services."})

	eng := newTestEngine(t, 2, gemini, claude)

	result, err := eng.Execute(context.Background(), "Design the service architecture", duet.Options{})
	require.NoError(t, err)

	assert.Equal(t, duet.TaskArchitecture, result.Summary.TaskType)
	assert.Equal(t, duet.AdapterClaude, result.Routing.Adapter)
	assert.Equal(t, model.ModelHaiku, result.Routing.Model)
	assert.False(t, result.Routing.RequiresReview)
	assert.Equal(t, 1, claude.CallCount())
	assert.Equal(t, 0, gemini.CallCount())
}

func TestExecute_DraftApprovedOnFirstReview(t *testing.T) {
	gemini := scripted(duet.Response{Text: "func parseDate(s string) {}"})
	claude := scripted(duet.Response{Text: "Looks good. APPROVED"})

	eng := newTestEngine(t, 2, gemini, claude)

	result, err := eng.Execute(context.Background(), "Write a function to parse dates", duet.Options{})
	require.NoError(t, err)

	assert.Equal(t, duet.TaskDraftCode, result.Summary.TaskType)
	assert.True(t, result.Routing.RequiresReview)
	assert.True(t, result.Summary.Approved)
	assert.Equal(t, "func parseDate(s string) {}", result.Output)
	assert.Equal(t, 1, result.Summary.Reviews)
	assert.Equal(t, 0, result.Summary.Corrections)
	assert.Equal(t, 2, result.Summary.Steps)

	sess, ok := eng.Session(result.SessionID)
	require.True(t, ok)
	require.Len(t, sess.Steps, 2)
	assert.Equal(t, duet.StepDraft, sess.Steps[0].Role)
	assert.Equal(t, duet.StepReview, sess.Steps[1].Role)
	assert.Equal(t, duet.StatusComplete, sess.Status)
}

func TestExecute_RejectionTriggersCorrection(t *testing.T) {
	gemini := scripted(
		duet.Response{Text: "Draft 1"},
		duet.Response{Text: "Draft 2"},
	)
	claude := scripted(
		duet.Response{Text: "Off by one in the loop."},
		duet.Response{Text: "APPROVED"},
	)

	eng := newTestEngine(t, 2, gemini, claude)

	result, err := eng.Execute(context.Background(), "Write a function to merge ranges", duet.Options{})
	require.NoError(t, err)

	assert.Equal(t, "Draft 2", result.Output)
	assert.True(t, result.Summary.Approved)
	assert.Equal(t, 2, result.Summary.Reviews)
	assert.Equal(t, 1, result.Summary.Corrections)
	assert.Equal(t, 4, result.Summary.Steps)

	// The correction prompt must carry the review feedback.
	calls := gemini.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].Message, "Off by one in the loop.")
	assert.Contains(t, calls[1].Message, "Draft 1")
}

func TestExecute_CorrectionBudgetExhausts(t *testing.T) {
	gemini := scripted(
		duet.Response{Text: "Draft 1"},
		duet.Response{Text: "Draft 2"},
		duet.Response{Text: "Draft 3"},
	)
	claude := scripted(duet.Response{Text: "Still broken."})

	eng := newTestEngine(t, 2, gemini, claude)

	result, err := eng.Execute(context.Background(), "Write a function to merge ranges", duet.Options{})
	require.NoError(t, err, "budget exhaustion is a normal completion")

	assert.Equal(t, "Draft 3", result.Output, "last draft wins")
	assert.False(t, result.Summary.Approved)
	assert.Equal(t, 2, result.Summary.Reviews)
	assert.Equal(t, 2, result.Summary.Corrections)

	sess, ok := eng.Session(result.SessionID)
	require.True(t, ok)
	assert.Equal(t, duet.StatusComplete, sess.Status)
}

func TestExecute_ZeroBudgetFinalizesRejectedDraft(t *testing.T) {
	gemini := scripted(duet.Response{Text: "Draft 1"})
	claude := scripted(duet.Response{Text: "Not good enough."})

	eng := newTestEngine(t, 0, gemini, claude)

	result, err := eng.Execute(context.Background(), "Write a function to merge ranges", duet.Options{})
	require.NoError(t, err)

	assert.Equal(t, "Draft 1", result.Output)
	assert.False(t, result.Summary.Approved)
	assert.Equal(t, 1, result.Summary.Reviews)
	assert.Equal(t, 0, result.Summary.Corrections)
}

func TestExecute_ApprovedReviewArtifactReplacesDraft(t *testing.T) {
	gemini := scripted(duet.Response{Text: "Bad code"})
	claude := scripted(duet.Response{
		Text: "Small fix applied below.\n```go\nFixed code\n```\nAPPROVED",
	})

	eng := newTestEngine(t, 2, gemini, claude)

	result, err := eng.Execute(context.Background(), "Write a function to parse dates", duet.Options{})
	require.NoError(t, err)

	assert.True(t, result.Summary.Approved)
	assert.Equal(t, "Fixed code", result.Output, "reviewer's artifact replaces the draft")
	assert.Equal(t, 0, result.Summary.Corrections)

	sess, ok := eng.Session(result.SessionID)
	require.True(t, ok)
	assert.Equal(t, "Fixed code", sess.Result)
}

func TestExecute_CostAccounting(t *testing.T) {
	usage := duet.Usage{InputTokens: 100, OutputTokens: 50}
	gemini := scripted(duet.Response{Text: "Draft", Usage: usage})
	gemini.Rate = 0.0001
	claude := scripted(duet.Response{Text: "APPROVED", Usage: usage})
	claude.Rate = 0.0001

	eng := newTestEngine(t, 2, gemini, claude)

	result, err := eng.Execute(context.Background(), "Write a function to parse dates", duet.Options{})
	require.NoError(t, err)

	// Two steps at (100+50) * 0.0001 each.
	assert.InDelta(t, 0.03, result.Cost, 1e-9)

	sessionCost, err := eng.SessionCost(result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, result.Cost, sessionCost)

	totals, grand := eng.TotalCosts()
	assert.InDelta(t, result.Cost, grand, 1e-9)
	assert.Equal(t, 100, totals[duet.AdapterGemini].InputTokens)
	assert.Equal(t, 50, totals[duet.AdapterGemini].OutputTokens)
	assert.Equal(t, 100, totals[duet.AdapterClaude].InputTokens)
	assert.InDelta(t, 0.015, totals[duet.AdapterGemini].Cost, 1e-9)
}

func TestExecute_EmptyPrompt(t *testing.T) {
	eng := newTestEngine(t, 2, scripted(), scripted())

	_, err := eng.Execute(context.Background(), "   \n\t", duet.Options{})
	assert.ErrorIs(t, err, duet.ErrEmptyPrompt)
}

func TestExecute_UnavailableAgentFails(t *testing.T) {
	gemini := scripted()
	gemini.Unavailable = true
	claude := scripted()

	eng := newTestEngine(t, 2, gemini, claude)

	_, err := eng.Execute(context.Background(), "Simple task", duet.Options{})
	assert.ErrorIs(t, err, duet.ErrAgentUnavailable)
}

func TestExecute_UnavailableReviewerFailsBeforeSpawn(t *testing.T) {
	gemini := scripted(duet.Response{Text: "Draft"})
	claude := scripted()
	claude.Unavailable = true

	eng := newTestEngine(t, 2, gemini, claude)

	// draft_code routes to gemini with a claude review; the missing
	// reviewer must surface before the drafter's session is spawned.
	_, err := eng.Execute(context.Background(), "Write a function to parse dates", duet.Options{})
	assert.ErrorIs(t, err, duet.ErrAgentUnavailable)
	assert.Empty(t, gemini.Spawned())
	assert.Equal(t, 0, gemini.CallCount())
}

func TestExecute_AgentFailureMarksSessionError(t *testing.T) {
	gemini := scripted(duet.Response{Text: "Draft"})
	claude := scripted()
	claude.SendErr = duet.ErrAgentFailed

	eng := newTestEngine(t, 2, gemini, claude)

	_, err := eng.Execute(context.Background(), "Write a function to parse dates", duet.Options{})
	assert.ErrorIs(t, err, duet.ErrAgentFailed)
}

func TestExecute_ForceAdapter(t *testing.T) {
	gemini := scripted()
	claude := scripted(duet.Response{Text: "Answer."})

	eng := newTestEngine(t, 2, gemini, claude)

	result, err := eng.Execute(context.Background(), "Simple task", duet.Options{
		ForceAdapter: duet.AdapterClaude,
	})
	require.NoError(t, err)

	assert.Equal(t, duet.AdapterClaude, result.Routing.Adapter)
	assert.Equal(t, model.ModelHaiku, result.Routing.Model, "forced adapter gets its tier default model")
	assert.Equal(t, 1, claude.CallCount())
	assert.Equal(t, 0, gemini.CallCount())
}

func TestExecute_SkipReview(t *testing.T) {
	gemini := scripted(duet.Response{Text: "Draft"})
	claude := scripted()

	eng := newTestEngine(t, 2, gemini, claude)

	result, err := eng.Execute(context.Background(), "Write a function to parse dates", duet.Options{
		SkipReview: true,
	})
	require.NoError(t, err)

	assert.False(t, result.Routing.RequiresReview)
	assert.True(t, result.Summary.Approved)
	assert.Equal(t, 0, claude.CallCount())
	assert.Equal(t, 1, result.Summary.Steps)
}

func TestExecute_AttachContext(t *testing.T) {
	gemini := scripted(
		duet.Response{Text: "First answer."},
		duet.Response{Text: "Second answer."},
	)
	claude := scripted()

	eng := newTestEngine(t, 2, gemini, claude)

	first, err := eng.Execute(context.Background(), "Simple task", duet.Options{})
	require.NoError(t, err)

	_, err = eng.Execute(context.Background(), "Simple task, again", duet.Options{AttachContext: true})
	require.NoError(t, err)

	calls := gemini.Calls()
	require.Len(t, calls, 2)
	assert.NotContains(t, calls[0].Message, "duet session")
	assert.Contains(t, calls[1].Message, "duet session "+first.SessionID,
		"second draft prompt should carry the persisted synopsis")
}

func TestExecute_SessionIsolation(t *testing.T) {
	gemini := scripted(duet.Response{Text: "a"}, duet.Response{Text: "b"})
	claude := scripted()

	eng := newTestEngine(t, 2, gemini, claude)

	r1, err := eng.Execute(context.Background(), "Simple task", duet.Options{})
	require.NoError(t, err)
	r2, err := eng.Execute(context.Background(), "Simple task", duet.Options{})
	require.NoError(t, err)

	assert.NotEqual(t, r1.SessionID, r2.SessionID)
	assert.Equal(t, 1, r2.Summary.Steps, "counters must not leak between sessions")
	assert.Equal(t, 0, r2.Summary.Corrections)
}

func TestExecute_EmitsLifecycleEvents(t *testing.T) {
	gemini := scripted(duet.Response{Text: "Draft"})
	claude := scripted(duet.Response{Text: "APPROVED"})

	var mu sync.Mutex
	var events []notify.Event
	capture := notifierFunc(func(ctx context.Context, e notify.Event) error {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		return nil
	})

	eng := newTestEngine(t, 2, gemini, claude, duet.WithNotifier(capture))

	_, err := eng.Execute(context.Background(), "Write a function to parse dates", duet.Options{})
	require.NoError(t, err)

	// Delivery is asynchronous; Close drains the queue.
	eng.Close()

	mu.Lock()
	defer mu.Unlock()
	stages := make([]notify.Stage, 0, len(events))
	for _, e := range events {
		stages = append(stages, e.Stage)
	}
	assert.Equal(t, []notify.Stage{
		notify.StageRouting,
		notify.StageExecuting,
		notify.StageReview,
		notify.StageComplete,
	}, stages)
}

func TestExecute_SlowNotifierDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	blocking := notifierFunc(func(ctx context.Context, e notify.Event) error {
		<-release
		return nil
	})

	gemini := scripted(duet.Response{Text: "All set."})
	eng := newTestEngine(t, 2, gemini, scripted(), duet.WithNotifier(blocking))

	done := make(chan error, 1)
	go func() {
		_, err := eng.Execute(context.Background(), "Simple task", duet.Options{})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Execute blocked on a stalled notifier")
	}

	close(release)
}

// notifierFunc adapts a function to the notify.Notifier interface.
type notifierFunc func(ctx context.Context, e notify.Event) error

func (f notifierFunc) Notify(ctx context.Context, e notify.Event) error { return f(ctx, e) }

func TestExecute_PersistsSynopsis(t *testing.T) {
	gemini := scripted(duet.Response{Text: "All set."})
	claude := scripted()

	settings := config.Default()
	settings.ContextPath = filepath.Join(t.TempDir(), "context.md")

	eng, err := duet.New(settings,
		duet.WithAgent(duet.AdapterGemini, gemini),
		duet.WithAgent(duet.AdapterClaude, claude),
		duet.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	result, err := eng.Execute(context.Background(), "Simple task", duet.Options{})
	require.NoError(t, err)

	store := duet.NewContextStore(settings.ContextPath, nil)
	content, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok, "completion should persist the synopsis")
	assert.True(t, strings.Contains(content, result.SessionID))
	assert.True(t, strings.Contains(content, "All set."))
}
