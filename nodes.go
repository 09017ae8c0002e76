package duet

import (
	"fmt"

	"github.com/randalmurphal/duet/notify"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
	"github.com/randalmurphal/llmkit/model"
)

// execState flows through the execution graph. Nodes receive it by value
// and return the updated copy.
type execState struct {
	sessionID string
	prompt    string
	prior     string // previous session synopsis, when attached
	opts      Options

	taskType   TaskType
	complexity Complexity
	decision   Decision

	reviewerID    AdapterID
	reviewerModel model.ModelName

	draft       string
	feedback    string
	approved    bool
	reviews     int
	corrections int
	result      string
}

// reviewSessionID derives the reviewer's agent session id.
func (s execState) reviewSessionID() string {
	return s.sessionID + "-review"
}

// =============================================================================
// Graph Nodes
// =============================================================================

// routeNode classifies the prompt and selects the routing decision.
func (e *Engine) routeNode(ctx flowgraph.Context, st execState) (execState, error) {
	st.complexity = ClassifyComplexity(st.prompt, len(st.prompt), e.thresholds)
	st.taskType = ClassifyTaskType(st.prompt)
	st.decision = e.router.SelectModel(st.taskType, st.complexity)

	if st.opts.ForceAdapter != "" && st.opts.ForceAdapter != st.decision.Adapter {
		st.decision.Adapter = st.opts.ForceAdapter
		st.decision.Model = DefaultModelFor(st.opts.ForceAdapter, st.complexity)
	}
	if st.opts.ForceModel != "" {
		st.decision.Model = st.opts.ForceModel
	}
	if st.opts.SkipReview {
		st.decision.RequiresReview = false
	}

	if st.decision.RequiresReview {
		st.reviewerID = ReviewerFor(st.decision.Adapter)
		st.reviewerModel = DefaultModelFor(st.reviewerID, st.complexity)
	}

	// Fail before any session is spawned if either side of the routing
	// cannot serve it.
	required := []AdapterID{st.decision.Adapter}
	if st.decision.RequiresReview {
		required = append(required, st.reviewerID)
	}
	for _, id := range required {
		a, err := e.agent(id)
		if err != nil {
			return st, err
		}
		if !a.IsAvailable() {
			return st, fmt.Errorf("%s: %w", id, ErrAgentUnavailable)
		}
	}

	if err := e.registry.SetRouting(st.sessionID, st.taskType, st.complexity, st.decision); err != nil {
		return st, err
	}

	e.logger.Info("routed task",
		"session_id", st.sessionID,
		"task_type", st.taskType,
		"complexity", st.complexity,
		"adapter", st.decision.Adapter,
		"model", st.decision.Model,
		"review", st.decision.RequiresReview,
	)
	e.emit(notify.StageRouting, st.sessionID,
		fmt.Sprintf("routed %s/%s to %s", st.taskType, st.complexity, st.decision.Adapter),
		notify.SeverityInfo,
		map[string]any{"model": st.decision.Model, "review": st.decision.RequiresReview},
	)

	return st, nil
}

// spawnNode starts the drafting agent session, and the reviewer's when a
// review pass is required.
func (e *Engine) spawnNode(ctx flowgraph.Context, st execState) (execState, error) {
	drafter, err := e.agent(st.decision.Adapter)
	if err != nil {
		return st, err
	}
	if err := drafter.Spawn(ctx, st.sessionID, SpawnOptions{Model: st.decision.Model}); err != nil {
		return st, err
	}

	if st.decision.RequiresReview {
		reviewer, err := e.agent(st.reviewerID)
		if err != nil {
			return st, err
		}
		if err := reviewer.Spawn(ctx, st.reviewSessionID(), SpawnOptions{Model: st.reviewerModel}); err != nil {
			return st, err
		}
	}

	return st, nil
}

// draftNode sends the task to the drafting agent.
func (e *Engine) draftNode(ctx flowgraph.Context, st execState) (execState, error) {
	msg, err := e.prompts.LoadWithVars("draft", map[string]any{
		"Prompt":  st.prompt,
		"Context": st.prior,
	})
	if err != nil {
		return st, err
	}

	drafter, err := e.agent(st.decision.Adapter)
	if err != nil {
		return st, err
	}

	e.emit(notify.StageExecuting, st.sessionID,
		fmt.Sprintf("drafting with %s", st.decision.Adapter), notify.SeverityInfo, nil)

	resp, err := drafter.SendAndWait(ctx, st.sessionID, msg, SendOptions{Timeout: e.settings.RequestTimeout})
	if err != nil {
		return st, err
	}

	cost := drafter.EstimateCost(st.decision.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	e.recordStep(st.sessionID, st.decision.Adapter, StepDraft, st.decision.Model, resp, cost)

	st.draft = resp.Text
	return st, nil
}

// afterDraft routes to review when the decision requires it.
func (e *Engine) afterDraft(ctx flowgraph.Context, st execState) string {
	if st.decision.RequiresReview {
		return "review"
	}
	return "finalize"
}

// reviewNode sends the current draft to the reviewing agent and parses
// its verdict.
func (e *Engine) reviewNode(ctx flowgraph.Context, st execState) (execState, error) {
	msg, err := e.prompts.LoadWithVars("review", map[string]any{
		"Prompt": st.prompt,
		"Draft":  st.draft,
	})
	if err != nil {
		return st, err
	}

	reviewer, err := e.agent(st.reviewerID)
	if err != nil {
		return st, err
	}

	resp, err := reviewer.SendAndWait(ctx, st.reviewSessionID(), msg, SendOptions{Timeout: e.settings.RequestTimeout})
	if err != nil {
		return st, err
	}

	cost := reviewer.EstimateCost(st.reviewerModel, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	e.recordStep(st.sessionID, st.reviewerID, StepReview, st.reviewerModel, resp, cost)

	verdict := ParseVerdict(resp.Text)
	st.reviews++
	st.approved = verdict.Approved
	st.feedback = verdict.Feedback

	// An approving reviewer may hand back a touched-up artifact; it
	// replaces the working draft verbatim.
	if verdict.Approved && verdict.Artifact != "" {
		st.draft = verdict.Artifact
	}

	severity := notify.SeverityInfo
	msgText := "draft approved"
	if !verdict.Approved {
		severity = notify.SeverityWarning
		msgText = "draft rejected"
	}
	e.emit(notify.StageReview, st.sessionID, msgText, severity,
		map[string]any{"reviews": st.reviews})

	return st, nil
}

// afterReview routes to correction unless the draft was approved or the
// correction budget is already spent. A budget of zero means a rejected
// first draft finalizes as-is.
func (e *Engine) afterReview(ctx flowgraph.Context, st execState) string {
	if st.approved || st.corrections >= e.settings.MaxCorrectionRetries {
		return "finalize"
	}
	return "correct"
}

// correctNode sends review feedback back to the drafting agent for a
// corrected draft.
func (e *Engine) correctNode(ctx flowgraph.Context, st execState) (execState, error) {
	msg, err := e.prompts.LoadWithVars("correction", map[string]any{
		"Prompt":   st.prompt,
		"Draft":    st.draft,
		"Feedback": st.feedback,
	})
	if err != nil {
		return st, err
	}

	drafter, err := e.agent(st.decision.Adapter)
	if err != nil {
		return st, err
	}

	e.emit(notify.StageCorrection, st.sessionID,
		fmt.Sprintf("correction attempt %d", st.corrections+1), notify.SeverityInfo, nil)

	resp, err := drafter.SendAndWait(ctx, st.sessionID, msg, SendOptions{Timeout: e.settings.RequestTimeout})
	if err != nil {
		return st, err
	}

	cost := drafter.EstimateCost(st.decision.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	e.recordStep(st.sessionID, st.decision.Adapter, StepCorrection, st.decision.Model, resp, cost)

	st.draft = resp.Text
	st.corrections++
	return st, nil
}

// afterCorrect loops back to review while the correction budget allows.
// A corrected draft that exhausts the budget finalizes unreviewed rather
// than spending another review round on it.
func (e *Engine) afterCorrect(ctx flowgraph.Context, st execState) string {
	if st.corrections >= e.settings.MaxCorrectionRetries {
		return "finalize"
	}
	return "review"
}

// finalizeNode completes the session, persists the synopsis, and emits the
// completion event.
func (e *Engine) finalizeNode(ctx flowgraph.Context, st execState) (execState, error) {
	st.result = st.draft

	if err := e.registry.Finish(st.sessionID, StatusComplete, st.result, ""); err != nil {
		e.logger.Warn("could not finish session", "session_id", st.sessionID, "error", err)
	}
	e.persist(st.sessionID)

	cost, _ := e.registry.SessionCost(st.sessionID)
	e.logger.Info("session complete",
		"session_id", st.sessionID,
		"reviews", st.reviews,
		"corrections", st.corrections,
		"cost", cost,
	)
	e.emit(notify.StageComplete, st.sessionID, "session finished", notify.SeverityInfo,
		map[string]any{"cost": cost, "reviews": st.reviews, "corrections": st.corrections})

	return st, nil
}
