package duet

import (
	"fmt"

	"github.com/randalmurphal/llmkit/model"
)

// =============================================================================
// Adapters and Models
// =============================================================================

// AdapterID identifies one of the two agent backends.
type AdapterID string

const (
	// AdapterClaude is the supervising agent. It drafts critical work and
	// reviews the fast agent's drafts.
	AdapterClaude AdapterID = "claude"

	// AdapterGemini is the fast-reading agent, used for breadth work.
	AdapterGemini AdapterID = "gemini"
)

// Gemini model names. Claude model names come from llmkit/model.
const (
	ModelGeminiFlash model.ModelName = "gemini-2.5-flash"
	ModelGeminiPro   model.ModelName = "gemini-2.5-pro"
)

// ReviewerFor returns the adapter that reviews drafts produced by a.
// Reviews always cross to the other agent.
func ReviewerFor(a AdapterID) AdapterID {
	if a == AdapterGemini {
		return AdapterClaude
	}
	return AdapterGemini
}

// =============================================================================
// Routing
// =============================================================================

// Decision is the routing outcome for one task: which adapter runs it, with
// which model, and whether a supervising review pass is mandatory. A Decision
// is never mutated once produced.
type Decision struct {
	Adapter        AdapterID       `json:"adapter"`
	Model          model.ModelName `json:"model"`
	RequiresReview bool            `json:"requiresReview"`
}

// RouteTable maps (task type, complexity) to a Decision. Tables are injected
// read-only configuration; DefaultRouteTable returns the standard policy.
type RouteTable map[TaskType]map[Complexity]Decision

// DefaultRouteTable returns the standard routing policy:
//
//   - read_analyze always goes to Gemini (flash for light tiers, pro for
//     heavy), never reviewed: reading is its specialty and review adds cost
//     without changing the answer.
//   - draft_code and fix_bug go to Gemini with a mandatory Claude review up
//     through complex; critical drafting goes straight to Claude opus.
//   - architecture always goes to Claude, model scaled by tier.
//   - question goes to Gemini except critical questions, which Claude takes.
func DefaultRouteTable() RouteTable {
	return RouteTable{
		TaskReadAnalyze: {
			ComplexityTrivial:  {AdapterGemini, ModelGeminiFlash, false},
			ComplexityStandard: {AdapterGemini, ModelGeminiFlash, false},
			ComplexityComplex:  {AdapterGemini, ModelGeminiPro, false},
			ComplexityCritical: {AdapterGemini, ModelGeminiPro, false},
		},
		TaskDraftCode: {
			ComplexityTrivial:  {AdapterGemini, ModelGeminiFlash, true},
			ComplexityStandard: {AdapterGemini, ModelGeminiFlash, true},
			ComplexityComplex:  {AdapterGemini, ModelGeminiPro, true},
			ComplexityCritical: {AdapterClaude, model.ModelOpus, false},
		},
		TaskFixBug: {
			ComplexityTrivial:  {AdapterGemini, ModelGeminiFlash, true},
			ComplexityStandard: {AdapterGemini, ModelGeminiFlash, true},
			ComplexityComplex:  {AdapterGemini, ModelGeminiPro, true},
			ComplexityCritical: {AdapterClaude, model.ModelOpus, false},
		},
		TaskArchitecture: {
			ComplexityTrivial:  {AdapterClaude, model.ModelHaiku, false},
			ComplexityStandard: {AdapterClaude, model.ModelSonnet, false},
			ComplexityComplex:  {AdapterClaude, model.ModelSonnet, false},
			ComplexityCritical: {AdapterClaude, model.ModelOpus, false},
		},
		TaskQuestion: {
			ComplexityTrivial:  {AdapterGemini, ModelGeminiFlash, false},
			ComplexityStandard: {AdapterGemini, ModelGeminiFlash, false},
			ComplexityComplex:  {AdapterGemini, ModelGeminiPro, false},
			ComplexityCritical: {AdapterClaude, model.ModelSonnet, false},
		},
	}
}

// DefaultModelFor returns an adapter's default model for a complexity tier.
// Used when a forced adapter bypasses the route table.
func DefaultModelFor(adapter AdapterID, c Complexity) model.ModelName {
	if adapter == AdapterGemini {
		if c == ComplexityComplex || c == ComplexityCritical {
			return ModelGeminiPro
		}
		return ModelGeminiFlash
	}
	switch c {
	case ComplexityTrivial:
		return model.ModelHaiku
	case ComplexityCritical:
		return model.ModelOpus
	default:
		return model.ModelSonnet
	}
}

// Router selects adapters and models from an injected route table.
// SelectModel is a pure lookup: no randomness, no I/O.
type Router struct {
	table RouteTable
}

// NewRouter creates a router over the given table. A nil table uses
// DefaultRouteTable.
func NewRouter(table RouteTable) *Router {
	if table == nil {
		table = DefaultRouteTable()
	}
	return &Router{table: table}
}

// Validate checks that the table covers the full cross-product of task
// types and complexity tiers.
func (r *Router) Validate() error {
	for _, tt := range TaskTypes {
		byTier, ok := r.table[tt]
		if !ok {
			return fmt.Errorf("%w: missing task type %s", ErrIncompleteRouteTable, tt)
		}
		for _, c := range Complexities {
			if _, ok := byTier[c]; !ok {
				return fmt.Errorf("%w: missing %s/%s", ErrIncompleteRouteTable, tt, c)
			}
		}
	}
	return nil
}

// SelectModel returns the routing decision for a task type and complexity.
// It is total: unknown combinations fall back to the supervising agent with
// its standard model.
func (r *Router) SelectModel(taskType TaskType, complexity Complexity) Decision {
	if byTier, ok := r.table[taskType]; ok {
		if d, ok := byTier[complexity]; ok {
			return d
		}
	}
	return Decision{Adapter: AdapterClaude, Model: model.ModelSonnet, RequiresReview: false}
}
