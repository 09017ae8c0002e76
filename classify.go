package duet

import "strings"

// =============================================================================
// Complexity Classification
// =============================================================================

// Complexity classifies how much reasoning a task is expected to need.
type Complexity string

const (
	ComplexityTrivial  Complexity = "trivial"
	ComplexityStandard Complexity = "standard"
	ComplexityComplex  Complexity = "complex"
	ComplexityCritical Complexity = "critical"
)

// Complexities lists all tiers in ascending order.
var Complexities = []Complexity{
	ComplexityTrivial,
	ComplexityStandard,
	ComplexityComplex,
	ComplexityCritical,
}

// Thresholds are the prompt-length boundaries between complexity tiers.
// A length below Trivial classifies as trivial, below Standard as standard,
// below Complex as complex, and anything at or above Complex as critical.
// Comparison is strict on the lower edge: length == boundary belongs to the
// next tier up.
type Thresholds struct {
	Trivial  int
	Standard int
	Complex  int
}

// DefaultThresholds returns the standard length boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Trivial: 80, Standard: 400, Complex: 1500}
}

// criticalKeywords force ComplexityCritical regardless of length.
// These are terms that imply production or safety stakes.
var criticalKeywords = []string{
	"production",
	"outage",
	"incident",
	"security",
	"data loss",
	"urgent",
	"critical",
}

// trivialKeywords force ComplexityTrivial regardless of length, unless a
// critical keyword is also present.
var trivialKeywords = []string{
	"quick",
	"simple",
	"typo",
	"rename",
	"one-liner",
	"trivial",
}

// ClassifyComplexity maps a prompt and its length to a complexity tier.
// Critical keywords dominate, then trivial keywords, then the length
// thresholds. Matching is case-insensitive substring matching. The function
// is pure and deterministic.
func ClassifyComplexity(text string, length int, t Thresholds) Complexity {
	lower := strings.ToLower(text)

	for _, kw := range criticalKeywords {
		if strings.Contains(lower, kw) {
			return ComplexityCritical
		}
	}
	for _, kw := range trivialKeywords {
		if strings.Contains(lower, kw) {
			return ComplexityTrivial
		}
	}

	switch {
	case length < t.Trivial:
		return ComplexityTrivial
	case length < t.Standard:
		return ComplexityStandard
	case length < t.Complex:
		return ComplexityComplex
	default:
		return ComplexityCritical
	}
}

// =============================================================================
// Task Type Classification
// =============================================================================

// TaskType is the functional category of a task.
type TaskType string

const (
	TaskReadAnalyze  TaskType = "read_analyze"
	TaskDraftCode    TaskType = "draft_code"
	TaskFixBug       TaskType = "fix_bug"
	TaskArchitecture TaskType = "architecture"
	TaskQuestion     TaskType = "question"
)

// TaskTypes lists all task types.
var TaskTypes = []TaskType{
	TaskReadAnalyze,
	TaskDraftCode,
	TaskFixBug,
	TaskArchitecture,
	TaskQuestion,
}

// taskTypeBuckets are checked in order; the first bucket with a matching
// keyword wins. The buckets are disjoint by construction.
var taskTypeBuckets = []struct {
	taskType TaskType
	keywords []string
}{
	{TaskReadAnalyze, []string{"read", "analyze", "summarize", "explain"}},
	{TaskDraftCode, []string{"write", "create", "implement", "function", "class"}},
	{TaskFixBug, []string{"fix", "debug", "bug", "error"}},
	{TaskArchitecture, []string{"design", "architecture", "refactor"}},
}

// ClassifyTaskType maps a prompt to a task type by keyword-bucket matching.
// Absent any keyword match it returns TaskQuestion. Pure and deterministic.
func ClassifyTaskType(text string) TaskType {
	lower := strings.ToLower(text)

	for _, bucket := range taskTypeBuckets {
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				return bucket.taskType
			}
		}
	}
	return TaskQuestion
}
