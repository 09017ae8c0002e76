package duet

import (
	"testing"

	"github.com/randalmurphal/llmkit/model"
)

func TestDefaultRouteTable_Total(t *testing.T) {
	r := NewRouter(nil)
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestRouter_Validate_MissingEntries(t *testing.T) {
	table := DefaultRouteTable()
	delete(table[TaskQuestion], ComplexityCritical)

	r := NewRouter(table)
	if err := r.Validate(); err == nil {
		t.Error("Validate should fail for a table missing question/critical")
	}

	table2 := DefaultRouteTable()
	delete(table2, TaskFixBug)
	r2 := NewRouter(table2)
	if err := r2.Validate(); err == nil {
		t.Error("Validate should fail for a table missing fix_bug")
	}
}

func TestRouter_SelectModel(t *testing.T) {
	r := NewRouter(nil)

	tests := []struct {
		taskType   TaskType
		complexity Complexity
		want       Decision
	}{
		{TaskReadAnalyze, ComplexityTrivial, Decision{AdapterGemini, ModelGeminiFlash, false}},
		{TaskReadAnalyze, ComplexityCritical, Decision{AdapterGemini, ModelGeminiPro, false}},
		{TaskDraftCode, ComplexityStandard, Decision{AdapterGemini, ModelGeminiFlash, true}},
		{TaskDraftCode, ComplexityComplex, Decision{AdapterGemini, ModelGeminiPro, true}},
		{TaskDraftCode, ComplexityCritical, Decision{AdapterClaude, model.ModelOpus, false}},
		{TaskFixBug, ComplexityTrivial, Decision{AdapterGemini, ModelGeminiFlash, true}},
		{TaskArchitecture, ComplexityTrivial, Decision{AdapterClaude, model.ModelHaiku, false}},
		{TaskArchitecture, ComplexityComplex, Decision{AdapterClaude, model.ModelSonnet, false}},
		{TaskArchitecture, ComplexityCritical, Decision{AdapterClaude, model.ModelOpus, false}},
		{TaskQuestion, ComplexityComplex, Decision{AdapterGemini, ModelGeminiPro, false}},
		{TaskQuestion, ComplexityCritical, Decision{AdapterClaude, model.ModelSonnet, false}},
	}

	for _, tt := range tests {
		got := r.SelectModel(tt.taskType, tt.complexity)
		if got != tt.want {
			t.Errorf("SelectModel(%s, %s) = %+v, want %+v", tt.taskType, tt.complexity, got, tt.want)
		}
	}
}

func TestRouter_SelectModel_UnknownFallsBack(t *testing.T) {
	r := NewRouter(nil)

	got := r.SelectModel(TaskType("unknown"), ComplexityStandard)
	want := Decision{AdapterClaude, model.ModelSonnet, false}
	if got != want {
		t.Errorf("SelectModel(unknown) = %+v, want %+v", got, want)
	}
}

func TestRouter_SelectModel_Pure(t *testing.T) {
	r := NewRouter(nil)

	first := r.SelectModel(TaskDraftCode, ComplexityComplex)
	for i := 0; i < 10; i++ {
		if got := r.SelectModel(TaskDraftCode, ComplexityComplex); got != first {
			t.Fatalf("SelectModel not deterministic: %+v then %+v", first, got)
		}
	}
}

func TestReviewerFor(t *testing.T) {
	if got := ReviewerFor(AdapterGemini); got != AdapterClaude {
		t.Errorf("ReviewerFor(gemini) = %s, want claude", got)
	}
	if got := ReviewerFor(AdapterClaude); got != AdapterGemini {
		t.Errorf("ReviewerFor(claude) = %s, want gemini", got)
	}
}

func TestDefaultModelFor(t *testing.T) {
	tests := []struct {
		adapter    AdapterID
		complexity Complexity
		want       model.ModelName
	}{
		{AdapterGemini, ComplexityTrivial, ModelGeminiFlash},
		{AdapterGemini, ComplexityStandard, ModelGeminiFlash},
		{AdapterGemini, ComplexityComplex, ModelGeminiPro},
		{AdapterGemini, ComplexityCritical, ModelGeminiPro},
		{AdapterClaude, ComplexityTrivial, model.ModelHaiku},
		{AdapterClaude, ComplexityStandard, model.ModelSonnet},
		{AdapterClaude, ComplexityComplex, model.ModelSonnet},
		{AdapterClaude, ComplexityCritical, model.ModelOpus},
	}

	for _, tt := range tests {
		if got := DefaultModelFor(tt.adapter, tt.complexity); got != tt.want {
			t.Errorf("DefaultModelFor(%s, %s) = %s, want %s", tt.adapter, tt.complexity, got, tt.want)
		}
	}
}
