package duet

import "testing"

func TestParseVerdict_Approved(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"bare marker", "APPROVED", true},
		{"marker with prose", "Looks good. APPROVED", true},
		{"marker on own line", "Checked everything.\nAPPROVED\n", true},
		{"no marker", "Needs work on error handling.", false},
		{"lowercase does not count", "approved", false},
		{"marker inside a word", "UNAPPROVEDX", false},
		{"marker only inside fence", "Here is the fix:\n```go\n// APPROVED\nfunc f() {}\n```\nStill broken though.", false},
		{"marker outside fence with code", "```go\nfunc f() {}\n```\nAPPROVED", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ParseVerdict(tt.text)
			if v.Approved != tt.want {
				t.Errorf("Approved = %t, want %t for %q", v.Approved, tt.want, tt.text)
			}
		})
	}
}

func TestParseVerdict_Artifact(t *testing.T) {
	text := "Fix the nil check.\n```go\nfunc f() error {\n\treturn nil\n}\n```\nAlso rename f."

	v := ParseVerdict(text)
	want := "func f() error {\n\treturn nil\n}"
	if v.Artifact != want {
		t.Errorf("Artifact = %q, want %q", v.Artifact, want)
	}
	if v.Approved {
		t.Error("rejection with artifact should not be approved")
	}
}

func TestParseVerdict_FirstFenceWins(t *testing.T) {
	text := "```\nfirst\n```\nand\n```\nsecond\n```"

	v := ParseVerdict(text)
	if v.Artifact != "first" {
		t.Errorf("Artifact = %q, want %q", v.Artifact, "first")
	}
}

func TestParseVerdict_Feedback(t *testing.T) {
	text := "The loop is off by one.\n```go\nx\n```"

	v := ParseVerdict(text)
	if v.Feedback != text {
		t.Errorf("Feedback should carry the full review text, got %q", v.Feedback)
	}
}

func TestParseVerdict_NoFence(t *testing.T) {
	v := ParseVerdict("Missing tests for the error path.")
	if v.Artifact != "" {
		t.Errorf("Artifact = %q, want empty", v.Artifact)
	}
}
