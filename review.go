package duet

import (
	"regexp"
	"strings"
)

// ApprovalMarker is the token a reviewer emits to approve a draft.
const ApprovalMarker = "APPROVED"

// Verdict is the structured outcome of a review response.
type Verdict struct {
	Approved bool   // Reviewer approved the draft
	Feedback string // Full review text, carried into the correction prompt
	Artifact string // Replacement from the first fenced code block, if any
}

var (
	fenceRe  = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*\n(.*?)```")
	markerRe = regexp.MustCompile(`\b` + ApprovalMarker + `\b`)
)

// ParseVerdict parses a reviewer response into a Verdict.
//
// The approval marker only counts outside fenced code blocks, so a draft
// that happens to contain the marker cannot approve itself when echoed back
// inside a fence. The replacement artifact is the content of the first
// fenced block, verbatim.
func ParseVerdict(text string) Verdict {
	v := Verdict{Feedback: text}

	if m := fenceRe.FindStringSubmatch(text); m != nil {
		v.Artifact = strings.TrimSuffix(m[1], "\n")
	}

	prose := fenceRe.ReplaceAllString(text, "")
	v.Approved = markerRe.MatchString(prose)

	return v
}
