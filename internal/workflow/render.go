package workflow

import (
	"fmt"
	"strings"

	"github.com/metalagman/reqgate/internal/requirement"
)

// RenderDraft flattens a structured draft into the markdown document the
// scoring prompt consumes. Optional sections are omitted when empty.
func RenderDraft(d requirement.Draft) string {
	lines := []string{
		"# " + d.Title,
		"",
		"## User Story",
		d.UserStory,
		"",
		"## Acceptance Criteria",
	}
	for i, ac := range d.AcceptanceCriteria {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, ac))
	}
	if len(d.EdgeCases) > 0 {
		lines = append(lines, "", "## Edge Cases")
		for _, ec := range d.EdgeCases {
			lines = append(lines, "- "+ec)
		}
	}
	if len(d.Resources) > 0 {
		lines = append(lines, "", "## Resources")
		for _, r := range d.Resources {
			lines = append(lines, "- "+r)
		}
	}
	if len(d.MissingInfo) > 0 {
		lines = append(lines, "", "## Identified Gaps")
		for _, g := range d.MissingInfo {
			lines = append(lines, "- "+g)
		}
	}
	if len(d.ClarificationQuestions) > 0 {
		lines = append(lines, "", "## Clarification Questions")
		for _, q := range d.ClarificationQuestions {
			lines = append(lines, "- "+q)
		}
	}
	return strings.Join(lines, "\n")
}
