package requirement

import "fmt"

// Severity of a review issue.
type Severity string

// Issue severities.
const (
	SeverityBlocker Severity = "BLOCKER"
	SeverityWarning Severity = "WARNING"
)

// IssueCategory classifies a review issue.
type IssueCategory string

// Issue categories.
const (
	CategoryMissingAC    IssueCategory = "MISSING_AC"
	CategoryAmbiguity    IssueCategory = "AMBIGUITY"
	CategoryLogicGap     IssueCategory = "LOGIC_GAP"
	CategorySecurity     IssueCategory = "SECURITY"
	CategoryMissingField IssueCategory = "MISSING_FIELD"
)

// FallbackPenalty is subtracted from the total score when scoring ran in
// degraded mode.
const FallbackPenalty = 5

// ReviewIssue is a single finding from the scoring stage.
type ReviewIssue struct {
	Severity    Severity      `json:"severity"`
	Category    IssueCategory `json:"category"`
	Description string        `json:"description"`
	Suggestion  string        `json:"suggestion"`
}

// ScoreReport is the scoring stage output and the gate input.
type ScoreReport struct {
	TotalScore        int            `json:"total_score"`
	ReadyForReview    bool           `json:"ready_for_review"`
	DimensionScores   map[string]int `json:"dimension_scores"`
	BlockingIssues    []ReviewIssue  `json:"blocking_issues"`
	NonBlockingIssues []ReviewIssue  `json:"non_blocking_issues"`
	SummaryMarkdown   string         `json:"summary_markdown"`
}

// Validate checks the report bounds and enumerations.
func (r ScoreReport) Validate() error {
	if r.TotalScore < 0 || r.TotalScore > 100 {
		return fmt.Errorf("total_score out of range: %d", r.TotalScore)
	}
	for _, issue := range append(append([]ReviewIssue{}, r.BlockingIssues...), r.NonBlockingIssues...) {
		switch issue.Severity {
		case SeverityBlocker, SeverityWarning:
		default:
			return fmt.Errorf("unknown issue severity: %q", issue.Severity)
		}
		switch issue.Category {
		case CategoryMissingAC, CategoryAmbiguity, CategoryLogicGap, CategorySecurity, CategoryMissingField:
		default:
			return fmt.Errorf("unknown issue category: %q", issue.Category)
		}
	}
	return nil
}

// ApplyFallbackPenalty decrements the total score by the fixed fallback
// penalty, floored at zero. This is the only permitted post-construction
// mutation and the scoring node invokes it at most once per run.
func (r *ScoreReport) ApplyFallbackPenalty() {
	r.TotalScore -= FallbackPenalty
	if r.TotalScore < 0 {
		r.TotalScore = 0
	}
}
