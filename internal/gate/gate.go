// Package gate implements the deterministic pass/reject decision over a
// score report.
package gate

import (
	"github.com/rs/zerolog/log"

	"github.com/metalagman/reqgate/internal/requirement"
	"github.com/metalagman/reqgate/internal/rubric"
)

// Decision is the gate outcome.
type Decision string

// Gate outcomes.
const (
	Pass   Decision = "PASS"
	Reject Decision = "REJECT"
)

// HardGate makes deterministic decisions from a score report: blocking
// issues always reject, otherwise the category threshold applies.
type HardGate struct {
	rubric *rubric.Loader
}

// New constructs a gate over the rubric loader.
func New(loader *rubric.Loader) *HardGate {
	return &HardGate{rubric: loader}
}

// Decide applies the fixed-order rules. A score exactly equal to the
// threshold passes.
func (g *HardGate) Decide(report requirement.ScoreReport, ticketType requirement.TicketType) (Decision, error) {
	cfg, err := g.rubric.Scenario(ticketType)
	if err != nil {
		return Reject, err
	}

	log.Info().
		Str("ticket_type", string(ticketType)).
		Int("total_score", report.TotalScore).
		Int("threshold", cfg.Threshold).
		Int("blocking_issues", len(report.BlockingIssues)).
		Msg("gate decision starting")

	if len(report.BlockingIssues) > 0 {
		log.Warn().
			Str("decision", string(Reject)).
			Str("reason", "blocking_issues").
			Int("blocking_count", len(report.BlockingIssues)).
			Msg("gate decision")
		return Reject, nil
	}

	if report.TotalScore < cfg.Threshold {
		log.Warn().
			Str("decision", string(Reject)).
			Str("reason", "low_score").
			Int("score", report.TotalScore).
			Int("threshold", cfg.Threshold).
			Msg("gate decision")
		return Reject, nil
	}

	log.Info().
		Str("decision", string(Pass)).
		Int("score", report.TotalScore).
		Int("threshold", cfg.Threshold).
		Msg("gate decision")
	return Pass, nil
}
