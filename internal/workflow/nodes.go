package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/reqgate/internal/gate"
	"github.com/metalagman/reqgate/internal/guardrail"
	"github.com/metalagman/reqgate/internal/requirement"
)

// guardrailNode screens the raw input before any LLM spend. It is the only
// node allowed to abort the run: a hard failure returns *RejectionError
// with the reason classified by fixed precedence.
func (w *Workflow) guardrailNode(_ context.Context, s State) (State, error) {
	s.CurrentStage = StageGuardrail

	result := w.deps.Guardrail.Validate(s.Packet.RawText, w.cfg.GuardrailMode)
	if result.Passed {
		s.CurrentStage = "guardrail_passed"
		return s, nil
	}

	details := strings.Join(result.Errors, "; ")
	s.logError("Guardrail: " + details)
	log.Error().Str("details", details).Msg("guardrail rejected input")

	return s, &RejectionError{
		Reason:  classifyRejection(result),
		Details: details,
	}
}

// classifyRejection maps a failed guardrail result onto the closed reason
// set. Length failures take precedence over PII, PII over injection.
func classifyRejection(result guardrail.Result) RejectionReason {
	for _, e := range result.Errors {
		if strings.Contains(e, "too short") {
			return ReasonTooShort
		}
	}
	for _, e := range result.Errors {
		if strings.Contains(e, "too long") {
			return ReasonTooLong
		}
	}
	if len(result.PIIDetected) > 0 {
		return ReasonPIIDetected
	}
	if len(result.InjectionDetected) > 0 {
		return ReasonPromptInjection
	}
	return ReasonValidationFailed
}

// structuringNode extracts a draft via the structuring agent. Failure is
// absorbed: the draft stays nil, which the routing function turns into the
// fallback branch.
func (w *Workflow) structuringNode(ctx context.Context, s State) (State, error) {
	s.CurrentStage = StageStructuring

	draft, err := w.structurer.Structure(ctx, s.Packet.RawText)
	if err != nil {
		log.Error().Err(err).Msg("structuring failed")
		s.logError(fmt.Sprintf("Structuring: %v", err))
		s.Draft = nil
		s.CurrentStage = "structuring_failed"
		return s, nil
	}

	s.Draft = draft
	s.CurrentStage = "structuring_complete"
	return s, nil
}

// fallbackNode activates degraded mode. The flag transition is one-way
// within a run.
func (w *Workflow) fallbackNode(_ context.Context, s State) (State, error) {
	s.CurrentStage = StageFallback
	s.FallbackActivated = true
	s.logError("Fallback activated: scoring will use raw text")
	log.Warn().Msg("fallback mode activated")
	return s, nil
}

// scoringNode runs the scoring agent on the rendered draft (or raw text in
// fallback mode) and applies the degraded-mode penalty exactly once.
// Failures are absorbed; the gate treats a nil report as an automatic
// reject.
func (w *Workflow) scoringNode(ctx context.Context, s State) (State, error) {
	s.CurrentStage = StageScoring

	packet := s.Packet
	if s.Draft != nil {
		packet = packet.WithRawText(RenderDraft(*s.Draft))
	}

	report, err := w.scorer.Score(ctx, packet)
	if err != nil {
		log.Error().Err(err).Msg("scoring failed")
		s.logError(fmt.Sprintf("Scoring failed: %v", err))
		return s, nil
	}

	if s.FallbackActivated {
		log.Warn().Int("penalty", requirement.FallbackPenalty).Msg("applying fallback score penalty")
		report.ApplyFallbackPenalty()
	}

	s.Report = report
	log.Info().Int("total_score", report.TotalScore).Msg("scoring complete")
	return s, nil
}

// gateNode computes the terminal pass/reject decision. A missing score
// report is never passable; gate errors are absorbed into a reject so the
// decision is always set.
func (w *Workflow) gateNode(_ context.Context, s State) (State, error) {
	s.CurrentStage = StageGate

	decision := false
	switch {
	case s.Report == nil:
		log.Warn().Msg("no score report available, rejecting")
		s.logError("Gate decision: REJECT (no score report)")
	default:
		verdict, err := w.hardGate.Decide(*s.Report, s.Packet.TicketType)
		if err != nil {
			log.Error().Err(err).Msg("gate decision failed")
			s.logError(fmt.Sprintf("Gate decision failed: %v", err))
		} else {
			decision = verdict == gate.Pass
		}
	}

	s.GateDecision = &decision
	return s, nil
}
