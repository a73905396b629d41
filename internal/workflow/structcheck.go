package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/reqgate/internal/requirement"
)

// Structural validation thresholds.
const (
	MinACCount = 2
)

// structureCheckNode deterministically validates the draft's shape, no
// network. Skipped (tri-state nil) when no draft exists; the skip still
// records execution time via the executor.
func (w *Workflow) structureCheckNode(_ context.Context, s State) (State, error) {
	s.CurrentStage = StageStructureCheck

	if s.Draft == nil {
		log.Info().Msg("no structured draft, skipping structure check")
		s.StructureCheckPassed = nil
		s.StructureErrors = []string{}
		return s, nil
	}

	passed, errs := CheckDraft(*s.Draft)
	s.StructureCheckPassed = &passed
	s.StructureErrors = errs

	if passed {
		log.Info().Msg("structure check passed")
	} else {
		log.Warn().Int("errors", len(errs)).Msg("structure check failed")
	}
	return s, nil
}

// CheckDraft evaluates the structural checks independently, without
// short-circuiting; each failing check appends its own message. Pass means
// zero collected errors.
func CheckDraft(draft requirement.Draft) (bool, []string) {
	errs := []string{}

	if count := len(draft.AcceptanceCriteria); count < MinACCount {
		errs = append(errs, fmt.Sprintf(
			"Insufficient acceptance criteria: found %d, minimum required is %d", count, MinACCount))
	}

	if length := len(strings.TrimSpace(draft.UserStory)); length < requirement.MinUserStoryLength {
		errs = append(errs, fmt.Sprintf(
			"User story too short: %d characters, minimum required is %d", length, requirement.MinUserStoryLength))
	}

	titleLength := len(strings.TrimSpace(draft.Title))
	if titleLength < requirement.MinTitleLength {
		errs = append(errs, fmt.Sprintf(
			"Title too short: %d characters, minimum required is %d", titleLength, requirement.MinTitleLength))
	} else if titleLength > requirement.MaxTitleLength {
		errs = append(errs, fmt.Sprintf(
			"Title too long: %d characters, maximum allowed is %d", titleLength, requirement.MaxTitleLength))
	}

	if ok, first := draft.TitleStartsWithActionVerb(); !ok {
		errs = append(errs, fmt.Sprintf(
			"Title should start with an action verb (e.g., Implement, Add, Create). Got: %q", first))
	}

	return len(errs) == 0, errs
}
