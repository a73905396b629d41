package gate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/reqgate/internal/requirement"
	"github.com/metalagman/reqgate/internal/rubric"
)

func newGate(t *testing.T) *HardGate {
	t.Helper()
	return New(rubric.NewLoader(""))
}

func TestDecide_ScoreAboveThresholdPasses(t *testing.T) {
	t.Parallel()

	g := newGate(t)
	report := requirement.ScoreReport{TotalScore: 85}

	decision, err := g.Decide(report, requirement.TicketFeature)
	require.NoError(t, err)
	assert.Equal(t, Pass, decision)
}

func TestDecide_ScoreAtThresholdPasses(t *testing.T) {
	t.Parallel()

	g := newGate(t)
	report := requirement.ScoreReport{TotalScore: 60}

	decision, err := g.Decide(report, requirement.TicketFeature)
	require.NoError(t, err)
	assert.Equal(t, Pass, decision)
}

func TestDecide_ScoreBelowThresholdRejects(t *testing.T) {
	t.Parallel()

	g := newGate(t)
	report := requirement.ScoreReport{TotalScore: 59}

	decision, err := g.Decide(report, requirement.TicketFeature)
	require.NoError(t, err)
	assert.Equal(t, Reject, decision)
}

func TestDecide_BlockerOverridesHighScore(t *testing.T) {
	t.Parallel()

	g := newGate(t)
	report := requirement.ScoreReport{
		TotalScore: 95,
		BlockingIssues: []requirement.ReviewIssue{{
			Severity:    requirement.SeverityBlocker,
			Category:    requirement.CategorySecurity,
			Description: "credentials stored in plain text",
		}},
	}

	decision, err := g.Decide(report, requirement.TicketFeature)
	require.NoError(t, err)
	assert.Equal(t, Reject, decision)
}

func TestDecide_BugThresholdIsLower(t *testing.T) {
	t.Parallel()

	g := newGate(t)
	report := requirement.ScoreReport{TotalScore: 55}

	decision, err := g.Decide(report, requirement.TicketBug)
	require.NoError(t, err)
	assert.Equal(t, Pass, decision)

	decision, err = g.Decide(report, requirement.TicketFeature)
	require.NoError(t, err)
	assert.Equal(t, Reject, decision)
}

func TestDecide_MissingScenarioRejects(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rubric.yaml")
	require.NoError(t, os.WriteFile(path, []byte("BUG:\n  threshold: 50\n"), 0o644))

	g := New(rubric.NewLoader(path))
	decision, err := g.Decide(requirement.ScoreReport{TotalScore: 90}, requirement.TicketFeature)
	require.Error(t, err)
	assert.Equal(t, Reject, decision)
}
