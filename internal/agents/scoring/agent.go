// Package scoring implements the agent that evaluates a requirement against
// the rubric through a single LLM call and returns a score report.
package scoring

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/metalagman/reqgate/internal/agents/parse"
	"github.com/metalagman/reqgate/internal/llm"
	"github.com/metalagman/reqgate/internal/requirement"
	"github.com/metalagman/reqgate/internal/rubric"
)

//go:embed report_schema.json
var reportSchemaJSON string

const promptTemplate = `# Role
You are a strict Tech Lead and Gatekeeper for the engineering team.
Your job is to review the following Ticket/PRD and decide if it is **Ready for Development**.

# Context & Configuration
- Scenario: %s
- Pass Threshold: %d points
- Weights: %s

# Input Ticket
Type: %s
Project: %s
Priority: %s
Content:
%s

# Blocking Rules
You must mark an issue as **BLOCKER** if:
1. Missing acceptance criteria
2. Contains ambiguous words like "better", "fast", "nice" without metrics
3. Logic flow is incomplete

# Output Format (STRICT JSON)
You MUST return a JSON object with these fields:
total_score (0-100), ready_for_review (bool), dimension_scores (map of
dimension name to integer score), blocking_issues and non_blocking_issues
(arrays of {severity, category, description, suggestion}), summary_markdown.

IMPORTANT:
- severity MUST be "BLOCKER" or "WARNING"
- category MUST be one of: "MISSING_AC", "AMBIGUITY", "LOGIC_GAP", "SECURITY", "MISSING_FIELD"
- If no issues, use empty arrays: []
- ready_for_review is true if total_score >= %d AND blocking_issues is empty

Be objective and direct. Provide actionable advice.
`

// Agent scores a requirement packet against a rubric scenario.
type Agent struct {
	gateway llm.ModelGateway
	rubric  *rubric.Loader
	models  []string
	policy  llm.Policy
}

// New constructs a scoring agent.
func New(gateway llm.ModelGateway, loader *rubric.Loader, models []string, policy llm.Policy) *Agent {
	return &Agent{gateway: gateway, rubric: loader, models: models, policy: policy}
}

// Score evaluates the packet with exactly one logical LLM call and parses
// the response into a validated report.
func (a *Agent) Score(ctx context.Context, packet requirement.Packet) (*requirement.ScoreReport, error) {
	cfg, err := a.rubric.Scenario(packet.TicketType)
	if err != nil {
		return nil, fmt.Errorf("load rubric scenario: %w", err)
	}

	prompt := BuildPrompt(packet, cfg)

	response, err := llm.TryModels(ctx, a.models, a.policy, func(ctx context.Context, model string) (string, error) {
		return a.gateway.InvokeModel(ctx, model, prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("scoring llm call failed: %w", err)
	}

	return ParseResponse(response)
}

// BuildPrompt renders the scoring prompt for a packet and rubric scenario.
func BuildPrompt(packet requirement.Packet, cfg rubric.ScenarioConfig) string {
	scenario := "FEATURE"
	if packet.TicketType == requirement.TicketBug {
		scenario = "BUG"
	}
	weights, _ := json.Marshal(cfg.Weights)

	return fmt.Sprintf(promptTemplate,
		scenario,
		cfg.Threshold,
		string(weights),
		packet.TicketType,
		packet.ProjectKey,
		packet.Priority,
		packet.RawText,
		cfg.Threshold,
	)
}

// ParseResponse extracts, schema-validates, and domain-validates a score
// report from a raw LLM response.
func ParseResponse(response string) (*requirement.ScoreReport, error) {
	payload := parse.ExtractJSON(response)

	if err := parse.ValidateSchema(reportSchemaJSON, payload); err != nil {
		return nil, fmt.Errorf("score report validation: %w", err)
	}

	var report requirement.ScoreReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("parse score report json: %w", err)
	}
	if err := report.Validate(); err != nil {
		return nil, fmt.Errorf("score report validation: %w", err)
	}
	return &report, nil
}
