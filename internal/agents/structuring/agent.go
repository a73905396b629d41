// Package structuring implements the agent that extracts a structured
// requirement draft from raw text through a single LLM call. Failures are
// reported to the caller, which degrades to fallback mode instead of
// propagating.
package structuring

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/reqgate/internal/agents/parse"
	"github.com/metalagman/reqgate/internal/llm"
	"github.com/metalagman/reqgate/internal/requirement"
)

//go:embed draft_schema.json
var draftSchemaJSON string

const promptTemplate = `# Role
You are a requirements structuring assistant. Extract structured PRD from unstructured text.

# Critical Rules
1. ONLY extract information explicitly present in the input
2. DO NOT invent or hallucinate details
3. If information is missing, add to "missing_info"
4. If clarification needed, add to "clarification_questions"

# Input Text
%s

# Output Schema
%s

# Output ONLY valid JSON matching the schema above.
`

// schemaHint is the human-readable field guide included in the prompt.
var schemaHint = map[string]any{
	"title":                   "string (10-200 chars, starts with action verb)",
	"user_story":              "string (As a [role], I want [feature], so that [benefit])",
	"acceptance_criteria":     []string{"string (list of testable criteria, min 1)"},
	"edge_cases":              []string{"string (optional, error scenarios mentioned in input)"},
	"resources":               []string{"string (optional, URLs, tickets, docs mentioned)"},
	"missing_info":            []string{"string (information gaps identified)"},
	"clarification_questions": []string{"string (questions to ask PM)"},
}

// Agent structures raw requirement text into a draft.
type Agent struct {
	gateway llm.ModelGateway
	models  []string
	policy  llm.Policy
}

// New constructs a structuring agent. models is the preference-ordered
// model list for the fallback loop.
func New(gateway llm.ModelGateway, models []string, policy llm.Policy) *Agent {
	return &Agent{gateway: gateway, models: models, policy: policy}
}

// BuildPrompt renders the structuring prompt for the given input text.
func BuildPrompt(inputText string) string {
	hint, _ := json.MarshalIndent(schemaHint, "", "  ")
	return fmt.Sprintf(promptTemplate, inputText, string(hint))
}

// Structure extracts a draft from raw text via one logical LLM call
// (retried and model-failed-over inside the llm layer).
func (a *Agent) Structure(ctx context.Context, rawText string) (*requirement.Draft, error) {
	prompt := BuildPrompt(rawText)

	response, err := llm.TryModels(ctx, a.models, a.policy, func(ctx context.Context, model string) (string, error) {
		return a.gateway.InvokeModel(ctx, model, prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("structuring llm call failed: %w", err)
	}

	draft, err := ParseResponse(response)
	if err != nil {
		return nil, err
	}

	for _, warning := range SuspectedHallucinations(rawText, *draft) {
		log.Warn().Str("finding", warning).Msg("potential hallucination")
	}
	return draft, nil
}

// ParseResponse extracts, schema-validates, and domain-validates a draft
// from a raw LLM response.
func ParseResponse(response string) (*requirement.Draft, error) {
	payload := parse.ExtractJSON(response)

	if err := parse.ValidateSchema(draftSchemaJSON, payload); err != nil {
		return nil, fmt.Errorf("draft validation: %w", err)
	}

	var draft requirement.Draft
	if err := json.Unmarshal([]byte(payload), &draft); err != nil {
		return nil, fmt.Errorf("parse draft json: %w", err)
	}
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("draft validation: %w", err)
	}
	return &draft, nil
}

// SuspectedHallucinations flags acceptance criteria whose significant words
// are mostly absent from the input text. Heuristic, warn-only.
func SuspectedHallucinations(inputText string, draft requirement.Draft) []string {
	var suspicious []string
	inputLower := strings.ToLower(inputText)

	for _, ac := range draft.AcceptanceCriteria {
		var words []string
		for _, w := range strings.Fields(ac) {
			if len(w) > 4 {
				words = append(words, strings.ToLower(w))
			}
		}
		if len(words) == 0 {
			continue
		}
		missing := 0
		for _, w := range words {
			if !strings.Contains(inputLower, w) {
				missing++
			}
		}
		if float64(missing) > float64(len(words))*0.7 {
			snippet := ac
			if len(snippet) > 50 {
				snippet = snippet[:50]
			}
			suspicious = append(suspicious, fmt.Sprintf("AC may contain invented content: %q", snippet))
		}
	}
	return suspicious
}
