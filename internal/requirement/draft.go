package requirement

import (
	"fmt"
	"regexp"
	"strings"
)

// Draft validation bounds.
const (
	MinTitleLength     = 10
	MaxTitleLength     = 200
	MinUserStoryLength = 20
)

// ActionVerbs are the accepted title-leading verb prefixes.
var ActionVerbs = []string{
	"implement", "add", "create", "build", "develop", "design",
	"fix", "update", "remove", "delete", "refactor", "optimize",
	"improve", "enable", "disable", "configure", "setup", "integrate",
	"migrate", "support", "allow", "prevent", "validate", "verify",
	"test", "deploy", "release", "launch", "introduce", "extend",
	"enhance",
}

// userStoryRe matches the three-clause narrative: role, desire, benefit.
var userStoryRe = regexp.MustCompile(`(?is)^as an? .+, i want .+, so that .+`)

// Draft is the machine-produced normalized requirement document extracted
// from raw text by the structuring agent. Absence of a draft is a
// first-class pipeline state, not an error.
type Draft struct {
	Title                  string   `json:"title"`
	UserStory              string   `json:"user_story"`
	AcceptanceCriteria     []string `json:"acceptance_criteria"`
	EdgeCases              []string `json:"edge_cases,omitempty"`
	Resources              []string `json:"resources,omitempty"`
	MissingInfo            []string `json:"missing_info,omitempty"`
	ClarificationQuestions []string `json:"clarification_questions,omitempty"`
}

// TitleStartsWithActionVerb reports whether the first whitespace-delimited
// token of the title, lower-cased, has an action-verb prefix. The offending
// token is returned for diagnostics.
func (d Draft) TitleStartsWithActionVerb() (bool, string) {
	fields := strings.Fields(strings.TrimSpace(d.Title))
	if len(fields) == 0 {
		return false, ""
	}
	first := strings.ToLower(fields[0])
	for _, verb := range ActionVerbs {
		if strings.HasPrefix(first, verb) {
			return true, first
		}
	}
	return false, first
}

// Validate enforces the draft construction invariants. The structuring
// agent rejects LLM output that fails here; the structural validator node
// re-checks shape independently later.
func (d Draft) Validate() error {
	titleLen := len(strings.TrimSpace(d.Title))
	if titleLen < MinTitleLength {
		return fmt.Errorf("title too short: %d characters (minimum: %d)", titleLen, MinTitleLength)
	}
	if titleLen > MaxTitleLength {
		return fmt.Errorf("title too long: %d characters (maximum: %d)", titleLen, MaxTitleLength)
	}
	if ok, first := d.TitleStartsWithActionVerb(); !ok {
		return fmt.Errorf("title must start with an action verb, got %q", first)
	}

	story := strings.TrimSpace(d.UserStory)
	if len(story) < MinUserStoryLength {
		return fmt.Errorf("user_story too short: %d characters (minimum: %d)", len(story), MinUserStoryLength)
	}
	if !userStoryRe.MatchString(story) {
		return fmt.Errorf("user_story must follow 'As a [role], I want [feature], so that [benefit]'")
	}

	if len(d.AcceptanceCriteria) == 0 {
		return fmt.Errorf("acceptance_criteria cannot be empty")
	}
	lists := map[string][]string{
		"acceptance_criteria":     d.AcceptanceCriteria,
		"edge_cases":              d.EdgeCases,
		"resources":               d.Resources,
		"missing_info":            d.MissingInfo,
		"clarification_questions": d.ClarificationQuestions,
	}
	for name, items := range lists {
		for i, item := range items {
			if strings.TrimSpace(item) == "" {
				return fmt.Errorf("%s[%d] is blank", name, i)
			}
		}
	}
	return nil
}
