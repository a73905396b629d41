// Package parse extracts and validates JSON payloads from LLM responses.
package parse

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ExtractJSON pulls a JSON object out of a response that may wrap it in
// markdown code fences or surrounding prose. Returns the input unchanged
// when no object can be located.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```json"); idx >= 0 {
		start := idx + len("```json")
		if end := strings.Index(text[start:], "```"); end > 0 {
			return strings.TrimSpace(text[start : start+end])
		}
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		start := idx + 3
		if end := strings.Index(text[start:], "```"); end > 0 {
			return strings.TrimSpace(text[start : start+end])
		}
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return text
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text
}

// ValidateSchema checks a JSON document against a JSON schema and returns a
// single aggregated error on mismatch.
func ValidateSchema(schemaJSON, document string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewStringLoader(document),
	)
	if err != nil {
		return fmt.Errorf("validate response schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	sort.Strings(errs)
	return fmt.Errorf("response schema validation failed: %s", strings.Join(errs, "; "))
}
