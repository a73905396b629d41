// Package requirement defines the domain types flowing through the
// quality-gate pipeline: the input packet, the structured draft, and the
// score report.
package requirement

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// SourceType identifies where a requirement came from.
type SourceType string

// Known source types.
const (
	SourceJiraTicket        SourceType = "Jira_Ticket"
	SourcePRDDoc            SourceType = "PRD_Doc"
	SourceMeetingTranscript SourceType = "Meeting_Transcript"
)

// Priority is the requirement priority tag.
type Priority string

// Known priorities.
const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
)

// TicketType selects the rubric scenario and gate threshold.
type TicketType string

// Known ticket types.
const (
	TicketFeature TicketType = "Feature"
	TicketBug     TicketType = "Bug"
)

const minRawTextLength = 10

var projectKeyRe = regexp.MustCompile(`^[A-Z]{2,5}$`)

// Packet is the standardized requirement input. Immutable once constructed;
// validated exactly once by NewPacket and never re-validated downstream.
type Packet struct {
	RawText     string     `json:"raw_text"`
	SourceType  SourceType `json:"source_type"`
	ProjectKey  string     `json:"project_key"`
	Priority    Priority   `json:"priority"`
	TicketType  TicketType `json:"ticket_type"`
	Attachments []string   `json:"attachments,omitempty"`
}

// NewPacket validates the fields and returns a packet with trimmed raw text.
func NewPacket(rawText string, sourceType SourceType, projectKey string, priority Priority, ticketType TicketType, attachments []string) (Packet, error) {
	trimmed := strings.TrimSpace(rawText)
	if trimmed == "" {
		return Packet{}, fmt.Errorf("raw_text cannot be empty or whitespace only")
	}
	if len(trimmed) < minRawTextLength {
		return Packet{}, fmt.Errorf("raw_text too short: %d characters (minimum: %d)", len(trimmed), minRawTextLength)
	}

	switch sourceType {
	case SourceJiraTicket, SourcePRDDoc, SourceMeetingTranscript:
	default:
		return Packet{}, fmt.Errorf("unknown source_type: %q", sourceType)
	}

	if !projectKeyRe.MatchString(projectKey) {
		return Packet{}, fmt.Errorf("invalid project_key %q: expected 2-5 uppercase letters", projectKey)
	}

	if priority == "" {
		priority = PriorityP1
	}
	switch priority {
	case PriorityP0, PriorityP1, PriorityP2:
	default:
		return Packet{}, fmt.Errorf("unknown priority: %q", priority)
	}

	if ticketType == "" {
		ticketType = TicketFeature
	}
	switch ticketType {
	case TicketFeature, TicketBug:
	default:
		return Packet{}, fmt.Errorf("unknown ticket_type: %q", ticketType)
	}

	for _, a := range attachments {
		u, err := url.Parse(a)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Packet{}, fmt.Errorf("invalid attachment URL: %q", a)
		}
	}

	return Packet{
		RawText:     trimmed,
		SourceType:  sourceType,
		ProjectKey:  projectKey,
		Priority:    priority,
		TicketType:  ticketType,
		Attachments: attachments,
	}, nil
}

// WithRawText returns a copy of the packet with the raw text replaced.
// Used by the scoring stage to substitute the rendered draft for prompting
// purposes; all other fields are preserved.
func (p Packet) WithRawText(text string) Packet {
	p.RawText = text
	return p
}
