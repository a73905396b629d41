package requirement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPacket_Valid(t *testing.T) {
	t.Parallel()

	p, err := NewPacket("  Users need CSV export of monthly reports.  ", SourceJiraTicket, "PROJ", PriorityP0, TicketBug, []string{"https://example.com/mock.png"})
	require.NoError(t, err)
	assert.Equal(t, "Users need CSV export of monthly reports.", p.RawText)
	assert.Equal(t, PriorityP0, p.Priority)
	assert.Equal(t, TicketBug, p.TicketType)
}

func TestNewPacket_Defaults(t *testing.T) {
	t.Parallel()

	p, err := NewPacket("Users need CSV export of monthly reports.", SourcePRDDoc, "AB", "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, PriorityP1, p.Priority)
	assert.Equal(t, TicketFeature, p.TicketType)
}

func TestNewPacket_RejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		fn   func() error
	}{
		{"empty text", func() error {
			_, err := NewPacket("   ", SourceJiraTicket, "PROJ", PriorityP1, TicketFeature, nil)
			return err
		}},
		{"short text", func() error {
			_, err := NewPacket("too short", SourceJiraTicket, "PROJ", PriorityP1, TicketFeature, nil)
			return err
		}},
		{"unknown source", func() error {
			_, err := NewPacket("Users need CSV export of reports.", SourceType("Email"), "PROJ", PriorityP1, TicketFeature, nil)
			return err
		}},
		{"lowercase project key", func() error {
			_, err := NewPacket("Users need CSV export of reports.", SourceJiraTicket, "proj", PriorityP1, TicketFeature, nil)
			return err
		}},
		{"project key too long", func() error {
			_, err := NewPacket("Users need CSV export of reports.", SourceJiraTicket, "TOOLONG", PriorityP1, TicketFeature, nil)
			return err
		}},
		{"unknown priority", func() error {
			_, err := NewPacket("Users need CSV export of reports.", SourceJiraTicket, "PROJ", Priority("P9"), TicketFeature, nil)
			return err
		}},
		{"unknown ticket type", func() error {
			_, err := NewPacket("Users need CSV export of reports.", SourceJiraTicket, "PROJ", PriorityP1, TicketType("Epic"), nil)
			return err
		}},
		{"relative attachment url", func() error {
			_, err := NewPacket("Users need CSV export of reports.", SourceJiraTicket, "PROJ", PriorityP1, TicketFeature, []string{"not-a-url"})
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Error(t, tc.fn())
		})
	}
}

func TestWithRawText_PreservesOtherFields(t *testing.T) {
	t.Parallel()

	p, err := NewPacket("Users need CSV export of monthly reports.", SourceJiraTicket, "PROJ", PriorityP2, TicketFeature, nil)
	require.NoError(t, err)

	replaced := p.WithRawText("# Rendered draft")
	assert.Equal(t, "# Rendered draft", replaced.RawText)
	assert.Equal(t, p.ProjectKey, replaced.ProjectKey)
	assert.Equal(t, p.Priority, replaced.Priority)
	// Original is untouched.
	assert.Equal(t, "Users need CSV export of monthly reports.", p.RawText)
}
