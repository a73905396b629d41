package workflow

import "github.com/metalagman/reqgate/internal/requirement"

// State is the run-scoped record passed through the pipeline stages. It is
// created fresh per run, owned exclusively by the orchestrator, and never
// shared across concurrent runs. Stages receive it by value and return an
// updated copy; previously-set fields must be preserved.
type State struct {
	Packet requirement.Packet `json:"packet"`

	Draft        *requirement.Draft       `json:"structured_prd"`
	Report       *requirement.ScoreReport `json:"score_report"`
	GateDecision *bool                    `json:"gate_decision"`

	RetryCount        int                `json:"retry_count"`
	ErrorLogs         []string           `json:"error_logs"`
	CurrentStage      string             `json:"current_stage"`
	FallbackActivated bool               `json:"fallback_activated"`
	ExecutionTimes    map[string]float64 `json:"execution_times"`

	// Structural check tri-state: true/false after a check, nil when the
	// check was skipped because no draft existed.
	StructureCheckPassed *bool    `json:"structure_check_passed"`
	StructureErrors      []string `json:"structure_errors"`
}

// NewState creates the initial run state for a packet.
func NewState(packet requirement.Packet) State {
	return State{
		Packet:          packet,
		ErrorLogs:       []string{},
		CurrentStage:    "init",
		ExecutionTimes:  map[string]float64{},
		StructureErrors: []string{},
	}
}

// logError appends to the append-only error log.
func (s *State) logError(msg string) {
	s.ErrorLogs = append(s.ErrorLogs, msg)
}
