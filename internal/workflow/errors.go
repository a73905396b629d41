package workflow

import "fmt"

// RejectionReason classifies why the guardrail aborted a run.
type RejectionReason string

// Guardrail rejection reasons, checked in this precedence order.
const (
	ReasonTooShort         RejectionReason = "too_short"
	ReasonTooLong          RejectionReason = "too_long"
	ReasonPIIDetected      RejectionReason = "pii_detected"
	ReasonPromptInjection  RejectionReason = "prompt_injection"
	ReasonValidationFailed RejectionReason = "validation_failed"
)

// RejectionError is the single failure that aborts a run and propagates to
// the caller: the input failed pre-flight screening before any LLM spend.
type RejectionError struct {
	Reason  RejectionReason
	Details string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("input validation failed (%s): %s", e.Reason, e.Details)
}

// ExecutionError wraps any failure escaping the orchestrator's own
// bookkeeping, tagged with the stage it escaped from.
type ExecutionError struct {
	Stage string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("workflow execution failed at stage %q: %v", e.Stage, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
