package phaserun

const (
	WorkflowName = "phase_run"
	ActivityRun  = "phase_run_execute"

	// ErrTypeUnknownPhase marks a handler-table miss. Retrying cannot
	// change the outcome, so the retry policy treats it as terminal.
	ErrTypeUnknownPhase = "unknown_phase"
)
