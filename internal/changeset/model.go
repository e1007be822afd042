// Package changeset implements the changeset lifecycle engine (spec.md §4.3
// and §2 items 5-7): the generator that proposes a new changeset, the
// validator that re-hashes and re-checks it, and the executor that applies
// it under an exclusive lock with post-hoc drift detection.
package changeset

const (
	SchemaVersionMeta   = 1
	SchemaVersionPlan   = 1
	SchemaVersionStatus = 1
)

// Meta is 00-meta.json.
type Meta struct {
	SchemaVersion      int    `json:"schema_version"`
	ChangeSetID        string `json:"change_set_id"`
	BaseStateCreatedAt string `json:"base_state_created_at"`
	PlanSHA256         string `json:"plan_sha256"`
	RepoKey            string `json:"repo_key"`
	BaseState          string `json:"base_state"`
	Intent             string `json:"intent"`
}

// ToolCall is one dispatched call within a task.
type ToolCall struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Task is one unit of work within a plan.
type Task struct {
	ID          string     `json:"id"`
	StepType    string     `json:"step_type"`
	Description string     `json:"description"`
	ToolCalls   []ToolCall `json:"tool_calls"`
}

// Plan is 02-implementation-plan.json.
type Plan struct {
	SchemaVersion int      `json:"schema_version"`
	Goal          string   `json:"goal"`
	Tiers         []string `json:"tiers"`
	Tasks         []Task   `json:"tasks"`
}

// AllToolNames flattens every tool_name referenced by the plan's tasks, in
// declared order, duplicates included.
func (p *Plan) AllToolNames() []string {
	var names []string
	for _, t := range p.Tasks {
		for _, c := range t.ToolCalls {
			names = append(names, c.ToolName)
		}
	}
	return names
}

// State is 05-status.json.state.
type State string

const (
	StateFailed        State = "failed"
	StateValidated     State = "validated"
	StatePendingReview State = "pending_review"
	StateExecuted      State = "executed"
)

// ValidationStatus is the 05-status.json.validation sub-document.
type ValidationStatus struct {
	State      string `json:"state"` // "valid" | "invalid"
	Check      string `json:"check,omitempty"`
	Message    string `json:"message,omitempty"`
	Impact     string `json:"impact,omitempty"`
	Violations []any  `json:"violations,omitempty"`
}

// StepLog is one tool_call's outcome recorded in execution.log.
type StepLog struct {
	TaskID   string `json:"task_id"`
	ToolName string `json:"tool_name"`
	Status   string `json:"status"` // "ok" | "failed"
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ExecutionStatus is the 05-status.json.execution sub-document.
type ExecutionStatus struct {
	State          string    `json:"state"` // "completed" | "failed"
	StepsCompleted int       `json:"steps_completed"`
	ExecutionID    string    `json:"execution_id,omitempty"`
	Error          string    `json:"error,omitempty"`
	Log            []StepLog `json:"log,omitempty"`
}

// VerificationLastRun is 05-status.json.verification.last_run.
type VerificationLastRun struct {
	Profile   string `json:"profile"`
	Outcome   string `json:"outcome"` // "passed" | "failed"
	Timestamp string `json:"timestamp"`
}

// VerificationStatus is the 05-status.json.verification sub-document.
type VerificationStatus struct {
	LastRun *VerificationLastRun `json:"last_run,omitempty"`
}

// Status is 05-status.json.
type Status struct {
	SchemaVersion int                 `json:"schema_version"`
	State         State               `json:"state"`
	Validation    *ValidationStatus   `json:"validation,omitempty"`
	Execution     *ExecutionStatus    `json:"execution,omitempty"`
	Verification  *VerificationStatus `json:"verification,omitempty"`
}

// LockFile is the canonical JSON written to changes/.locks/<id> while an
// executor owns a changeset (spec.md §3). The Pid field is a
// SPEC_FULL.md addition used for opt-in stale-lock recovery.
type LockFile struct {
	ChangeSetID        string `json:"change_set_id"`
	RepoKey            string `json:"repo_key"`
	BaseState          string `json:"base_state"`
	BaseStateCreatedAt string `json:"base_state_created_at"`
	Pid                int    `json:"pid"`
	ExecutionID        string `json:"execution_id"`
}
