package changeset

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/kilnforge/changeforge/internal/capability"
	"github.com/kilnforge/changeforge/internal/tier"
)

// allowedTools is the static tool allowlist the executor dispatches through
// (spec.md §4.3).
var allowedTools = map[string]bool{
	"gov.preflight":         true,
	"gov.drift":             true,
	"features.impact":       true,
	"workspace.apply_patch": true,
	"snapshot.create":       true,
	"snapshot.info":         true,
	"write_file":            true,
	"workspace.write_file":  true,
	"workspace.delete":      true,
}

// ExecuteOptions configures a single Execute call.
type ExecuteOptions struct {
	// BreakStaleLock opts into PID-based stale-lock recovery (SPEC_FULL.md).
	BreakStaleLock bool
	// ExecutionID overrides the ULID stamped into the lockfile; primarily
	// for deterministic tests. A blank value generates a fresh ULID.
	ExecutionID string
}

// Execute runs the changeset's plan under an exclusive lock, enforcing the
// tier/approval gates, dispatching tool_calls through cap, and performing a
// post-execution drift check (spec.md §4.3, §2 item 7).
func Execute(ctx context.Context, repoRoot, id string, cap capability.Capability, opts ExecuteOptions) (State, error) {
	dir := Dir(repoRoot, id)

	var meta Meta
	var plan Plan
	var status Status
	if err := readJSONFile(metaPath(dir), &meta); err != nil {
		return "", fmt.Errorf("changeset: read meta: %w", err)
	}
	if err := readJSONFile(planPath(dir), &plan); err != nil {
		return "", fmt.Errorf("changeset: read plan: %w", err)
	}
	if err := readJSONFile(statusPath(dir), &status); err != nil {
		return "", fmt.Errorf("changeset: read status: %w", err)
	}

	if err := checkExecutionPreconditions(dir, plan, status); err != nil {
		return "", err
	}

	executionID := opts.ExecutionID
	if executionID == "" {
		executionID = ulid.Make().String()
	}

	lock := LockFile{
		ChangeSetID:        meta.ChangeSetID,
		RepoKey:            meta.RepoKey,
		BaseState:          meta.BaseState,
		BaseStateCreatedAt: meta.BaseStateCreatedAt,
		Pid:                os.Getpid(),
		ExecutionID:        executionID,
	}
	if err := AcquireLock(repoRoot, id, lock, opts.BreakStaleLock); err != nil {
		return "", err
	}
	defer func() { _ = ReleaseLock(repoRoot, id) }()

	var log []StepLog
	stepsCompleted := 0

	for _, task := range plan.Tasks {
		for _, call := range task.ToolCalls {
			if !allowedTools[call.ToolName] {
				return failExecution(dir, log, stepsCompleted,
					fmt.Sprintf("tool %q is not in the execution allowlist", call.ToolName))
			}

			result, err := cap.CallTool(ctx, call.ToolName, call.Arguments)
			if err != nil {
				log = append(log, StepLog{
					TaskID: task.ID, ToolName: call.ToolName,
					Status: "failed", Error: err.Error(),
				})
				return failExecution(dir, log, stepsCompleted,
					fmt.Sprintf("tool call %s/%s failed: %v", task.ID, call.ToolName, err))
			}

			log = append(log, StepLog{
				TaskID: task.ID, ToolName: call.ToolName,
				Status: "ok", Output: formatToolResult(result),
			})
			stepsCompleted++
		}
	}

	drifted, err := cap.Drift(ctx, "check")
	if err != nil {
		return failExecution(dir, log, stepsCompleted, fmt.Sprintf("post-execution drift check error: %v", err))
	}
	if drifted {
		return failExecution(dir, log, stepsCompleted, "Post-execution drift detected")
	}

	if err := writeTextFile(walkthroughPath(dir), renderWalkthrough(plan, log)); err != nil {
		return "", err
	}

	finalStatus := status
	finalStatus.SchemaVersion = SchemaVersionStatus
	finalStatus.State = StateExecuted
	finalStatus.Execution = &ExecutionStatus{
		State:          "completed",
		StepsCompleted: stepsCompleted,
		ExecutionID:    executionID,
		Log:            log,
	}
	if err := writeCanonicalJSON(statusPath(dir), finalStatus); err != nil {
		return "", err
	}
	return StateExecuted, nil
}

func checkExecutionPreconditions(dir string, plan Plan, status Status) error {
	if status.Validation == nil || status.Validation.State != "valid" {
		return fmt.Errorf("changeset: execute refused: validation.state is not \"valid\"")
	}
	if status.State != StateValidated && status.State != StatePendingReview {
		return fmt.Errorf("changeset: execute refused: state %q is not validated or pending_review", status.State)
	}

	maxTier := tier.Tier1
	for _, raw := range plan.Tiers {
		t, err := tier.Parse(raw)
		if err != nil {
			return fmt.Errorf("changeset: execute refused: invalid declared tier %q", raw)
		}
		if t > maxTier {
			maxTier = t
		}
	}

	if maxTier == tier.Tier3 {
		return fmt.Errorf("changeset: Tier 3 changesets cannot be executed automatically")
	}

	approved := readApproved(dir)
	if status.State == StatePendingReview && !approved {
		return fmt.Errorf("changeset: execute refused: pending_review requires APPROVED marker")
	}
	if maxTier == tier.Tier2 && !approved {
		return fmt.Errorf("changeset: execute refused: tier2 plan requires APPROVED marker")
	}

	return nil
}

func failExecution(dir string, log []StepLog, stepsCompleted int, message string) (State, error) {
	status := Status{
		SchemaVersion: SchemaVersionStatus,
		State:         StateFailed,
		Execution: &ExecutionStatus{
			State:          "failed",
			StepsCompleted: stepsCompleted,
			Error:          message,
			Log:            log,
		},
	}
	if err := writeCanonicalJSON(statusPath(dir), status); err != nil {
		return "", err
	}
	return StateFailed, nil
}

func formatToolResult(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}
