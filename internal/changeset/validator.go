package changeset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilnforge/changeforge/internal/capability"
)

// Validate re-hashes the plan, checks the mandatory integrity preconditions,
// queries preflight/drift/impact through cap, and writes 05-status.json
// (spec.md §4.3, §2 item 6). It returns the resulting overall State.
func Validate(ctx context.Context, repoRoot, id string, cap capability.Capability) (State, error) {
	dir := Dir(repoRoot, id)

	var meta Meta
	var plan Plan
	if err := readJSONFile(metaPath(dir), &meta); err != nil {
		return writeFailedIntegrity(dir, "integrity", fmt.Sprintf("cannot read 00-meta.json: %v", err))
	}
	if err := readJSONFile(planPath(dir), &plan); err != nil {
		return writeFailedIntegrity(dir, "integrity", fmt.Sprintf("cannot read 02-implementation-plan.json: %v", err))
	}

	if meta.ChangeSetID != filepath.Base(dir) {
		return writeFailedIntegrity(dir, "integrity", fmt.Sprintf(
			"meta.change_set_id %q does not match folder name %q", meta.ChangeSetID, filepath.Base(dir)))
	}

	if err := validateAgainstSchema(meta, validateMetaDoc); err != nil {
		return writeFailedIntegrity(dir, "integrity", fmt.Sprintf("00-meta.json failed schema validation: %v", err))
	}
	if err := validateAgainstSchema(plan, validatePlanDoc); err != nil {
		return writeFailedIntegrity(dir, "integrity", fmt.Sprintf("02-implementation-plan.json failed schema validation: %v", err))
	}

	recomputed, err := hashCanonical(plan)
	if err != nil {
		return writeFailedIntegrity(dir, "integrity", fmt.Sprintf("cannot hash plan: %v", err))
	}
	if recomputed != meta.PlanSHA256 {
		return writeFailedIntegrity(dir, "integrity", fmt.Sprintf(
			"plan hash mismatch: recomputed %s, meta has %s", recomputed, meta.PlanSHA256))
	}

	allowed, err := cap.Preflight(ctx, "validate")
	if err != nil {
		return writeFailedGovernance(dir, fmt.Sprintf("preflight error: %v", err))
	}
	if !allowed {
		return writeFailedGovernance(dir, "preflight refused this changeset")
	}

	drifted, err := cap.Drift(ctx, "validate")
	if err != nil {
		return writeFailedGovernance(dir, fmt.Sprintf("drift check error: %v", err))
	}
	if drifted {
		return writeFailedGovernance(dir, "working tree has drifted from its base state")
	}

	rawImpact, err := cap.Impact(ctx, "validate", changedPathsFromPlan(plan))
	if err != nil {
		return writeFailedGovernance(dir, fmt.Sprintf("impact check error: %v", err))
	}
	impact := capability.NormalizeImpact(rawImpact)

	state := StateValidated
	if impact != "none" && impact != "low" {
		state = StatePendingReview
	}

	status := Status{
		SchemaVersion: SchemaVersionStatus,
		State:         state,
		Validation: &ValidationStatus{
			State:  "valid",
			Impact: impact,
		},
	}
	if err := writeCanonicalJSON(statusPath(dir), status); err != nil {
		return "", err
	}
	return state, nil
}

func writeFailedIntegrity(dir, check, message string) (State, error) {
	status := Status{
		SchemaVersion: SchemaVersionStatus,
		State:         StateFailed,
		Validation: &ValidationStatus{
			State:   "invalid",
			Check:   check,
			Message: message,
		},
	}
	if err := writeCanonicalJSON(statusPath(dir), status); err != nil {
		return "", err
	}
	return StateFailed, nil
}

func writeFailedGovernance(dir, message string) (State, error) {
	status := Status{
		SchemaVersion: SchemaVersionStatus,
		State:         StateFailed,
		Validation: &ValidationStatus{
			State:   "invalid",
			Message: message,
		},
	}
	if err := writeCanonicalJSON(statusPath(dir), status); err != nil {
		return "", err
	}
	return StateFailed, nil
}

// changedPathsFromPlan collects every "path" argument value referenced by
// the plan's tool calls, for use as the impact query's changed-paths input.
func changedPathsFromPlan(p Plan) []string {
	var paths []string
	for _, t := range p.Tasks {
		for _, c := range t.ToolCalls {
			if v, ok := c.Arguments["path"]; ok {
				if s, ok := v.(string); ok && s != "" {
					paths = append(paths, s)
				}
			}
		}
	}
	return paths
}

// readApproved reports whether the APPROVED marker file exists.
func readApproved(dir string) bool {
	_, err := os.Stat(approvedPath(dir))
	return err == nil
}
