// Package capability declares the narrow interface the core consumes from
// external collaborators (spec.md §1, §6): the JSON-RPC router, mount
// resolver, snapshot/object store, patch application, and ecosystem project
// parsers all live behind this boundary and are never implemented here.
package capability

import (
	"context"
	"strings"
)

// Capability is the single object the validator, executor, and verification
// engine depend on for governance signals and mutation.
// Any error it returns forces the caller's state machine into its failed
// terminal state with a descriptive message (spec.md §6).
type Capability interface {
	// Preflight reports whether the given mode (e.g. "check", a scoped
	// intent token) is currently permitted.
	Preflight(ctx context.Context, mode string) (bool, error)

	// Drift reports whether the working tree has changed relative to the
	// last known clean state, scoped by mode.
	Drift(ctx context.Context, mode string) (bool, error)

	// GetDrift returns the changed paths relative to the last known clean
	// state, excluding anything under excludePrefix.
	GetDrift(ctx context.Context, excludePrefix string) ([]string, error)

	// Impact returns the predicted severity ("none"|"low"|"high", or any
	// other string, case-insensitive) a change to paths would have on the
	// feature graph, scoped by mode.
	Impact(ctx context.Context, mode string, paths []string) (string, error)

	// CallTool dispatches a single tool call by name with its arguments and
	// returns the tool's result value.
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
}

// NormalizeImpact classifies a raw impact string per SPEC_FULL.md's Open
// Question decision: comparison is case-insensitive, and any value other
// than "none"/"low" is treated as "high" (fail-closed) rather than silently
// passed through as safe.
func NormalizeImpact(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "none":
		return "none"
	case "low":
		return "low"
	default:
		return "high"
	}
}
