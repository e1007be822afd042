package changeset

import (
	"fmt"
	"strings"
)

// renderTaskList renders 03-task-list.md: a human-readable view of the plan
// the canonical 02-implementation-plan.json encodes.
func renderTaskList(p Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Goal)
	fmt.Fprintf(&b, "Tiers: %s\n\n", strings.Join(p.Tiers, ", "))
	for i, t := range p.Tasks {
		fmt.Fprintf(&b, "%d. **%s** (%s) — %s\n", i+1, t.ID, t.StepType, t.Description)
		for _, c := range t.ToolCalls {
			fmt.Fprintf(&b, "   - `%s`\n", c.ToolName)
		}
	}
	return b.String()
}
