package changeset

import (
	"fmt"
	"strings"
)

// renderWalkthrough renders 04-walkthrough.md: the plan's goal followed by
// each step's status and output, in dispatch order (spec.md §4.3, §5).
func renderWalkthrough(p Plan, log []StepLog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Goal)
	for i, step := range log {
		fmt.Fprintf(&b, "%d. `%s` (%s): %s\n", i+1, step.ToolName, step.TaskID, step.Status)
		if step.Output != "" {
			fmt.Fprintf(&b, "   %s\n", step.Output)
		}
		if step.Error != "" {
			fmt.Fprintf(&b, "   error: %s\n", step.Error)
		}
	}
	return b.String()
}
