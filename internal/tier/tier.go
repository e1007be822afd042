// Package tier implements the safety classifier: the mapping from tool name
// to risk tier, and the reduction of a plan's tool calls to its maximum
// tier, grounded on the teacher's map-based classification pattern in
// engine.retryableFailureClasses.
package tier

import "fmt"

// Tier is an ordered risk level: Tier1 < Tier2 < Tier3.
type Tier int

const (
	Tier1 Tier = iota + 1
	Tier2
	Tier3
)

func (t Tier) String() string {
	switch t {
	case Tier1:
		return "tier1"
	case Tier2:
		return "tier2"
	case Tier3:
		return "tier3"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Parse maps a declared tier string ("tier1".."tier3") to a Tier.
func Parse(s string) (Tier, error) {
	switch s {
	case "tier1":
		return Tier1, nil
	case "tier2":
		return Tier2, nil
	case "tier3":
		return Tier3, nil
	default:
		return 0, fmt.Errorf("tier: unknown tier %q", s)
	}
}

// toolTiers maps the static tool allowlist (spec.md §4.3) to its risk tier.
// Read-only/probing tools are Tier1; mutating-but-recoverable tools are
// Tier2; anything unknown or destructive is Tier3.
var toolTiers = map[string]Tier{
	"gov.preflight":         Tier1,
	"gov.drift":             Tier1,
	"features.impact":       Tier1,
	"snapshot.info":         Tier1,
	"workspace.apply_patch": Tier2,
	"snapshot.create":       Tier2,
	"write_file":            Tier2,
	"workspace.write_file":  Tier2,
	"workspace.delete":      Tier3,
}

// ToolTier returns the risk tier for a tool name. Unknown tool names are
// Tier3 (unknown is destructive by default).
func ToolTier(toolName string) Tier {
	if t, ok := toolTiers[toolName]; ok {
		return t
	}
	return Tier3
}

// PlanTier reduces a set of tool names (one entry per tool_call, duplicates
// allowed) to its maximum tier. An empty plan is Tier1.
func PlanTier(toolNames []string) Tier {
	max := Tier1
	for _, name := range toolNames {
		if t := ToolTier(name); t > max {
			max = t
		}
	}
	return max
}
