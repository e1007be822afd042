package changeset

import "path/filepath"

// ChangesDir is the top-level directory holding every changeset.
func ChangesDir(repoRoot string) string {
	return filepath.Join(repoRoot, "changes")
}

// Dir is the on-disk directory for changeset id.
func Dir(repoRoot, id string) string {
	return filepath.Join(ChangesDir(repoRoot), id)
}

func metaPath(dir string) string         { return filepath.Join(dir, "00-meta.json") }
func architecturePath(dir string) string { return filepath.Join(dir, "01-architecture.md") }
func planPath(dir string) string         { return filepath.Join(dir, "02-implementation-plan.json") }
func taskListPath(dir string) string     { return filepath.Join(dir, "03-task-list.md") }
func walkthroughPath(dir string) string  { return filepath.Join(dir, "04-walkthrough.md") }
func statusPath(dir string) string       { return filepath.Join(dir, "05-status.json") }
func approvedPath(dir string) string     { return filepath.Join(dir, "APPROVED") }
func verifyDir(dir string) string        { return filepath.Join(dir, "verify") }

// LoadPlan reads and decodes the pinned implementation plan for the
// changeset directory dir, for callers outside this package (the
// verification engine reports each skill artifact's tier from it).
func LoadPlan(dir string) (Plan, error) {
	var p Plan
	err := readJSONFile(planPath(dir), &p)
	return p, err
}
func toolchainArtifactPath(dir string) string {
	return filepath.Join(verifyDir(dir), "_toolchain.json")
}

// lockPath is the on-disk lockfile path for changeset id.
func lockPath(repoRoot, id string) string {
	return filepath.Join(ChangesDir(repoRoot), ".locks", id)
}

// SanitizeSkillName replaces "/" with "_" for the verify/<skill>.json file
// name (spec.md §4.4 step 5d).
func SanitizeSkillName(skill string) string {
	out := make([]byte, len(skill))
	for i := 0; i < len(skill); i++ {
		if skill[i] == '/' {
			out[i] = '_'
		} else {
			out[i] = skill[i]
		}
	}
	return string(out)
}

// SkillArtifactPath is the path for a skill's verification evidence file.
func SkillArtifactPath(dir, skill string) string {
	return filepath.Join(verifyDir(dir), SanitizeSkillName(skill)+".json")
}
