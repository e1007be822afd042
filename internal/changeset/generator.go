package changeset

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/kilnforge/changeforge/internal/ident"
	"github.com/kilnforge/changeforge/internal/tier"
)

// AgentConfig is the input the generator validates and turns into a new
// changeset's five canonical artifacts (spec.md §2 item 5, §7).
type AgentConfig struct {
	Subject        string
	RemoteURL      string
	Goal           string
	Intent         string
	Architecture   string
	DeclaredTiers  []string
	Tasks          []Task
	BaseState      string
	BaseStateAt    time.Time
}

// ValidationError is returned by Propose for generator-time rejections
// (spec.md §7: empty subject/repo_key/goal, empty tasks, invalid or missing
// tier declaration, declared tier below computed tier).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func newValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Propose validates cfg, derives a changeset id from existing siblings under
// changes/, and writes 01-architecture.md, 02-implementation-plan.json,
// 03-task-list.md, 00-meta.json, 05-status.json in that order (spec.md §5).
// It returns the new changeset id.
func Propose(repoRoot string, cfg AgentConfig) (string, error) {
	if err := validateAgentConfig(cfg); err != nil {
		return "", err
	}

	existing, err := existingChangesetIDs(repoRoot)
	if err != nil {
		return "", fmt.Errorf("changeset: list existing changesets: %w", err)
	}
	id, err := ident.DeriveChangesetID(cfg.Subject, existing)
	if err != nil {
		return "", newValidationError("changeset: %v", err)
	}

	repoKey, err := ident.NormalizeRepoKey(cfg.RemoteURL)
	if err != nil {
		return "", newValidationError("changeset: %v", err)
	}

	declaredTier, err := tier.Parse(cfg.DeclaredTiers[0])
	if err != nil {
		return "", newValidationError("changeset: %v", err)
	}
	computedTier := tier.PlanTier(toolNamesOf(cfg.Tasks))
	if computedTier > declaredTier {
		return "", newValidationError(
			"changeset: declared tier %s is below computed tier %s", declaredTier, computedTier)
	}

	dir := Dir(repoRoot, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("changeset: create changeset dir: %w", err)
	}

	plan := Plan{
		SchemaVersion: SchemaVersionPlan,
		Goal:          cfg.Goal,
		Tiers:         cfg.DeclaredTiers,
		Tasks:         cfg.Tasks,
	}
	if err := validateAgainstSchema(plan, validatePlanDoc); err != nil {
		return "", newValidationError("changeset: %v", err)
	}

	planHash, err := planSHA256(plan)
	if err != nil {
		return "", fmt.Errorf("changeset: hash plan: %w", err)
	}

	baseStateAt := cfg.BaseStateAt
	if baseStateAt.IsZero() {
		baseStateAt = time.Now().UTC()
	}

	meta := Meta{
		SchemaVersion:      SchemaVersionMeta,
		ChangeSetID:        id,
		BaseStateCreatedAt: baseStateAt.UTC().Format(time.RFC3339),
		PlanSHA256:         planHash,
		RepoKey:            repoKey,
		BaseState:          cfg.BaseState,
		Intent:             cfg.Intent,
	}

	if err := validateAgainstSchema(meta, validateMetaDoc); err != nil {
		return "", newValidationError("changeset: %v", err)
	}

	architecture := cfg.Architecture
	if strings.TrimSpace(architecture) == "" {
		architecture = fmt.Sprintf("# %s\n\n%s\n", cfg.Subject, cfg.Goal)
	}

	if err := writeTextFile(architecturePath(dir), architecture); err != nil {
		return "", err
	}
	if err := writeCanonicalJSON(planPath(dir), plan); err != nil {
		return "", err
	}
	if err := writeTextFile(taskListPath(dir), renderTaskList(plan)); err != nil {
		return "", err
	}
	if err := writeCanonicalJSON(metaPath(dir), meta); err != nil {
		return "", err
	}

	initialStatus := Status{
		SchemaVersion: SchemaVersionStatus,
		State:         StateValidated,
	}
	if err := writeCanonicalJSON(statusPath(dir), initialStatus); err != nil {
		return "", err
	}

	return id, nil
}

func validateAgentConfig(cfg AgentConfig) error {
	if strings.TrimSpace(cfg.Subject) == "" {
		return newValidationError("changeset: subject is empty")
	}
	if strings.TrimSpace(cfg.RemoteURL) == "" {
		return newValidationError("changeset: repo_key (remote URL) is empty")
	}
	if strings.TrimSpace(cfg.Goal) == "" {
		return newValidationError("changeset: goal is empty")
	}
	if len(cfg.Tasks) == 0 {
		return newValidationError("changeset: tasks is empty")
	}
	if len(cfg.DeclaredTiers) == 0 {
		return newValidationError("changeset: declared tier is missing")
	}
	return nil
}

func toolNamesOf(tasks []Task) []string {
	var names []string
	for _, t := range tasks {
		for _, c := range t.ToolCalls {
			names = append(names, c.ToolName)
		}
	}
	return names
}

func planSHA256(p Plan) (string, error) {
	return hashCanonical(p)
}

func existingChangesetIDs(repoRoot string) ([]string, error) {
	entries, err := os.ReadDir(ChangesDir(repoRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != ".locks" {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}
