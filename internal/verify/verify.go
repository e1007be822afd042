// Package verify implements the verification engine (spec.md §4.4): for a
// given changeset and profile it resolves skills from spec/verification.yaml,
// runs each skill's steps through the constrained runner, tracks drift
// around each step, and writes canonical evidence artifacts under
// changes/<id>/verify/.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kilnforge/changeforge/internal/canonjson"
	"github.com/kilnforge/changeforge/internal/capability"
	"github.com/kilnforge/changeforge/internal/changeset"
	"github.com/kilnforge/changeforge/internal/runner"
	"github.com/kilnforge/changeforge/internal/tier"
	"github.com/kilnforge/changeforge/internal/verifyconfig"
)

// Runner is the subset of internal/runner's surface the engine depends on,
// so tests can substitute a scripted double without spawning processes.
type Runner interface {
	Run(ctx context.Context, repoRoot string, step runner.Step, ambientEnv []string) (runner.Result, error)
}

// processRunner adapts runner.Run to the Runner interface.
type processRunner struct{}

func (processRunner) Run(ctx context.Context, repoRoot string, step runner.Step, ambientEnv []string) (runner.Result, error) {
	return runner.Run(ctx, repoRoot, step, ambientEnv)
}

// Snapshotter summarizes the working tree for the before/after fields of
// the evidence artifacts. The engine treats it as optional: a nil
// Snapshotter yields empty snapshot strings rather than failing a run.
type Snapshotter interface {
	Snapshot(ctx context.Context) (string, error)
}

// Engine runs verification profiles against a changeset.
type Engine struct {
	Config      *verifyconfig.Config
	Capability  capability.Capability
	Runner      Runner
	Snapshotter Snapshotter
}

// NewEngine builds an Engine with the real process runner wired in.
func NewEngine(cfg *verifyconfig.Config, cap capability.Capability, snap Snapshotter) *Engine {
	return &Engine{Config: cfg, Capability: cap, Runner: processRunner{}, Snapshotter: snap}
}

// stepResult is one step's recorded outcome within a skill artifact.
type stepResult struct {
	Name          string `json:"name"`
	ExitCode      int    `json:"exit_code"`
	DurationMS    int64  `json:"duration_ms"`
	StdoutSHA256  string `json:"stdout_sha256"`
	StderrSHA256  string `json:"stderr_sha256"`
	StdoutPreview string `json:"stdout_preview"`
	StderrPreview string `json:"stderr_preview"`
}

// trackedDrift is the changed-files view computed around a skill's steps.
type trackedDrift struct {
	Mode         string   `json:"mode"`
	ChangedFiles []string `json:"changed_files"`
}

// summary is a skill artifact's terminal outcome.
type summary struct {
	OverallExitCode int   `json:"overall_exit_code"`
	DurationMS      int64 `json:"duration_ms"`
}

// skillArtifact is verify/<sanitized-skill>.json.
type skillArtifact struct {
	Version            int          `json:"version"`
	ChangeSetID        string       `json:"changeset_id"`
	Profile            string       `json:"profile"`
	Skill              string       `json:"skill"`
	Determinism        string       `json:"determinism"`
	Tier               string       `json:"tier"`
	RepoSnapshotBefore string       `json:"repo_snapshot_before"`
	RepoSnapshotAfter  string       `json:"repo_snapshot_after"`
	TrackedDrift       trackedDrift `json:"tracked_drift"`
	Steps              []stepResult `json:"steps"`
	Summary            summary      `json:"summary"`
}

// toolchainEntry is one keyed command result within _toolchain.json.
type toolchainEntry struct {
	Command      string `json:"command"`
	ExitCode     int    `json:"exit_code"`
	DurationMS   int64  `json:"duration_ms"`
	StdoutSHA256 string `json:"stdout_sha256"`
	StderrSHA256 string `json:"stderr_sha256"`
}

// toolchainArtifact is verify/_toolchain.json.
type toolchainArtifact struct {
	Version            int                       `json:"version"`
	RepoSnapshotBefore string                    `json:"repo_snapshot_before"`
	RepoSnapshotAfter  string                    `json:"repo_snapshot_after"`
	Checks             map[string]toolchainEntry `json:"checks"`
}

// Outcome is the overall pass/fail result of Run, used to patch
// 05-status.json.verification.last_run.
type Outcome string

const (
	OutcomePassed Outcome = "passed"
	OutcomeFailed Outcome = "failed"
)

// Run executes profile against the changeset at repoRoot/changes/<id> and
// returns the overall outcome once every skill has been evaluated.
func (e *Engine) Run(ctx context.Context, repoRoot, id, profile string) (Outcome, error) {
	if e.Config.Version != 1 {
		return OutcomeFailed, fmt.Errorf("verify: unsupported config version %d", e.Config.Version)
	}
	skillNames, err := e.Config.ResolveProfile(profile)
	if err != nil {
		return OutcomeFailed, err
	}

	dir := changeset.Dir(repoRoot, id)
	if err := os.MkdirAll(filepath.Join(dir, "verify"), 0o755); err != nil {
		return OutcomeFailed, fmt.Errorf("verify: mkdir verify dir: %w", err)
	}

	changesetTier := e.changesetTier(dir)

	if err := e.runToolchains(ctx, repoRoot, dir); err != nil {
		return OutcomeFailed, err
	}

	excludePrefix := filepath.Join("changes", id, "verify")
	outcome := OutcomePassed
	for _, name := range skillNames {
		skill, ok := e.Config.Skill(name)
		if !ok {
			return OutcomeFailed, fmt.Errorf("verify: unknown skill %q in profile %q", name, profile)
		}
		passed, err := e.runSkill(ctx, repoRoot, id, dir, profile, skill, excludePrefix, changesetTier)
		if err != nil {
			return OutcomeFailed, err
		}
		if !passed {
			outcome = OutcomeFailed
		}
	}

	if err := e.patchStatus(dir, profile, outcome); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (e *Engine) runToolchains(ctx context.Context, repoRoot, dir string) error {
	if len(e.Config.Toolchains) == 0 {
		return nil
	}
	before := e.snapshot(ctx)
	checks := map[string]toolchainEntry{}
	for name, tc := range e.Config.Toolchains {
		for _, check := range tc.Required {
			raw, err := check.Cmd()
			if err != nil {
				return fmt.Errorf("verify: toolchain %q: %w", name, err)
			}
			cmd, err := runner.ParseCmd(raw)
			if err != nil {
				return fmt.Errorf("verify: toolchain %q: %w", name, err)
			}
			res, err := e.Runner.Run(ctx, repoRoot, runner.Step{
				Cmd:       cmd,
				Workdir:   e.Config.Defaults.Workdir,
				Env:       e.Config.Defaults.Env,
				EnvAllow:  e.Config.Defaults.EnvAllow,
				TimeoutMS: e.Config.Defaults.TimeoutMS,
				Network:   runner.Network(e.Config.Defaults.Network),
			}, os.Environ())
			if err != nil {
				return fmt.Errorf("verify: toolchain %q: %w", name, err)
			}
			key := commandKey(raw)
			checks[key] = toolchainEntry{
				Command:      key,
				ExitCode:     res.ExitCode,
				DurationMS:   res.DurationMS,
				StdoutSHA256: res.StdoutSHA256,
				StderrSHA256: res.StderrSHA256,
			}
		}
	}
	after := e.snapshot(ctx)
	artifact := toolchainArtifact{
		Version:            1,
		RepoSnapshotBefore: before,
		RepoSnapshotAfter:  after,
		Checks:             checks,
	}
	b, err := canonjson.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("verify: encode toolchain artifact: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "verify", "_toolchain.json"), b, 0o644)
}

func (e *Engine) changesetTier(dir string) string {
	plan, err := changeset.LoadPlan(dir)
	if err != nil {
		return tier.Tier1.String()
	}
	return tier.PlanTier(plan.AllToolNames()).String()
}

func (e *Engine) runSkill(ctx context.Context, repoRoot, id, dir, profile string, skill verifyconfig.Skill, excludePrefix, changesetTier string) (bool, error) {
	start := time.Now()
	before := e.snapshot(ctx)

	driftBefore, err := e.queryTrackedDrift(ctx, excludePrefix)
	if err != nil {
		return false, fmt.Errorf("verify: skill %q: drift before: %w", skill.Name, err)
	}

	var steps []stepResult
	overallExit := 0
	readOnlyViolated := false
	// prevDrift is the tracked drift just before the current step: the
	// skill-level query for the first step, then the previous step's result.
	prevDrift := driftBefore

	for _, st := range skill.Steps {
		raw, err := st.Cmd()
		if err != nil {
			return false, fmt.Errorf("verify: skill %q step %q: %w", skill.Name, st.Name, err)
		}
		cmd, err := runner.ParseCmd(raw)
		if err != nil {
			return false, fmt.Errorf("verify: skill %q step %q: %w", skill.Name, st.Name, err)
		}
		res, err := e.Runner.Run(ctx, repoRoot, runner.Step{
			Cmd:       cmd,
			Workdir:   st.Workdir,
			Env:       st.Env,
			EnvAllow:  st.EnvAllow,
			Network:   runner.Network(st.Network),
			TimeoutMS: st.TimeoutMS,
		}, os.Environ())
		if err != nil {
			return false, fmt.Errorf("verify: skill %q step %q: %w", skill.Name, st.Name, err)
		}
		steps = append(steps, stepResult{
			Name:          st.Name,
			ExitCode:      res.ExitCode,
			DurationMS:    res.DurationMS,
			StdoutSHA256:  res.StdoutSHA256,
			StderrSHA256:  res.StderrSHA256,
			StdoutPreview: res.StdoutPreview,
			StderrPreview: res.StderrPreview,
		})
		if res.ExitCode != 0 {
			overallExit = 1
		}

		driftAfterStep, err := e.queryTrackedDrift(ctx, excludePrefix)
		if err != nil {
			return false, fmt.Errorf("verify: skill %q step %q: drift after: %w", skill.Name, st.Name, err)
		}
		// A read-only step violates its posture when a path drifts that had
		// not drifted before the step ran.
		if st.ReadOnly != "off" {
			seen := make(map[string]bool, len(prevDrift))
			for _, p := range prevDrift {
				seen[p] = true
			}
			for _, p := range driftAfterStep {
				if !seen[p] {
					readOnlyViolated = true
				}
			}
		}
		prevDrift = driftAfterStep
	}

	if readOnlyViolated {
		overallExit = 1
	}

	driftAfter, err := e.queryTrackedDrift(ctx, excludePrefix)
	if err != nil {
		return false, fmt.Errorf("verify: skill %q: drift after: %w", skill.Name, err)
	}
	changed := mergeSortedUnique(driftBefore, driftAfter)

	after := e.snapshot(ctx)
	artifact := skillArtifact{
		Version:            1,
		ChangeSetID:        id,
		Profile:            profile,
		Skill:              skill.Name,
		Determinism:        skill.Determinism,
		Tier:               changesetTier,
		RepoSnapshotBefore: before,
		RepoSnapshotAfter:  after,
		TrackedDrift:       trackedDrift{Mode: "tracked", ChangedFiles: changed},
		Steps:              steps,
		Summary: summary{
			OverallExitCode: overallExit,
			DurationMS:      time.Since(start).Milliseconds(),
		},
	}
	b, err := canonjson.Marshal(artifact)
	if err != nil {
		return false, fmt.Errorf("verify: encode skill artifact: %w", err)
	}
	path := filepath.Join(dir, "verify", changeset.SanitizeSkillName(skill.Name)+".json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return false, fmt.Errorf("verify: write %s: %w", path, err)
	}
	return overallExit == 0, nil
}

func (e *Engine) queryTrackedDrift(ctx context.Context, excludePrefix string) ([]string, error) {
	if e.Capability == nil {
		return nil, nil
	}
	paths, err := e.Capability.GetDrift(ctx, excludePrefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (e *Engine) snapshot(ctx context.Context) string {
	if e.Snapshotter == nil {
		return ""
	}
	s, err := e.Snapshotter.Snapshot(ctx)
	if err != nil {
		return ""
	}
	return s
}

func (e *Engine) patchStatus(dir, profile string, outcome Outcome) error {
	path := filepath.Join(dir, "05-status.json")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	var status changeset.Status
	if err := readJSONInto(path, &status); err != nil {
		return fmt.Errorf("verify: read %s: %w", path, err)
	}
	status.Verification = &changeset.VerificationStatus{
		LastRun: &changeset.VerificationLastRun{
			Profile:   profile,
			Outcome:   string(outcome),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
	b, err := canonjson.Marshal(status)
	if err != nil {
		return fmt.Errorf("verify: encode status: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

func mergeSortedUnique(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func commandKey(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []string:
		out := v[0]
		for _, p := range v[1:] {
			out += " " + p
		}
		return out
	default:
		return fmt.Sprintf("%v", raw)
	}
}

func readJSONInto(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
