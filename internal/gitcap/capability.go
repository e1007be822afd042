package gitcap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kilnforge/changeforge/internal/featuregraph"
)

// Capability wraps a repository working tree: git plumbing answers
// drift/snapshot questions, and the feature-graph scanner answers
// preflight/impact questions. It satisfies capability.Capability.
//
// selfApplied tracks, for the lifetime of this instance, which relative
// paths were changed by this Capability's own CallTool dispatches (not
// persisted across process boundaries). The executor runs entirely within
// one process holding one Capability, so the post-execution drift() check
// can tell its own sanctioned writes apart from anything else that moved
// under it; a freshly constructed Capability (as validate uses) always
// treats the whole working tree as the baseline.
type Capability struct {
	RepoRoot        string
	Cache           *featuregraph.Cache
	selfApplied     map[string]bool
	patchTouchedAll bool
}

// New builds a Capability for repoRoot, with its own feature-graph cache.
func New(repoRoot string) *Capability {
	return &Capability{RepoRoot: repoRoot, Cache: featuregraph.NewCache(), selfApplied: map[string]bool{}}
}

func (c *Capability) graph(mode string) (*featuregraph.Graph, error) {
	return c.Cache.Get(c.RepoRoot, mode)
}

// Preflight refuses a changeset when the repository's current feature
// graph already carries an error-severity violation; mode is forwarded to
// the graph cache so callers can force a fresh scan by varying it.
func (c *Capability) Preflight(ctx context.Context, mode string) (bool, error) {
	g, err := c.graph(mode)
	if err != nil {
		return false, fmt.Errorf("gitcap: preflight scan: %w", err)
	}
	for _, v := range g.Violations {
		if v.Severity == featuregraph.SeverityError {
			return false, nil
		}
	}
	return true, nil
}

// changesDirPrefix is excluded from every Drift query: it is the engine's
// own bookkeeping area (proposals, lockfiles, status documents, verify
// evidence), not working-tree state a governance drift check cares about.
// featuregraph.Scan excludes the same tree from its own walk for the same
// reason (see its defaultIgnoreGlobs).
const changesDirPrefix = "changes"

// Drift reports whether the working tree has changes beyond what this
// Capability instance itself applied through CallTool, outside of
// changes/. A freshly built Capability has nothing self-applied, so Drift
// behaves as a plain "working tree differs from HEAD" check scoped to
// non-bookkeeping paths; that is the validator's use.
func (c *Capability) Drift(ctx context.Context, mode string) (bool, error) {
	if c.patchTouchedAll {
		return false, nil
	}
	changed, err := ChangedPaths(c.RepoRoot, changesDirPrefix)
	if err != nil {
		return false, fmt.Errorf("gitcap: drift check: %w", err)
	}
	for _, p := range changed {
		if !c.selfApplied[p] {
			return true, nil
		}
	}
	return false, nil
}

// GetDrift returns the working tree's changed paths, excluding anything
// under excludePrefix.
func (c *Capability) GetDrift(ctx context.Context, excludePrefix string) ([]string, error) {
	paths, err := ChangedPaths(c.RepoRoot, excludePrefix)
	if err != nil {
		return nil, fmt.Errorf("gitcap: get_drift: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Impact runs the feature-graph preflight check scoped to paths and
// collapses its safety tier into the none/low/high vocabulary
// capability.NormalizeImpact expects.
func (c *Capability) Impact(ctx context.Context, mode string, paths []string) (string, error) {
	g, err := c.graph(mode)
	if err != nil {
		return "", fmt.Errorf("gitcap: impact scan: %w", err)
	}
	result, err := featuregraph.Preflight(c.RepoRoot, g, featuregraph.PreflightRequest{
		Mode:         mode,
		ChangedPaths: paths,
	})
	if err != nil {
		return "", fmt.Errorf("gitcap: impact preflight: %w", err)
	}
	if len(result.Violations) > 0 {
		for _, v := range result.Violations {
			if v.Severity == featuregraph.SeverityError {
				return "high", nil
			}
		}
	}
	switch result.SafetyTier {
	case "tier1":
		return "none", nil
	case "tier2":
		return "low", nil
	default:
		return "high", nil
	}
}

// allowedCallToolNames mirrors the executor's static tool allowlist
// (spec.md §4.3); CallTool refuses anything else before dispatch.
var allowedCallToolNames = map[string]bool{
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

// CallTool dispatches one tool_call by name directly against the working
// tree and git plumbing.
func (c *Capability) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	if !allowedCallToolNames[name] {
		return nil, fmt.Errorf("gitcap: tool %q is not in the allowlist", name)
	}
	switch name {
	case "gov.preflight":
		return c.Preflight(ctx, stringArg(args, "mode"))
	case "gov.drift":
		return c.Drift(ctx, stringArg(args, "mode"))
	case "features.impact":
		paths, _ := args["paths"].([]string)
		return c.Impact(ctx, stringArg(args, "mode"), paths)
	case "workspace.apply_patch":
		patch := stringArg(args, "patch")
		if patch == "" {
			return nil, fmt.Errorf("gitcap: workspace.apply_patch requires a non-empty patch argument")
		}
		if err := ApplyPatch(c.RepoRoot, patch); err != nil {
			return nil, err
		}
		c.patchTouchedAll = true
		c.Cache.Invalidate(c.RepoRoot)
		return "applied", nil
	case "snapshot.create", "snapshot.info":
		return HeadSHA(c.RepoRoot)
	case "write_file", "workspace.write_file":
		if err := c.writeFile(args); err != nil {
			return nil, err
		}
		c.Cache.Invalidate(c.RepoRoot)
		return nil, nil
	case "workspace.delete":
		if err := c.deleteFile(args); err != nil {
			return nil, err
		}
		c.Cache.Invalidate(c.RepoRoot)
		return nil, nil
	default:
		return nil, fmt.Errorf("gitcap: tool %q has no dispatcher", name)
	}
}

func (c *Capability) writeFile(args map[string]any) error {
	rel := stringArg(args, "path")
	if rel == "" {
		return fmt.Errorf("gitcap: write_file requires a non-empty path argument")
	}
	contents := stringArg(args, "contents")
	dest := filepath.Join(c.RepoRoot, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("gitcap: mkdir for %s: %w", rel, err)
	}
	if err := os.WriteFile(dest, []byte(contents), 0o644); err != nil {
		return fmt.Errorf("gitcap: write %s: %w", rel, err)
	}
	c.selfApplied[filepath.ToSlash(rel)] = true
	return nil
}

func (c *Capability) deleteFile(args map[string]any) error {
	rel := stringArg(args, "path")
	if rel == "" {
		return fmt.Errorf("gitcap: workspace.delete requires a non-empty path argument")
	}
	if err := os.Remove(filepath.Join(c.RepoRoot, rel)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("gitcap: delete %s: %w", rel, err)
	}
	c.selfApplied[filepath.ToSlash(rel)] = true
	return nil
}

func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// Snapshot implements verify.Snapshotter: it returns HEAD's sha joined by
// ":" to the trimmed porcelain status text, so before/after evidence fields
// change whenever the set of changed paths does, without a full content walk.
func (c *Capability) Snapshot(ctx context.Context) (string, error) {
	head, err := HeadSHA(c.RepoRoot)
	if err != nil {
		return "", err
	}
	status, err := StatusPorcelain(c.RepoRoot)
	if err != nil {
		return "", err
	}
	return head + ":" + strings.TrimSpace(status), nil
}
