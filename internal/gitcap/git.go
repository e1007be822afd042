// Package gitcap is a reference implementation of capability.Capability
// (spec.md §6): it answers preflight/drift/impact governance queries from
// the feature-graph scanner and the repository's git plumbing, and
// dispatches the executor's tool_calls directly against the working tree.
// Production deployments may swap in a different Capability (a JSON-RPC
// client against a long-lived governance service, for instance) without
// touching the changeset lifecycle engine.
package gitcap

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// CommandError wraps a failed git invocation with its captured streams.
type CommandError struct {
	Args   []string
	Stdout string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// runGit disables background auto-maintenance so repeated governance
// queries during a single changeset lifecycle stay deterministic and don't
// spawn extra long-running helper processes.
func runGit(dir string, args ...string) (string, string, error) {
	base := []string{
		"-C", dir,
		"-c", "maintenance.auto=0",
		"-c", "gc.auto=0",
	}
	cmd := exec.Command("git", append(base, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	outStr := stdout.String()
	errStr := stderr.String()
	if err != nil {
		return outStr, errStr, &CommandError{Args: args, Stdout: outStr, Stderr: errStr, Err: err}
	}
	return outStr, errStr, nil
}

// IsRepo reports whether dir is inside a git working tree.
func IsRepo(dir string) bool {
	out, _, err := runGit(dir, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "true"
}

// HeadSHA returns the current HEAD commit, used as the snapshot identity
// for verification evidence artifacts.
func HeadSHA(dir string) (string, error) {
	out, _, err := runGit(dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// StatusPorcelain returns `git status --porcelain` output, the raw source
// for both drift detection and GetDrift's changed-path list. Untracked files
// are listed one by one (--untracked-files=all) rather than collapsed into
// their top-level directory, so prefix exclusion and per-path matching see
// real file paths.
func StatusPorcelain(dir string) (string, error) {
	out, _, err := runGit(dir, "status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return "", err
	}
	return out, nil
}

// IsClean reports whether the working tree has no uncommitted changes.
func IsClean(dir string) (bool, error) {
	out, err := StatusPorcelain(dir)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

// ChangedPaths parses `git status --porcelain` into a list of repo-relative
// paths in git's output order, skipping anything under excludePrefix.
func ChangedPaths(dir, excludePrefix string) ([]string, error) {
	out, err := StatusPorcelain(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		if path == "" {
			continue
		}
		if arrow := strings.Index(path, " -> "); arrow >= 0 {
			path = path[arrow+4:]
		}
		if excludePrefix != "" && (path == excludePrefix || strings.HasPrefix(path, excludePrefix+"/")) {
			continue
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ApplyPatch applies a unified diff to the working tree.
func ApplyPatch(dir, patch string) error {
	cmd := exec.Command("git", "-C", dir, "apply", "--whitespace=nowarn", "-")
	cmd.Stdin = strings.NewReader(patch)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &CommandError{Args: []string{"apply"}, Stderr: stderr.String(), Err: err}
	}
	return nil
}
