package featuregraph

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kilnforge/changeforge/internal/canonjson"
)

var defaultIgnoreGlobs = []string{
	".git/**",
	"changes/**",
	"node_modules/**",
	"vendor/**",
	"**/*.generated.*",
}

// testSuffixes, together with isTestPath's directory check, identify a file
// as a test file rather than an impl file: either its relative path has a
// tests/ or test/ directory component, or its base name starts or ends with
// one of these entries (a conventional test suffix, or the test_ prefix).
var testSuffixes = []string{
	"_test.go", ".test.ts", ".test.tsx", ".test.js", ".spec.ts", ".spec.js", "_test.py", "test_",
}

func isTestPath(relPath string) bool {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	for _, p := range parts[:max0(len(parts)-1)] {
		if p == "tests" || p == "test" {
			return true
		}
	}
	base := filepath.Base(relPath)
	for _, suf := range testSuffixes {
		if strings.HasSuffix(base, suf) || strings.HasPrefix(base, suf) {
			return true
		}
	}
	return false
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Scan walks repoRoot honoring ignore globs, parses header directives in
// every eligible file, cross-checks them against spec/features.yaml, and
// returns a deterministic Graph.
func Scan(repoRoot string) (*Graph, error) {
	reg, registryViolations, err := LoadRegistry(repoRoot)
	if err != nil {
		return nil, err
	}
	ignoreGlobs := loadIgnoreGlobs(repoRoot)

	nodes := map[string]*Feature{}
	for _, e := range reg.ByID {
		nodes[e.ID] = &Feature{
			FeatureID:  e.ID,
			Title:      e.Title,
			SpecPath:   e.Spec,
			Governance: e.Governance,
			Owner:      e.Owner,
			Group:      e.Group,
			DependsOn:  append([]string(nil), e.DependsOn...),
		}
	}

	violations := append([]Violation(nil), registryViolations...)

	walkErr := filepath.Walk(repoRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(repoRoot, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if matchesAny(ignoreGlobs, rel, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !IsEligible(rel) {
			return nil
		}

		f, openErr := os.Open(path)
		if openErr != nil {
			return openErr
		}
		hdr, headerErrs, parseErr := ParseHeader(f)
		_ = f.Close()
		if parseErr != nil {
			return parseErr
		}

		for _, he := range headerErrs {
			violations = append(violations, Violation{
				Code:     CodeInvalidHeaderFormat,
				Severity: SeverityError,
				Path:     rel,
				Message:  fmt.Sprintf("%s (line %d)", he.Message, he.Line),
			})
		}

		if hdr.FeatureID == "" {
			return nil
		}

		entry, known := reg.Find(hdr.FeatureID)
		if !known {
			violations = append(violations, Violation{
				Code:      CodeDanglingFeatureID,
				Severity:  SeverityError,
				Path:      rel,
				FeatureID: hdr.FeatureID,
				Message:   fmt.Sprintf("file declares feature id %q which is not registered", hdr.FeatureID),
			})
			return nil
		}

		if hdr.SpecPath != "" && hdr.SpecPath != entry.Spec {
			violations = append(violations, Violation{
				Code:      CodeSpecPathMismatch,
				Severity:  SeverityWarning,
				Path:      rel,
				FeatureID: hdr.FeatureID,
				Message:   fmt.Sprintf("file declares spec path %q, registry has %q", hdr.SpecPath, entry.Spec),
			})
		}

		node := nodes[hdr.FeatureID]
		if isTestPath(rel) {
			node.TestFiles = append(node.TestFiles, rel)
		} else {
			node.ImplFiles = append(node.ImplFiles, rel)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("featuregraph: scan: %w", walkErr)
	}

	for _, v := range violations {
		if v.FeatureID == "" {
			continue
		}
		if n, ok := nodes[v.FeatureID]; ok {
			n.Violations = append(n.Violations, v.Code)
		}
	}

	features := make([]Feature, 0, len(nodes))
	for _, n := range nodes {
		sort.Strings(n.ImplFiles)
		sort.Strings(n.TestFiles)
		sort.Strings(n.Violations)
		features = append(features, *n)
	}
	sort.Slice(features, func(i, j int) bool { return features[i].FeatureID < features[j].FeatureID })

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Code != violations[j].Code {
			return violations[i].Code < violations[j].Code
		}
		return violations[i].Path < violations[j].Path
	})

	g := &Graph{
		SchemaVersion: SchemaVersion,
		Features:      features,
		Violations:    violations,
	}

	fp, err := fingerprint(g)
	if err != nil {
		return nil, err
	}
	g.GraphFingerprint = fp
	return g, nil
}

// fingerprint computes "sha256:" + hex(SHA-256(canonical(graph without the
// fingerprint field))).
func fingerprint(g *Graph) (string, error) {
	clone := *g
	clone.GraphFingerprint = ""
	h, err := canonjson.Hash(clone)
	if err != nil {
		return "", fmt.Errorf("featuregraph: fingerprint: %w", err)
	}
	return "sha256:" + h, nil
}

func loadIgnoreGlobs(repoRoot string) []string {
	globs := append([]string(nil), defaultIgnoreGlobs...)
	b, err := os.ReadFile(filepath.Join(repoRoot, ".changesetignore"))
	if err != nil {
		return globs
	}
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		globs = append(globs, line)
	}
	return globs
}

func matchesAny(globs []string, relPath string, isDir bool) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, relPath); ok {
			return true
		}
		if isDir {
			if ok, _ := doublestar.Match(strings.TrimSuffix(g, "/**"), relPath); ok {
				return true
			}
		}
	}
	return false
}
