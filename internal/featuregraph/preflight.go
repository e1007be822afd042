package featuregraph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PreflightRequest bundles the inputs spec.md §4.8 names.
type PreflightRequest struct {
	Intent       string
	Mode         string
	ChangedPaths []string
	SnapshotID   string
}

// PolicyHook lets a caller inject additional violations (e.g. edits under
// generated/ paths) before the safety tier is computed.
type PolicyHook func(req PreflightRequest) []Violation

var docExtensions = map[string]bool{
	".md":  true,
	".txt": true,
	".png": true,
	".jpg": true,
}

// PreflightResult is the outcome of a preflight evaluation.
type PreflightResult struct {
	Violations []Violation `json:"violations"`
	SafetyTier string      `json:"safety_tier"`
	Allowed    bool        `json:"allowed"`
}

// Preflight evaluates req against g (and the repository on disk, to parse
// each changed path's header), per spec.md §4.8.
func Preflight(repoRoot string, g *Graph, req PreflightRequest, hooks ...PolicyHook) (PreflightResult, error) {
	reg, _, err := LoadRegistry(repoRoot)
	if err != nil {
		return PreflightResult{}, err
	}

	var violations []Violation
	allDocs := true

	for _, rel := range req.ChangedPaths {
		relSlash := filepath.ToSlash(rel)
		abs := filepath.Join(repoRoot, rel)

		if !docExtensions[strings.ToLower(filepath.Ext(relSlash))] {
			allDocs = false
		}

		info, statErr := os.Stat(abs)
		if statErr != nil || info.IsDir() || !IsEligible(relSlash) {
			continue
		}

		f, openErr := os.Open(abs)
		if openErr != nil {
			continue
		}
		hdr, headerErrs, parseErr := ParseHeader(f)
		_ = f.Close()
		if parseErr != nil {
			continue
		}

		for _, he := range headerErrs {
			violations = append(violations, Violation{
				Code:     CodeInvalidHeaderFormat,
				Severity: SeverityError,
				Path:     relSlash,
				Message:  fmt.Sprintf("%s (line %d)", he.Message, he.Line),
			})
		}

		if hdr.FeatureID != "" {
			entry, known := reg.Find(hdr.FeatureID)
			if !known {
				violations = append(violations, Violation{
					Code:      CodeDanglingFeatureID,
					Severity:  SeverityError,
					Path:      relSlash,
					FeatureID: hdr.FeatureID,
					Message:   fmt.Sprintf("file declares feature id %q which is not registered", hdr.FeatureID),
				})
			} else if hdr.SpecPath != "" && hdr.SpecPath != entry.Spec {
				violations = append(violations, Violation{
					Code:      CodeSpecPathMismatch,
					Severity:  SeverityWarning,
					Path:      relSlash,
					FeatureID: hdr.FeatureID,
					Message:   fmt.Sprintf("file declares spec path %q, registry has %q", hdr.SpecPath, entry.Spec),
				})
			}
		}
	}

	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		violations = append(violations, hook(req)...)
	}

	hasError := false
	for _, v := range violations {
		if v.Severity == SeverityError {
			hasError = true
			break
		}
	}

	var safetyTier string
	switch {
	case hasError:
		safetyTier = "tier3"
	case allDocs && len(req.ChangedPaths) > 0:
		safetyTier = "tier1"
	default:
		safetyTier = "tier2"
	}

	return PreflightResult{
		Violations: violations,
		SafetyTier: safetyTier,
		Allowed:    len(violations) == 0 && safetyTier != "tier3",
	}, nil
}
