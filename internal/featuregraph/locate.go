package featuregraph

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Selector kinds accepted by Locate (spec.md §4.7 "locate").
const (
	SelectorFeatureID = "feature_id"
	SelectorSpecPath  = "spec_path"
	SelectorFilePath  = "file_path"
)

// LocatedFile is one file attributed to a Locate match. Confidence reflects
// how the attribution was made: "exact" for the registry spec path itself,
// "high" for files the scanner classified as impl or test for the feature.
type LocatedFile struct {
	Path       string `json:"path"`
	Role       string `json:"role"`
	Confidence string `json:"confidence"`
}

// LocateMatch is one feature matched by a Locate selector, with its
// attributed files and any violations recorded against it.
type LocateMatch struct {
	FeatureID  string        `json:"feature_id"`
	SpecPath   string        `json:"spec_path"`
	Files      []LocatedFile `json:"files"`
	Violations []Violation   `json:"violations"`
}

// Locate resolves a selector against g and returns the matching features
// with their attributed files, sorted by feature id. selectorType is one of
// SelectorFeatureID, SelectorSpecPath, SelectorFilePath; selectorValue is
// matched after normalizing path separators to '/'.
func Locate(g *Graph, selectorType, selectorValue string) ([]LocateMatch, error) {
	var matches []LocateMatch

	switch selectorType {
	case SelectorFeatureID:
		for _, f := range g.Features {
			if f.FeatureID == selectorValue {
				matches = append(matches, buildLocateMatch(g, f))
			}
		}
	case SelectorSpecPath:
		value := filepath.ToSlash(selectorValue)
		for _, f := range g.Features {
			if f.SpecPath == value {
				matches = append(matches, buildLocateMatch(g, f))
			}
		}
	case SelectorFilePath:
		value := filepath.ToSlash(selectorValue)
		for _, f := range g.Features {
			if f.SpecPath == value || containsString(f.ImplFiles, value) || containsString(f.TestFiles, value) {
				matches = append(matches, buildLocateMatch(g, f))
			}
		}
	default:
		return nil, fmt.Errorf("featuregraph: invalid selector type %q", selectorType)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].FeatureID < matches[j].FeatureID })
	return matches, nil
}

func buildLocateMatch(g *Graph, f Feature) LocateMatch {
	files := make([]LocatedFile, 0, 1+len(f.ImplFiles)+len(f.TestFiles))
	files = append(files, LocatedFile{Path: f.SpecPath, Role: "spec", Confidence: "exact"})
	for _, p := range f.ImplFiles {
		files = append(files, LocatedFile{Path: p, Role: "implementation", Confidence: "high"})
	}
	for _, p := range f.TestFiles {
		files = append(files, LocatedFile{Path: p, Role: "test", Confidence: "high"})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Role != files[j].Role {
			return files[i].Role < files[j].Role
		}
		return files[i].Path < files[j].Path
	})

	return LocateMatch{
		FeatureID:  f.FeatureID,
		SpecPath:   f.SpecPath,
		Files:      files,
		Violations: violationsForFeature(g, f.FeatureID),
	}
}

func violationsForFeature(g *Graph, featureID string) []Violation {
	var out []Violation
	for _, v := range g.Violations {
		if v.FeatureID == featureID {
			out = append(out, v)
		}
	}
	return out
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
