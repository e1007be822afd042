package featuregraph

import "sort"

// FeatureOverview is a compact per-feature summary suited to a quick
// governance status check (spec.md §4.7 "overview") without walking the
// full Graph.
type FeatureOverview struct {
	FeatureID      string `json:"feature_id"`
	Governance     string `json:"governance,omitempty"`
	SpecPath       string `json:"spec_path"`
	ImplFileCount  int    `json:"impl_files_count"`
	TestFileCount  int    `json:"test_files_count"`
	ViolationCount int    `json:"violation_count"`
}

// Overview returns a sorted per-feature summary of g.
func Overview(g *Graph) []FeatureOverview {
	out := make([]FeatureOverview, 0, len(g.Features))
	for _, f := range g.Features {
		out = append(out, FeatureOverview{
			FeatureID:      f.FeatureID,
			Governance:     f.Governance,
			SpecPath:       f.SpecPath,
			ImplFileCount:  len(f.ImplFiles),
			TestFileCount:  len(f.TestFiles),
			ViolationCount: len(f.Violations),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FeatureID < out[j].FeatureID })
	return out
}
