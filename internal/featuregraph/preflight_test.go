package featuregraph

import "testing"

func TestPreflightAllowsDocOnlyChanges(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "hello\n")

	g, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Preflight(root, g, PreflightRequest{ChangedPaths: []string{"README.md"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.SafetyTier != "tier1" || !res.Allowed {
		t.Fatalf("got tier=%s allowed=%v", res.SafetyTier, res.Allowed)
	}
}

func TestPreflightDanglingIDBlocksAndIsTier3(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x.go", "// Feature: NOT_REGISTERED\n\npackage x\n")

	g, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Preflight(root, g, PreflightRequest{ChangedPaths: []string{"x.go"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.SafetyTier != "tier3" || res.Allowed {
		t.Fatalf("got tier=%s allowed=%v", res.SafetyTier, res.Allowed)
	}
}

func TestPreflightNonDocCodeIsTier2(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "spec/features.yaml", `
features:
  - id: A_B
    title: t
    spec: spec/a.md
`)
	writeFile(t, root, "spec/a.md", "# a\n")
	writeFile(t, root, "a.go", "// Feature: A_B\n\npackage a\n")

	g, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Preflight(root, g, PreflightRequest{ChangedPaths: []string{"a.go"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.SafetyTier != "tier2" || !res.Allowed {
		t.Fatalf("got tier=%s allowed=%v", res.SafetyTier, res.Allowed)
	}
}
