package featuregraph

import "testing"

func TestOverviewSummarizesEachFeature(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "spec/features.yaml", `
features:
  - id: AUTH_LOGIN
    title: Login flow
    spec: spec/auth.md
    governance: tier2
  - id: AUTH_LOGOUT
    title: Logout flow
    spec: spec/logout.md
`)
	writeFile(t, root, "spec/auth.md", "# Auth\n")
	writeFile(t, root, "spec/logout.md", "# Logout\n")
	writeFile(t, root, "internal/auth/login.go", "// Feature: AUTH_LOGIN\n// Spec: spec/auth.md\n\npackage auth\n")
	writeFile(t, root, "internal/auth/login_test.go", "// Feature: AUTH_LOGIN\n\npackage auth\n")
	writeFile(t, root, "internal/auth/logout.go", "// Feature: AUTH_LOGOUT\n\npackage auth\n")

	g, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}

	overview := Overview(g)
	if len(overview) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(overview))
	}
	if overview[0].FeatureID != "AUTH_LOGIN" || overview[1].FeatureID != "AUTH_LOGOUT" {
		t.Fatalf("expected sorted by feature id, got %+v", overview)
	}
	if overview[0].Governance != "tier2" {
		t.Fatalf("got governance %q", overview[0].Governance)
	}
	if overview[0].ImplFileCount != 1 || overview[0].TestFileCount != 1 {
		t.Fatalf("got %+v", overview[0])
	}
}

func TestOverviewEmptyGraph(t *testing.T) {
	root := t.TempDir()
	g, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if overview := Overview(g); len(overview) != 0 {
		t.Fatalf("expected empty overview, got %+v", overview)
	}
}
