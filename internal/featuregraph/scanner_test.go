package featuregraph

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanMergesRegistryAndHeaders(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "spec/features.yaml", `
features:
  - id: AUTH_LOGIN
    title: Login flow
    spec: spec/auth.md
`)
	writeFile(t, root, "spec/auth.md", "# Auth\n")
	writeFile(t, root, "internal/auth/login.go", "// Feature: AUTH_LOGIN\n// Spec: spec/auth.md\n\npackage auth\n")
	writeFile(t, root, "internal/auth/login_test.go", "// Feature: AUTH_LOGIN\n\npackage auth\n")

	g, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(g.Features))
	}
	f := g.Features[0]
	if f.FeatureID != "AUTH_LOGIN" {
		t.Fatalf("got %q", f.FeatureID)
	}
	if len(f.ImplFiles) != 1 || len(f.TestFiles) != 1 {
		t.Fatalf("got impl=%v test=%v", f.ImplFiles, f.TestFiles)
	}
	if g.GraphFingerprint == "" {
		t.Fatal("expected non-empty fingerprint")
	}
}

func TestScanDanglingFeatureID(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "internal/x/x.go", "// Feature: NOT_REGISTERED\n\npackage x\n")

	g, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, v := range g.Violations {
		if v.Code == CodeDanglingFeatureID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected DANGLING_FEATURE_ID violation")
	}
}

func TestScanFingerprintDeterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "spec/features.yaml", `
features:
  - id: A_B
    title: t
    spec: spec/a.md
`)
	writeFile(t, root, "spec/a.md", "# a\n")
	writeFile(t, root, "a.go", "// Feature: A_B\n\npackage a\n")

	g1, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	g2, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if g1.GraphFingerprint != g2.GraphFingerprint {
		t.Fatalf("fingerprint not deterministic: %s vs %s", g1.GraphFingerprint, g2.GraphFingerprint)
	}
}

func TestScanInvalidHeaderFormat(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "// Feature: not-valid-id\n\npackage a\n")

	g, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, v := range g.Violations {
		if v.Code == CodeInvalidHeaderFormat {
			found = true
		}
	}
	if !found {
		t.Fatal("expected INVALID_HEADER_FORMAT violation")
	}
}
