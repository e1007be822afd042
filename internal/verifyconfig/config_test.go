package verifyconfig

import "testing"

const validYAML = `
version: 1
toolchains:
  go:
    required:
      - cmd: "go version"
defaults:
  timeout_ms: 60000
  network: deny
skills:
  lint:
    determinism: D1
    tier: 1
    steps:
      - name: golangci-lint
        cmd: golangci-lint run ./...
  unit_tests:
    determinism: D1
    tier: 1
    steps:
      - name: go_test
        cmd: ["go", "test", "./..."]
        network: allow
profiles:
  fast:
    include: [lint]
  full:
    include: [lint, unit_tests, lint]
`

func TestParseValidConfig(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Version != 1 {
		t.Fatalf("version = %d", cfg.Version)
	}
	lint, ok := cfg.Skill("lint")
	if !ok {
		t.Fatal("expected lint skill")
	}
	if lint.Steps[0].TimeoutMS != 60000 {
		t.Fatalf("expected inherited timeout_ms default, got %d", lint.Steps[0].TimeoutMS)
	}
	if lint.Steps[0].Network != "deny" {
		t.Fatalf("expected inherited network default, got %q", lint.Steps[0].Network)
	}

	unit, _ := cfg.Skill("unit_tests")
	if unit.Steps[0].Network != "allow" {
		t.Fatalf("expected step override network=allow, got %q", unit.Steps[0].Network)
	}

	full, err := cfg.ResolveProfile("full")
	if err != nil {
		t.Fatal(err)
	}
	if len(full) != 2 {
		t.Fatalf("expected de-duplicated profile, got %v", full)
	}
}

func TestParseRejectsBadDeterminism(t *testing.T) {
	bad := `
version: 1
skills:
  lint:
    determinism: D3
    tier: 1
    steps:
      - name: s1
        cmd: "echo ok"
`
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for invalid determinism class")
	}
}

func TestParseRejectsBadTier(t *testing.T) {
	bad := `
version: 1
skills:
  lint:
    determinism: D1
    tier: 3
    steps:
      - name: s1
        cmd: "echo ok"
`
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for invalid skill tier")
	}
}

func TestResolveProfilePreservesDeclaredOrder(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatal(err)
	}
	full, err := cfg.ResolveProfile("full")
	if err != nil {
		t.Fatal(err)
	}
	if len(full) != 2 || full[0] != "lint" || full[1] != "unit_tests" {
		t.Fatalf("expected [lint unit_tests] in declared order, got %v", full)
	}
}

func TestParseRejectsUnknownSkillInProfile(t *testing.T) {
	bad := `
version: 1
skills:
  lint:
    determinism: D1
    tier: 1
    steps:
      - name: s1
        cmd: "echo ok"
profiles:
  full:
    include: [missing]
`
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for unknown skill in profile includes")
	}
}

func TestParseRejectsBadEnvName(t *testing.T) {
	bad := `
version: 1
skills:
  lint:
    determinism: D1
    tier: 1
    steps:
      - name: s1
        cmd: "echo ok"
        env_allowlist: ["lower_case"]
`
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for lowercase env allowlist name")
	}
}

func TestParseRejectsDuplicateStepName(t *testing.T) {
	bad := `
version: 1
skills:
  lint:
    determinism: D1
    tier: 1
    steps:
      - name: s1
        cmd: "echo ok"
      - name: s1
        cmd: "echo ok"
`
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for duplicate step name")
	}
}

func TestParseRejectsEmptyCmdArray(t *testing.T) {
	bad := `
version: 1
skills:
  lint:
    determinism: D1
    tier: 1
    steps:
      - name: s1
        cmd: []
`
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for empty cmd array")
	}
}

func TestStepCmdDecodesStringForm(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatal(err)
	}
	lint, _ := cfg.Skill("lint")
	cmd, err := lint.Steps[0].Cmd()
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := cmd.(string); !ok || s != "golangci-lint run ./..." {
		t.Fatalf("got %#v", cmd)
	}
}

func TestSkillLevelOverrideSitsBetweenDefaultsAndStep(t *testing.T) {
	cfg, err := Parse([]byte(`
version: 1
defaults:
  timeout_ms: 60000
  read_only: tracked
skills:
  build:
    determinism: D1
    tier: 1
    read_only: off
    timeout_ms: 120000
    steps:
      - name: compile
        cmd: "go build ./..."
      - name: bench
        cmd: "go test -bench=."
        timeout_ms: 300000
`))
	if err != nil {
		t.Fatal(err)
	}
	build, _ := cfg.Skill("build")
	if build.Steps[0].ReadOnly != "off" {
		t.Fatalf("expected step to inherit skill-level read_only=off, got %q", build.Steps[0].ReadOnly)
	}
	if build.Steps[0].TimeoutMS != 120000 {
		t.Fatalf("expected step to inherit skill-level timeout_ms, got %d", build.Steps[0].TimeoutMS)
	}
	if build.Steps[1].TimeoutMS != 300000 {
		t.Fatalf("expected step-level override to beat skill-level, got %d", build.Steps[1].TimeoutMS)
	}
}

func TestEnvLayersMergeDefaultsSkillAndStep(t *testing.T) {
	cfg, err := Parse([]byte(`
version: 1
defaults:
  env:
    A: default
    B: default
skills:
  build:
    determinism: D1
    tier: 1
    env:
      B: skill
      C: skill
    steps:
      - name: compile
        cmd: "go build ./..."
        env:
          C: step
`))
	if err != nil {
		t.Fatal(err)
	}
	build, _ := cfg.Skill("build")
	env := build.Steps[0].Env
	if env["A"] != "default" || env["B"] != "skill" || env["C"] != "step" {
		t.Fatalf("expected layered env merge, got %#v", env)
	}
}

func TestToolchainRequiredChecksParse(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatal(err)
	}
	goChain, ok := cfg.Toolchains["go"]
	if !ok {
		t.Fatal("expected go toolchain")
	}
	if len(goChain.Required) != 1 {
		t.Fatalf("expected one required check, got %d", len(goChain.Required))
	}
	cmd, err := goChain.Required[0].Cmd()
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := cmd.(string); !ok || s != "go version" {
		t.Fatalf("got %#v", cmd)
	}
}

func TestDefaultTimeoutMsMatchesSpec(t *testing.T) {
	cfg, err := Parse([]byte(`
version: 1
skills:
  lint:
    determinism: D1
    tier: 1
    steps:
      - name: s1
        cmd: "echo ok"
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Defaults.TimeoutMS != 600000 {
		t.Fatalf("expected default timeout_ms 600000, got %d", cfg.Defaults.TimeoutMS)
	}
	lint, _ := cfg.Skill("lint")
	if lint.Steps[0].TimeoutMS != 600000 {
		t.Fatalf("expected step to inherit default timeout_ms 600000, got %d", lint.Steps[0].TimeoutMS)
	}
}

func TestStepCmdDecodesArrayForm(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatal(err)
	}
	unit, _ := cfg.Skill("unit_tests")
	cmd, err := unit.Steps[0].Cmd()
	if err != nil {
		t.Fatal(err)
	}
	parts, ok := cmd.([]string)
	if !ok || len(parts) != 3 {
		t.Fatalf("got %#v", cmd)
	}
}
