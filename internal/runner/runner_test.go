package runner

import (
	"context"
	"strings"
	"testing"
)

func TestRunCapturesStdoutAndExitCode(t *testing.T) {
	root := t.TempDir()
	res, err := Run(context.Background(), root, Step{
		Cmd:       []string{"sh", "-c", "echo hello; exit 3"},
		TimeoutMS: 5000,
	}, []string{"PATH=/usr/bin:/bin"})
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", res.ExitCode)
	}
	if res.StdoutPreview != "hello\n" {
		t.Fatalf("stdout preview = %q", res.StdoutPreview)
	}
	if res.CorrelationID == "" {
		t.Fatal("expected a correlation id")
	}
}

func TestRunKillsOnTimeout(t *testing.T) {
	root := t.TempDir()
	res, err := Run(context.Background(), root, Step{
		Cmd:       []string{"sh", "-c", "sleep 5"},
		TimeoutMS: 50,
	}, []string{"PATH=/usr/bin:/bin"})
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != -1 {
		t.Fatalf("exit code = %d, want -1 on timeout", res.ExitCode)
	}
}

func TestBuildEnvDeniesProxyVarsOnNetworkDeny(t *testing.T) {
	env := buildEnv(Step{
		Network:  NetworkDeny,
		EnvAllow: []string{"HTTP_PROXY", "CUSTOM"},
	}, []string{"PATH=/bin", "HTTP_PROXY=http://evil", "CUSTOM=1"})

	joined := strings.Join(env, " ")
	if strings.Contains(joined, "HTTP_PROXY") {
		t.Fatalf("expected HTTP_PROXY stripped, got %v", env)
	}
	if !strings.Contains(joined, "CUSTOM=1") {
		t.Fatalf("expected CUSTOM passed through allowlist, got %v", env)
	}
	if !strings.Contains(joined, "PATH=/bin") {
		t.Fatalf("expected PATH always inherited, got %v", env)
	}
}

func TestBuildEnvDoesNotInheritArbitraryVars(t *testing.T) {
	env := buildEnv(Step{}, []string{"PATH=/bin", "SECRET=xyz"})
	joined := strings.Join(env, " ")
	if strings.Contains(joined, "SECRET") {
		t.Fatalf("expected ambient SECRET not inherited without allowlist, got %v", env)
	}
}

func TestParseCmdString(t *testing.T) {
	got, err := ParseCmd("go test ./...")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"go", "test", "./..."}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestParseCmdEmptyArrayIsError(t *testing.T) {
	if _, err := ParseCmd([]string{}); err == nil {
		t.Fatal("expected error for empty cmd array")
	}
}
