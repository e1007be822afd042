package gitcap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCapabilityDriftTracksWorkingTree(t *testing.T) {
	dir := initTestRepo(t)
	cap := New(dir)
	ctx := context.Background()

	drifted, err := cap.Drift(ctx, "validate")
	if err != nil {
		t.Fatal(err)
	}
	if drifted {
		t.Fatal("expected clean repo to report no drift")
	}

	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	drifted, err = cap.Drift(ctx, "validate")
	if err != nil {
		t.Fatal(err)
	}
	if !drifted {
		t.Fatal("expected drift after untracked write")
	}
}

func TestCapabilityPreflightAllowsCleanRepo(t *testing.T) {
	dir := initTestRepo(t)
	cap := New(dir)
	allowed, err := cap.Preflight(context.Background(), "validate")
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("expected preflight to allow a repo with no registered features")
	}
}

func TestCapabilityImpactNotHighForEmptyPaths(t *testing.T) {
	dir := initTestRepo(t)
	cap := New(dir)
	impact, err := cap.Impact(context.Background(), "validate", nil)
	if err != nil {
		t.Fatal(err)
	}
	if impact != "none" && impact != "low" {
		t.Fatalf("got %q", impact)
	}
}

func TestCallToolWriteAndDeleteFile(t *testing.T) {
	dir := initTestRepo(t)
	cap := New(dir)
	ctx := context.Background()

	if _, err := cap.CallTool(ctx, "write_file", map[string]any{"path": "out.txt", "contents": "hi"}); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "hi" {
		t.Fatalf("got %q", b)
	}

	if _, err := cap.CallTool(ctx, "workspace.delete", map[string]any{"path": "out.txt"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.txt")); !os.IsNotExist(err) {
		t.Fatal("expected out.txt to be deleted")
	}
}

func TestCallToolWriteInvalidatesFeatureGraphCache(t *testing.T) {
	dir := initTestRepo(t)
	cap := New(dir)
	ctx := context.Background()

	allowed, err := cap.Preflight(ctx, "validate")
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("expected preflight to allow a clean repo before any write")
	}

	if _, err := cap.CallTool(ctx, "write_file", map[string]any{
		"path":     "bad.go",
		"contents": "// Feature: NOTREGISTERED\npackage bad\n",
	}); err != nil {
		t.Fatal(err)
	}

	allowed, err = cap.Preflight(ctx, "validate")
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Fatal("expected preflight to refuse after write_file introduces a dangling feature id; stale cache not invalidated")
	}
}

func TestCallToolRejectsUnknownName(t *testing.T) {
	dir := initTestRepo(t)
	cap := New(dir)
	if _, err := cap.CallTool(context.Background(), "rm.rf.everything", nil); err == nil {
		t.Fatal("expected unknown tool to be rejected")
	}
}

func TestCallToolSnapshotReturnsHeadSHA(t *testing.T) {
	dir := initTestRepo(t)
	cap := New(dir)
	v, err := cap.CallTool(context.Background(), "snapshot.create", nil)
	if err != nil {
		t.Fatal(err)
	}
	sha, ok := v.(string)
	if !ok || len(sha) != 40 {
		t.Fatalf("got %#v", v)
	}
}

func TestSnapshotChangesWithWorkingTree(t *testing.T) {
	dir := initTestRepo(t)
	cap := New(dir)
	ctx := context.Background()

	s1, err := cap.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	s2, err := cap.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s1 == s2 {
		t.Fatal("expected snapshot to change after working tree write")
	}
}
