package changeset

import "testing"

func TestProposeRejectsEmptySubject(t *testing.T) {
	root := t.TempDir()
	_, err := Propose(root, AgentConfig{
		RemoteURL:     "https://github.com/o/r",
		Goal:          "goal",
		DeclaredTiers: []string{"tier1"},
		Tasks:         []Task{{ID: "t1", ToolCalls: []ToolCall{{ToolName: "gov.preflight"}}}},
	})
	if err == nil {
		t.Fatal("expected error for empty subject")
	}
}

func TestProposeRejectsEmptyTasks(t *testing.T) {
	root := t.TempDir()
	_, err := Propose(root, AgentConfig{
		Subject:       "x",
		RemoteURL:     "https://github.com/o/r",
		Goal:          "goal",
		DeclaredTiers: []string{"tier1"},
	})
	if err == nil {
		t.Fatal("expected error for empty tasks")
	}
}

func TestProposeRejectsUnderDeclaredTier(t *testing.T) {
	root := t.TempDir()
	_, err := Propose(root, AgentConfig{
		Subject:       "x",
		RemoteURL:     "https://github.com/o/r",
		Goal:          "goal",
		DeclaredTiers: []string{"tier1"},
		Tasks: []Task{{
			ID:        "t1",
			ToolCalls: []ToolCall{{ToolName: "workspace.delete"}},
		}},
	})
	if err == nil {
		t.Fatal("expected error: declared tier1 below computed tier3")
	}
}

func TestProposeWritesPinnedPlanHash(t *testing.T) {
	root := t.TempDir()
	id := proposeSimpleTask(t, root, "write_file", "tier2")
	dir := Dir(root, id)

	var meta Meta
	if err := readJSONFile(metaPath(dir), &meta); err != nil {
		t.Fatal(err)
	}
	var plan Plan
	if err := readJSONFile(planPath(dir), &plan); err != nil {
		t.Fatal(err)
	}
	recomputed, err := hashCanonical(plan)
	if err != nil {
		t.Fatal(err)
	}
	if recomputed != meta.PlanSHA256 {
		t.Fatalf("plan hash mismatch: %s vs %s", recomputed, meta.PlanSHA256)
	}
	if meta.ChangeSetID != id {
		t.Fatalf("meta.change_set_id %q != folder id %q", meta.ChangeSetID, id)
	}
}

func TestProposeDerivesSequentialIDs(t *testing.T) {
	root := t.TempDir()
	id1 := proposeSimpleTask(t, root, "write_file", "tier2")
	id2 := proposeSimpleTask(t, root, "write_file", "tier2")
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %s twice", id1)
	}
	if id1 != "001-add-a-config-flag" {
		t.Fatalf("got %q", id1)
	}
	if id2 != "002-add-a-config-flag" {
		t.Fatalf("got %q", id2)
	}
}
