package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kilnforge/changeforge/internal/changeset"
)

// proposeDoc is the on-disk shape of --config: everything changeset.Propose
// needs to build an AgentConfig, expressed as plain JSON so the CLI never
// has to grow flags for task lists and tool_calls.
type proposeDoc struct {
	Subject       string           `json:"subject"`
	RemoteURL     string           `json:"remote_url"`
	Goal          string           `json:"goal"`
	Intent        string           `json:"intent"`
	Architecture  string           `json:"architecture"`
	DeclaredTiers []string         `json:"declared_tiers"`
	Tasks         []changeset.Task `json:"tasks"`
	BaseState     string           `json:"base_state"`
	BaseStateAt   string           `json:"base_state_at,omitempty"`
}

func cmdPropose(args []string) {
	var configPath string
	var repoPath string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a value")
				os.Exit(1)
			}
			configPath = args[i]
		case "--repo":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--repo requires a value")
				os.Exit(1)
			}
			repoPath = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown arg: %s\n", args[i])
			os.Exit(1)
		}
	}
	if configPath == "" {
		usage()
		os.Exit(1)
	}

	repoRoot, err := repoRootOrCwd(repoPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var doc proposeDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", configPath, err)
		os.Exit(1)
	}

	cfg := changeset.AgentConfig{
		Subject:       doc.Subject,
		RemoteURL:     doc.RemoteURL,
		Goal:          doc.Goal,
		Intent:        doc.Intent,
		Architecture:  doc.Architecture,
		DeclaredTiers: doc.DeclaredTiers,
		Tasks:         doc.Tasks,
		BaseState:     doc.BaseState,
	}
	if doc.BaseStateAt != "" {
		t, err := time.Parse(time.RFC3339, doc.BaseStateAt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "base_state_at: %v\n", err)
			os.Exit(1)
		}
		cfg.BaseStateAt = t
	}

	id, err := changeset.Propose(repoRoot, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("change_set_id=%s\n", id)
	os.Exit(0)
}
