package main

import (
	"fmt"
	"os"

	"github.com/kilnforge/changeforge/internal/changeset"
	"github.com/kilnforge/changeforge/internal/gitcap"
)

func cmdExecute(args []string) {
	var repoPath string
	var breakStaleLock bool
	var positional []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--repo":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--repo requires a value")
				os.Exit(1)
			}
			repoPath = args[i]
		case "--break-stale-lock":
			breakStaleLock = true
		default:
			positional = append(positional, args[i])
		}
	}
	if len(positional) != 1 {
		usage()
		os.Exit(1)
	}
	id := positional[0]

	repoRoot, err := repoRootOrCwd(repoPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cap := gitcap.New(repoRoot)
	ctx, cleanup := signalCancelContext()
	defer cleanup()

	// The executor's entry precondition is validation.state=="valid"
	// (spec.md §4.3); re-validate immediately before executing so the CLI's
	// "execute" verb is a single re-validate-then-run operation rather than
	// requiring a separate library call the reference CLI doesn't expose.
	if vstate, err := changeset.Validate(ctx, repoRoot, id, cap); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	} else if vstate == changeset.StateFailed {
		fmt.Fprintf(os.Stderr, "changeset %s failed validation; see 05-status.json\n", id)
		os.Exit(1)
	}

	state, err := changeset.Execute(ctx, repoRoot, id, cap, changeset.ExecuteOptions{
		BreakStaleLock: breakStaleLock,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("state=%s\n", state)
	if state == changeset.StateExecuted {
		os.Exit(0)
	}
	os.Exit(1)
}
