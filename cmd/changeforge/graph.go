package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kilnforge/changeforge/internal/featuregraph"
)

func cmdGraph(args []string) {
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}
	switch args[0] {
	case "overview":
		cmdGraphOverview(args[1:])
	case "locate":
		cmdGraphLocate(args[1:])
	default:
		usage()
		os.Exit(1)
	}
}

func cmdGraphOverview(args []string) {
	var repoPath string
	for i := 0; i < len(args); i++ {
		if args[i] == "--repo" {
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--repo requires a value")
				os.Exit(1)
			}
			repoPath = args[i]
		}
	}

	repoRoot, err := repoRootOrCwd(repoPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	g, err := featuregraph.Scan(repoRoot)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	printJSON(featuregraph.Overview(g))
}

func cmdGraphLocate(args []string) {
	var repoPath, selectorType, selectorValue string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--repo":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--repo requires a value")
				os.Exit(1)
			}
			repoPath = args[i]
		case "--type":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--type requires a value")
				os.Exit(1)
			}
			selectorType = args[i]
		case "--value":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--value requires a value")
				os.Exit(1)
			}
			selectorValue = args[i]
		}
	}
	if selectorType == "" || selectorValue == "" {
		usage()
		os.Exit(1)
	}

	repoRoot, err := repoRootOrCwd(repoPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	g, err := featuregraph.Scan(repoRoot)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	matches, err := featuregraph.Locate(g, selectorType, selectorValue)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	printJSON(matches)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
