package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilnforge/changeforge/internal/gitcap"
	"github.com/kilnforge/changeforge/internal/verify"
	"github.com/kilnforge/changeforge/internal/verifyconfig"
)

func cmdVerify(args []string) {
	var repoPath string
	var profile string
	var configPath string
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
		case "--profile":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--profile requires a value")
				os.Exit(1)
			}
			profile = args[i]
		case "--verification-config":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--verification-config requires a value")
				os.Exit(1)
			}
			configPath = args[i]
		default:
			positional = append(positional, args[i])
		}
	}
	if len(positional) != 1 || profile == "" {
		usage()
		os.Exit(1)
	}
	id := positional[0]

	repoRoot, err := repoRootOrCwd(repoPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if configPath == "" {
		configPath = filepath.Join(repoRoot, "spec", "verification.yaml")
	}

	cfg, err := verifyconfig.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cap := gitcap.New(repoRoot)
	engine := verify.NewEngine(cfg, cap, cap)

	ctx, cleanup := signalCancelContext()
	outcome, err := engine.Run(ctx, repoRoot, id, profile)
	cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("outcome=%s\n", outcome)
	if outcome == verify.OutcomePassed {
		os.Exit(0)
	}
	os.Exit(1)
}
