// Command changeforge is the reference CLI over the changeset governance
// engine (spec.md §6): propose, execute, and verify changesets against a
// source repository, backed by a gitcap.Capability talking to the real
// working tree.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const version = "0.1.0"

func signalCancelContext() (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(context.Background())
	sigCh := make(chan os.Signal, 1)
	stopCh := make(chan struct{})
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for {
			select {
			case sig := <-sigCh:
				cancel(fmt.Errorf("stopped by signal %s", sig.String()))
			case <-stopCh:
				return
			}
		}
	}()
	cleanup := func() {
		signal.Stop(sigCh)
		close(stopCh)
		cancel(nil)
	}
	return ctx, cleanup
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("changeforge %s\n", version)
		os.Exit(0)
	case "propose":
		cmdPropose(os.Args[2:])
	case "execute":
		cmdExecute(os.Args[2:])
	case "verify":
		cmdVerify(os.Args[2:])
	case "graph":
		cmdGraph(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  changeforge --version")
	fmt.Fprintln(os.Stderr, "  changeforge propose --config <agent-config.json> [--repo <path>]")
	fmt.Fprintln(os.Stderr, "  changeforge execute <changeset_id> [--repo <path>] [--break-stale-lock]")
	fmt.Fprintln(os.Stderr, "  changeforge verify <changeset_id> [--profile <name>] [--repo <path>] [--verification-config <path>]")
	fmt.Fprintln(os.Stderr, "  changeforge graph overview [--repo <path>]")
	fmt.Fprintln(os.Stderr, "  changeforge graph locate --type <feature_id|spec_path|file_path> --value <selector> [--repo <path>]")
}

// repoRootOrCwd resolves --repo to an absolute-enough working directory,
// defaulting to the process's current directory.
func repoRootOrCwd(repoPath string) (string, error) {
	if repoPath != "" {
		return repoPath, nil
	}
	return os.Getwd()
}
