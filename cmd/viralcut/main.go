// Command viralcut is the operational CLI for the C1-C6 reconstruction
// pipeline (spec.md section 6): verify/snapshot/audit/reconstruct.
// Grounded on the reference backend's composition-root style
// (internal/app: one place wires every collaborator, no global
// singleton state) adapted from a long-lived server process to a
// short-lived CLI invocation.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reelforge/viralcut/internal/errs"
)

func main() {
	root := &cobra.Command{
		Use:           "viralcut",
		Short:         "Reconstruct, version, and validate viral re-cuts from SRT subtitle timelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newVerifyCmd(),
		newSnapshotCmd(),
		newAuditCmd(),
		newReconstructCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errs.ExitCode(err))
	}
}

// runWithApp wires an *app, hands it to fn, and guarantees Close runs
// even if fn returns early.
func runWithApp(ctx context.Context, fn func(context.Context, *app) error) error {
	a, err := newApp(ctx)
	if err != nil {
		return errs.Internal(errs.CodeBackendLoadFailed, "", err)
	}
	defer a.Close()
	return fn(ctx, a)
}
