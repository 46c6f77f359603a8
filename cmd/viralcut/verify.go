package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reelforge/viralcut/internal/config"
	"github.com/reelforge/viralcut/internal/errs"
)

// newVerifyCmd implements `viralcut verify <path>`: recompute hashes
// for every blob under path, report tampered/missing, exit 0 clean
// or 1 if any issue (spec.md section 6).
func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <path>",
		Short: "Recompute content hashes for a version store and report tampered or missing blobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return errs.Internal(errs.CodeBackendLoadFailed, "", err)
			}
			tree, err := openTreeAt(ctx, args[0], secretKeyBytes(cfg))
			if err != nil {
				return errs.Resource(errs.CodeDiskFull, args[0], err)
			}

			report, err := tree.Audit(ctx)
			if err != nil {
				return errs.Internal(errs.CodePlannerError, args[0], err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}

			if report.Accepted() && len(report.MissingFiles) == 0 {
				fmt.Fprintln(os.Stderr, "verify: clean")
				return nil
			}
			// verify's own exit contract (spec.md 6) is 0 clean / 1 any
			// issue, distinct from the generic Kind->exit-code mapping
			// errs.ExitCode applies to pipeline errors, so it is applied
			// directly here rather than returned through main().
			fmt.Fprintf(os.Stderr, "verify: %d tampered, %d missing\n", len(report.TamperedFiles), len(report.MissingFiles))
			os.Exit(1)
			return nil
		},
	}
	return cmd
}
