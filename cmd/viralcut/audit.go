package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reelforge/viralcut/internal/errs"
)

// newAuditCmd implements `viralcut audit --secure`: a tamper audit over
// every blob the configured SNAPSHOT_DIR/ANCHOR_DIR tree has
// registered (spec.md section 6, seed scenario S3).
func newAuditCmd() *cobra.Command {
	var secure bool
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run a tamper audit over the configured version store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !secure {
				return errs.Input(errs.CodeMissingFlag, "", fmt.Errorf("audit requires --secure"))
			}
			ctx := cmd.Context()
			ta, err := newTreeApp(ctx)
			if err != nil {
				return errs.Internal(errs.CodeBackendLoadFailed, "", err)
			}

			report, err := ta.tree.Audit(ctx)
			if err != nil {
				return errs.Internal(errs.CodePlannerError, "", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}

			if !report.Accepted() {
				fmt.Fprintf(os.Stderr, "audit: %d tampered\n", len(report.TamperedFiles))
				os.Exit(1)
			}
			fmt.Fprintln(os.Stderr, "audit: clean")
			return nil
		},
	}
	cmd.Flags().BoolVar(&secure, "secure", false, "run the tamper audit (required)")
	return cmd
}
