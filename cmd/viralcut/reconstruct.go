package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/reelforge/viralcut/internal/coordinator"
	"github.com/reelforge/viralcut/internal/errs"
)

// newReconstructCmd implements `viralcut reconstruct <srt> --lang --style`:
// the end-to-end C1->C6 pipeline, CutPlan JSON to stdout (spec.md
// section 6).
func newReconstructCmd() *cobra.Command {
	var lang string
	var style string
	cmd := &cobra.Command{
		Use:   "reconstruct <srt>",
		Short: "Run the end-to-end reconstruction pipeline over an SRT file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return errs.Input(errs.CodeMalformedSRT, args[0], err)
			}

			ctx := cmd.Context()
			return runWithApp(ctx, func(ctx context.Context, a *app) error {
				override := lang
				if override == "auto" {
					override = ""
				}
				res, err := a.coord.Submit(ctx, coordinator.Job{SRT: raw, LangOverride: override, Style: style})
				if err != nil {
					return err
				}

				out := struct {
					Plan       any    `json:"cut_plan"`
					Validation any    `json:"validation"`
					VersionID  string `json:"version_id"`
				}{Plan: res.Plan, Validation: res.Validation, VersionID: res.VersionNode.ID}

				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			})
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "auto", "language override: auto|zh|en")
	cmd.Flags().StringVar(&style, "style", "viral", "rewrite style: viral|formal|...")
	return cmd
}
