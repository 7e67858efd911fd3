package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/yoremi/cerberus-go/pkg/pipeline"
)

// processCmd extracts fastfiles and decodes scripts, walking directories
var processCmd = &cobra.Command{
	Use:   "process <file|dir>...",
	Short: "Extract fastfiles and decode scripts (.ff .gsc .csc .gscc .cscc)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cfg, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), ": Exporting to: %s\n", cfg.OutputDir)

		var results []pipeline.Result
		for _, arg := range args {
			results = append(results, p.ProcessPath(arg)...)
		}
		return summarize(cmd, results)
	},
}

// summarize prints the totals and fails when any file failed.
func summarize(cmd *cobra.Command, results []pipeline.Result) error {
	failed, partial := 0, 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case r.Failed > 0:
			partial++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), ": %d files processed, %d failed", len(results), failed)
	if partial > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), ", %d with failing exports", partial)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	if failed > 0 {
		return errors.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(processCmd)
}
