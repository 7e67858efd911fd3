package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/yoremi/cerberus-go/pkg/binarray"
	"github.com/yoremi/cerberus-go/pkg/fastfile"
	"github.com/yoremi/cerberus-go/pkg/pipeline"
)

var DecompressOutput string

// ffCmd groups the fastfile commands
var ffCmd = &cobra.Command{
	Use:   "ff",
	Short: "Fastfile container tools",
}

var ffDecompressCmd = &cobra.Command{
	Use:   "decompress <file.ff>",
	Short: "Write the decompressed payload of a fastfile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := fastfile.DecodeFile(args[0])
		if err != nil {
			return err
		}
		out := DecompressOutput
		if out == "" {
			out = args[0] + ".output"
		}
		if err := binarray.WriteFile(out, payload); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), ": Decompressed %s (0x%x bytes) to %s\n", args[0], len(payload), out)
		return nil
	},
}

var ffExtractCmd = &cobra.Command{
	Use:   "extract <file.ff>...",
	Short: "Extract compiled scripts from fastfiles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, _, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		var results []pipeline.Result
		for _, arg := range args {
			if pipeline.Classify(arg) != pipeline.KindFastFile {
				return errors.Errorf("%s is not a fastfile", arg)
			}
			results = append(results, p.ProcessFile(arg))
		}
		return summarize(cmd, results)
	},
}

func init() {
	rootCmd.AddCommand(ffCmd)
	ffCmd.AddCommand(ffDecompressCmd)
	ffCmd.AddCommand(ffExtractCmd)

	ffDecompressCmd.Flags().StringVarP(&DecompressOutput, "out", "O", "", "payload output file (default <file>.output)")
}
