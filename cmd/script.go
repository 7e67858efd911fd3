package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/yoremi/cerberus-go/pkg/gsc"
	"github.com/yoremi/cerberus-go/pkg/pipeline"
	"github.com/yoremi/cerberus-go/pkg/snapshot"
)

var ScriptFormat string

// scriptCmd decodes one script and writes its model to stdout
var scriptCmd = &cobra.Command{
	Use:   "script <file>",
	Short: "Decode a single script and print its model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts, err := pipeline.OptionsFromConfig(cfg)
		if err != nil {
			return err
		}
		ctx := gsc.Context{
			Hashes:   opts.Hashes[opts.Variant.Game()],
			Encoding: opts.Encoding,
			Mode:     opts.Mode,
		}
		script, err := gsc.LoadFile(args[0], opts.Variant, ctx)
		if err != nil {
			return err
		}

		doc := snapshot.FromScript(script, opts.Variant)
		switch ScriptFormat {
		case "dump":
			snapshot.Dump(cmd.OutOrStdout(), doc)
			return nil
		case "cbor":
			return snapshot.WriteCBOR(cmd.OutOrStdout(), doc)
		}
		return errors.Errorf("unknown format %q (want dump or cbor)", ScriptFormat)
	},
}

func init() {
	rootCmd.AddCommand(scriptCmd)

	scriptCmd.Flags().StringVarP(&ScriptFormat, "format", "f", "dump", "output format: dump, cbor")
}
