package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/yoremi/cerberus-go/pkg/config"
	"github.com/yoremi/cerberus-go/pkg/pipeline"
)

// Persistent flags shared by every command
var (
	ConfigFile string
	HashDir    string
	Variant    string
	OutputDir  string
	ExtractDir string
	Encoding   string
	BestEffort bool
	Emit       []string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "cerberus",
	Short:        "Black Ops III script extractor and decoder",
	Long:         "Extracts compiled GSC/CSC scripts from fastfiles and decodes them into a serialized model.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// glog reads its flags from the Go flag set, which cobra already filled.
		_ = flag.CommandLine.Parse(nil)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	defer glog.Flush()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cerberus %s\n", config.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.PersistentFlags().StringVarP(&ConfigFile, "config", "c", "", "config file (.toml, .yaml)")
	rootCmd.PersistentFlags().StringVar(&HashDir, "hashes", "", "directory holding <Game>.txt hash tables")
	rootCmd.PersistentFlags().StringVarP(&Variant, "variant", "V", config.DefaultVariant, "script variant (bo3, bo3-lastgen)")
	rootCmd.PersistentFlags().StringVarP(&OutputDir, "output", "o", config.DefaultOutputDir, "decoded script output directory")
	rootCmd.PersistentFlags().StringVar(&ExtractDir, "extract-dir", config.DefaultExtractDir, "fastfile extraction directory")
	rootCmd.PersistentFlags().StringVarP(&Encoding, "encoding", "e", config.DefaultEncoding, "string table encoding")
	rootCmd.PersistentFlags().BoolVar(&BestEffort, "best-effort", false, "keep decoding after a failing export")
	rootCmd.PersistentFlags().StringSliceVar(&Emit, "emit", []string{config.EmitCBOR}, "decoded outputs: cbor, dump")
}

// loadConfig merges the config file, if any, with the flags set on cmd.
// Flags given explicitly win over the file.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if ConfigFile != "" {
		var err error
		if cfg, err = config.Load(ConfigFile); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("hashes") {
		cfg.HashDir = HashDir
	}
	if flags.Changed("variant") {
		cfg.Variant = Variant
	}
	if flags.Changed("output") {
		cfg.OutputDir = OutputDir
	}
	if flags.Changed("extract-dir") {
		cfg.ExtractDir = ExtractDir
	}
	if flags.Changed("encoding") {
		cfg.Encoding = Encoding
	}
	if flags.Changed("best-effort") && BestEffort {
		cfg.Mode = "best-effort"
	}
	if flags.Changed("emit") {
		cfg.Emit = Emit
	}
	glog.V(1).Infof("config: %+v", cfg)
	return cfg, cfg.Validate()
}

// newPipeline builds a pipeline from the effective configuration, printing
// progress to the command's output.
func newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cfg, err
	}
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return nil, cfg, err
	}
	opts.Out = cmd.OutOrStdout()
	return pipeline.New(opts), cfg, nil
}
