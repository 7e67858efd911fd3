// Package config provides configuration and path resolution for the
// cerberus tools.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// Version is the cerberus-go version string
	Version = "1.0.0"

	// DefaultVariant is the script variant used when none is configured
	DefaultVariant = "bo3"

	// DefaultEncoding is the string-table encoding
	DefaultEncoding = "UTF-8"

	// DefaultOutputDir receives decoded script models
	DefaultOutputDir = "ProcessedScripts"

	// DefaultExtractDir receives scripts extracted from fastfiles
	DefaultExtractDir = "ExtractedScripts"

	// hashMarker is the file whose presence identifies a hash directory
	hashMarker = "BlackOps3.txt"
)

// Emit targets for decoded scripts.
const (
	EmitCBOR = "cbor"
	EmitDump = "dump"
)

// Config holds the settings shared by every command.
type Config struct {
	HashDir    string   `toml:"hash_dir" yaml:"hash_dir"`
	OutputDir  string   `toml:"output_dir" yaml:"output_dir"`
	ExtractDir string   `toml:"extract_dir" yaml:"extract_dir"`
	Variant    string   `toml:"variant" yaml:"variant"`
	Encoding   string   `toml:"encoding" yaml:"encoding"`
	Mode       string   `toml:"mode" yaml:"mode"`
	Emit       []string `toml:"emit" yaml:"emit"`
	Games      []string `toml:"games" yaml:"games"`

	// KeepDecompressed writes each fastfile's decompressed payload next to
	// the extracted scripts.
	KeepDecompressed bool `toml:"keep_decompressed" yaml:"keep_decompressed"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HashDir:    Prefix(),
		OutputDir:  DefaultOutputDir,
		ExtractDir: DefaultExtractDir,
		Variant:    DefaultVariant,
		Encoding:   DefaultEncoding,
		Mode:       "strict",
		Emit:       []string{EmitCBOR},
		Games:      []string{"BlackOps3"},
	}
}

// Load reads a TOML or YAML file over the defaults. The format is chosen by
// extension; keys missing from the file keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "cannot read config '%s'", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parsing %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parsing %s", path)
		}
	default:
		return cfg, errors.Errorf("unknown config format '%s' (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
	return cfg, cfg.Validate()
}

// Validate checks values that have a closed set of choices.
func (c Config) Validate() error {
	for _, e := range c.Emit {
		if e != EmitCBOR && e != EmitDump {
			return errors.Errorf("unknown emit target %q", e)
		}
	}
	if len(c.Games) == 0 {
		return errors.New("no games configured")
	}
	return nil
}

// Emits reports whether target is enabled.
func (c Config) Emits(target string) bool {
	for _, e := range c.Emit {
		if e == target {
			return true
		}
	}
	return false
}

// prefixCache stores the resolved hash directory
var prefixCache string

// Prefix returns the directory holding the hash tables.
// It searches in order:
//  1. $CERBERUS_HOME/hashes and $CERBERUS_HOME
//  2. Executable directory + hashes/, then the executable directory
//  3. The working directory
//  4. ~/.cerberus/hashes and ~/.cerberus
func Prefix() string {
	if prefixCache != "" {
		return prefixCache
	}

	env := os.Getenv("CERBERUS_HOME")
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	execDir := filepath.Dir(os.Args[0])

	searchPaths := []string{
		filepath.Join(env, "hashes"),
		env,
		filepath.Join(execDir, "hashes"),
		execDir,
		".",
		filepath.Join(home, ".cerberus", "hashes"),
		filepath.Join(home, ".cerberus"),
	}

	for _, p := range searchPaths {
		if p == "" || p == "hashes" && env == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(p, hashMarker)); err == nil {
			prefixCache = p
			return p
		}
	}

	// Fallback: the working directory, where the tables traditionally live
	prefixCache = "."
	return prefixCache
}
