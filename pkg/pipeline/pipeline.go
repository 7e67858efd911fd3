// Package pipeline drives fastfile extraction and script decoding over files
// and directory trees.
//
// Each input file is handled on its own: a failure is logged, recorded in
// that file's Result, and the walk moves on to the next file.
package pipeline

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/yoremi/cerberus-go/pkg/binarray"
	"github.com/yoremi/cerberus-go/pkg/config"
	"github.com/yoremi/cerberus-go/pkg/encoding"
	"github.com/yoremi/cerberus-go/pkg/fastfile"
	"github.com/yoremi/cerberus-go/pkg/gsc"
	"github.com/yoremi/cerberus-go/pkg/hashtable"
	"github.com/yoremi/cerberus-go/pkg/snapshot"
)

// Kind classifies an input file by extension.
type Kind int

const (
	KindSkipped Kind = iota
	KindFastFile
	KindScript
)

func (k Kind) String() string {
	switch k {
	case KindFastFile:
		return "fastfile"
	case KindScript:
		return "script"
	default:
		return "skipped"
	}
}

// Classify returns the kind of path from its extension.
func Classify(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ff":
		return KindFastFile
	case ".gsc", ".csc", ".gscc", ".cscc":
		return KindScript
	}
	return KindSkipped
}

// Options configures a Pipeline.
type Options struct {
	Variant  gsc.Variant
	Hashes   map[string]*hashtable.Table
	Encoding encoding.Type
	Mode     gsc.Mode

	OutputDir        string
	ExtractDir       string
	EmitCBOR         bool
	EmitDump         bool
	KeepDecompressed bool

	// Out receives the per-file progress lines. Nil discards them.
	Out io.Writer
}

// OptionsFromConfig resolves cfg into pipeline options, loading the hash
// tables it names.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	v, err := gsc.LookupVariant(cfg.Variant)
	if err != nil {
		return Options{}, err
	}
	mode, err := gsc.ParseMode(cfg.Mode)
	if err != nil {
		return Options{}, err
	}
	enc := encoding.Parse(cfg.Encoding)
	if enc == encoding.Other {
		return Options{}, errors.Errorf("unsupported encoding %q", cfg.Encoding)
	}
	hashes, err := hashtable.LoadSet(cfg.HashDir, cfg.Games)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Variant:          v,
		Hashes:           hashes,
		Encoding:         enc,
		Mode:             mode,
		OutputDir:        cfg.OutputDir,
		ExtractDir:       cfg.ExtractDir,
		EmitCBOR:         cfg.Emits(config.EmitCBOR),
		EmitDump:         cfg.Emits(config.EmitDump),
		KeepDecompressed: cfg.KeepDecompressed,
	}, nil
}

// Result is the outcome of one input file.
type Result struct {
	Path    string
	Kind    Kind
	Outputs []string // files written
	Failed  int      // exports that failed in best-effort mode
	Err     error
}

// Pipeline processes input files with fixed options.
type Pipeline struct {
	opts Options
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Pipeline{opts: opts}
}

// ProcessPath handles a single file, or every file below a directory in
// lexical order. Skipped files produce no Result.
func (p *Pipeline) ProcessPath(path string) []Result {
	info, err := os.Stat(path)
	if err != nil {
		return []Result{{Path: path, Err: errors.Wrapf(err, "cannot open '%s'", path)}}
	}
	if !info.IsDir() {
		if Classify(path) == KindSkipped {
			return nil
		}
		return []Result{p.ProcessFile(path)}
	}

	var results []Result
	err = filepath.WalkDir(path, func(fpath string, d fs.DirEntry, err error) error {
		if err != nil {
			results = append(results, Result{Path: fpath, Err: err})
			return nil
		}
		if d.IsDir() || Classify(fpath) == KindSkipped {
			return nil
		}
		results = append(results, p.ProcessFile(fpath))
		return nil
	})
	if err != nil {
		results = append(results, Result{Path: path, Err: err})
	}
	return results
}

// ProcessFile extracts a fastfile or decodes a script, depending on the
// extension of path.
func (p *Pipeline) ProcessFile(path string) Result {
	res := Result{Path: path, Kind: Classify(path)}
	if res.Kind == KindSkipped {
		return res
	}

	base := filepath.Base(path)
	fmt.Fprintf(p.opts.Out, ": Processing %s...\n", base)
	switch res.Kind {
	case KindFastFile:
		res.Err = p.processFastFile(path, &res)
	case KindScript:
		res.Err = p.processScript(path, &res)
	}

	if res.Err != nil {
		glog.Errorf("%s: %v", path, res.Err)
		fmt.Fprintf(p.opts.Out, ": An error has occurred while processing %s: %v\n", base, res.Err)
		return res
	}
	fmt.Fprintf(p.opts.Out, ": Processed %s successfully.\n", base)
	return res
}

func (p *Pipeline) game() string {
	if p.opts.Variant == nil {
		return "Unknown"
	}
	return p.opts.Variant.Game()
}

func (p *Pipeline) processFastFile(path string, res *Result) error {
	payload, err := fastfile.DecodeFile(path)
	if err != nil {
		return err
	}
	outDir := filepath.Join(p.opts.ExtractDir, p.game())

	if p.opts.KeepDecompressed {
		raw := filepath.Join(outDir, filepath.Base(path)+".output")
		if err := binarray.WriteFile(raw, payload); err != nil {
			return err
		}
		res.Outputs = append(res.Outputs, raw)
	}

	scripts, err := fastfile.ExtractScripts(payload)
	if err != nil {
		return err
	}
	for _, s := range scripts {
		out, err := safeJoin(outDir, s.Name)
		if err != nil {
			return err
		}
		if err := binarray.WriteFile(out, s.Data); err != nil {
			return err
		}
		fmt.Fprintf(p.opts.Out, ": Found %s\n", out)
		res.Outputs = append(res.Outputs, out)
	}
	glog.V(1).Infof("%s: %d scripts extracted", path, len(scripts))
	return nil
}

func (p *Pipeline) processScript(path string, res *Result) error {
	ctx := gsc.Context{
		Hashes:   p.opts.Hashes[p.game()],
		Encoding: p.opts.Encoding,
		Mode:     p.opts.Mode,
	}
	script, err := gsc.LoadFile(path, p.opts.Variant, ctx)
	if err != nil {
		return err
	}
	for _, exp := range script.Exports {
		if exp.Err != nil {
			res.Failed++
		}
	}

	// The script's own path, which may contain directories, names the output.
	name := script.FilePath
	if name == "" {
		name = filepath.Base(path)
	}
	out, err := safeJoin(filepath.Join(p.opts.OutputDir, script.Game), name)
	if err != nil {
		return err
	}

	doc := snapshot.FromScript(script, p.opts.Variant)
	if p.opts.EmitCBOR {
		data, err := snapshot.Marshal(doc)
		if err != nil {
			return errors.Wrap(err, "encoding snapshot")
		}
		if err := binarray.WriteFile(out+".cbor", data); err != nil {
			return err
		}
		res.Outputs = append(res.Outputs, out+".cbor")
	}
	if p.opts.EmitDump {
		var sb strings.Builder
		snapshot.Dump(&sb, doc)
		if err := binarray.WriteFile(out+".dump.txt", []byte(sb.String())); err != nil {
			return err
		}
		res.Outputs = append(res.Outputs, out+".dump.txt")
	}
	return nil
}

// safeJoin joins a name read from file data onto root, refusing names that
// would escape it.
func safeJoin(root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.ReplaceAll(name, "\\", "/")))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("refusing output name %q", name)
	}
	return filepath.Join(root, clean), nil
}
