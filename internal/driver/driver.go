// Package driver orchestrates one compile invocation end to end: it is the
// layer cmd/waskr calls into, kept separate from the CLI so the same
// pipeline is reachable from a test without going through cobra (spec.md §6
// names the CLI as an external collaborator; SPEC_FULL.md §2 gives the
// orchestration itself its own package for that reason).
package driver

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/waskr/waskr/internal/compiler"
	"github.com/waskr/waskr/internal/log"
)

// Options is the fully-resolved set of knobs a single compile invocation
// runs with. Target, LTO, and CFProtection are accepted and logged but do
// not change codegen: spec.md §1 places native target-machine selection,
// object emission, and linking out of scope, so there is no backend left
// for them to steer (see DESIGN.md).
type Options struct {
	InputPath     string
	OutputPath    string
	OptimizeLevel int
	Target        string
	LTO           bool
	CFProtection  bool
	DumpCallgraph bool

	Compiler compiler.Options
}

// Run reads InputPath, compiles it, and writes the result to OutputPath (or
// stdout if unset). waskr has no native backend (spec.md §1): "the result"
// is each function's synthesized IR rendered through its builder's Format,
// in the shape a future lowering pass would consume.
func Run(opts Options) error {
	logger := log.Logger()
	logger.Info("compiling",
		zap.String("input", opts.InputPath),
		zap.Int("optimize_level", opts.OptimizeLevel),
		zap.String("target", opts.Target),
		zap.Bool("lto", opts.LTO),
		zap.Bool("cf_protection", opts.CFProtection),
		zap.Bool("enable_cr", opts.Compiler.EnableCR))

	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.InputPath, err)
	}

	if opts.DumpCallgraph {
		dot, err := compiler.DOTCallGraph(data)
		if err != nil {
			return err
		}
		return writeOutput(opts.OutputPath, []byte(dot))
	}

	cm, err := compiler.Compile(data, opts.Compiler)
	if err != nil {
		logger.Error("compile failed", zap.Error(err))
		return err
	}

	out, closeFn, err := openOutput(opts.OutputPath)
	if err != nil {
		return err
	}
	defer closeFn()

	for _, fn := range cm.Functions {
		fmt.Fprintf(out, "; function %d (%s)\n", fn.Index, fn.Name)
		fmt.Fprint(out, fn.Builder.Format())
	}
	fmt.Fprintln(out, "; entry point")
	fmt.Fprint(out, cm.Entry.Format())
	if cm.StoreGlobals != nil {
		fmt.Fprintln(out, "; store_globals")
		fmt.Fprint(out, cm.StoreGlobals.Format())
	}
	if cm.StoreTable != nil {
		fmt.Fprintln(out, "; store_table")
		fmt.Fprint(out, cm.StoreTable.Format())
	}

	logger.Info("compiled", zap.Int("functions", len(cm.Functions)))
	return nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func writeOutput(path string, data []byte) error {
	out, closeFn, err := openOutput(path)
	if err != nil {
		return err
	}
	defer closeFn()
	_, err = out.Write(data)
	return err
}

// Merge layers cfg's values under already-parsed CLI flag values: any field
// left at its zero value on opts falls back to cfg, so the CLI always wins
// when both set the same knob (SPEC_FULL.md §3).
func (o Options) Merge(cfg *Config) Options {
	if o.OptimizeLevel == 0 {
		o.OptimizeLevel = cfg.OptimizeLevel
	}
	if o.Target == "" {
		o.Target = cfg.Target
	}
	o.Compiler.EnableCR = o.Compiler.EnableCR || cfg.EnableCR
	o.Compiler.OptimizeCR = o.Compiler.OptimizeCR || cfg.OptimizeCR
	o.Compiler.DisableLoopCR = o.Compiler.DisableLoopCR || cfg.DisableLoopCR
	o.LTO = o.LTO || cfg.LTO
	o.CFProtection = o.CFProtection || cfg.CFProtection
	return o
}
