// Command waskr is the CLI front end for the compiler in internal/compiler,
// mirroring spec.md §6's two-subcommand surface (compile, version) in the
// shape of the teacher's own cmd/wazero/wazero.go, rebuilt on cobra/pflag
// per the ambient-stack decision in SPEC_FULL.md §3.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/waskr/waskr/internal/compiler"
	"github.com/waskr/waskr/internal/driver"
	"github.com/waskr/waskr/internal/log"
)

// version is set at release time via -ldflags; "dev" otherwise, matching
// the teacher's version subcommand (cmd/wazero/wazero.go).
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "waskr",
		Short: "waskr compiles a single-module Wasm binary to checkpoint/restore-instrumented IR",
	}
	root.AddCommand(newCompileCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print waskr's version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

func newCompileCmd() *cobra.Command {
	var (
		configPath    string
		outputPath    string
		optimizeLevel int
		enableCR      bool
		optimizeCR    bool
		disableLoopCR bool
		target        string
		lto           bool
		cfProtection  bool
		dumpCallgraph bool
	)

	cmd := &cobra.Command{
		Use:   "compile <input.wasm>",
		Short: "Compile a Wasm module to IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := driver.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config %s: %w", configPath, err)
			}

			opts := driver.Options{
				InputPath:     args[0],
				OutputPath:    outputPath,
				OptimizeLevel: optimizeLevel,
				Target:        target,
				LTO:           lto,
				CFProtection:  cfProtection,
				DumpCallgraph: dumpCallgraph,
				Compiler: compiler.Options{
					EnableCR:      enableCR,
					OptimizeCR:    optimizeCR,
					DisableLoopCR: disableLoopCR,
				},
			}.Merge(cfg)

			return driver.Run(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "waskr.yaml", "Project config file (optional)")
	flags.StringVarP(&outputPath, "output", "o", "", "Output path (stdout if unset)")
	flags.IntVarP(&optimizeLevel, "optimize", "O", 0, "Optimization level 0-3 (accepted, logged; no native backend, spec.md §1)")
	flags.BoolVar(&enableCR, "enable-cr", false, "Instrument the module for checkpoint/restore")
	flags.BoolVar(&optimizeCR, "optimize-cr", false, "Narrow C/R instrumentation to reachability-analyzed sites")
	flags.BoolVar(&disableLoopCR, "disable-loop-cr", false, "Suppress migration points on loop back-edges")
	flags.StringVar(&target, "target", "", "Target triple (accepted, logged; no native backend, spec.md §1)")
	flags.BoolVar(&lto, "lto", false, "Enable LTO (accepted, logged; no native backend, spec.md §1)")
	flags.BoolVar(&cfProtection, "cf-protection", false, "Enable control-flow protection (accepted, logged; no native backend, spec.md §1)")
	flags.BoolVar(&dumpCallgraph, "dump-callgraph", false, "Dump the module's call graph as Graphviz DOT instead of compiling")

	return cmd
}

func init() {
	// The library default (internal/log) is a silent no-op logger; the CLI
	// is the one caller that wants to actually see compiler diagnostics.
	l, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	log.SetLogger(l.Named("waskr"))
}
