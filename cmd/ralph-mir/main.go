package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-mir/pkg/interp"
	"github.com/raymyers/ralph-mir/pkg/mir"
	"github.com/raymyers/ralph-mir/pkg/mirload"
	"github.com/raymyers/ralph-mir/pkg/pipeline"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Debug flags for dumping MIR between passes
var (
	dInput    bool
	dSepConst bool
	dTunnel   bool
	dSimplify bool
	dAll      bool
)

// Pipeline options
var (
	passList string
	runArgs  string
	verbose  bool
)

// ErrMismatch indicates the transformed body behaved differently from the input
var ErrMismatch = errors.New("behaviour changed by pipeline")

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Normalize single-dash dump flags to double-dash for pflag compatibility
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ralph-mir: %v\n", err)
		return 1
	}
	return 0
}

// debugFlagNames lists all dump flags that accept single-dash style
var debugFlagNames = []string{"dinput", "dsepconst", "dtunnel", "dsimplify", "dall"}

// normalizeFlags converts single-dash flags like -dsepconst to --dsepconst
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

// dumpPassFlags maps pass names to the flag that dumps after them
var dumpPassFlags = map[string]*bool{
	"separate-const-switch": &dSepConst,
	"tunnel":                &dTunnel,
	"remove-unreachable":    &dSimplify,
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ralph-mir [file]",
		Short: "ralph-mir runs MIR optimization passes over YAML-described function bodies",
		Long: `ralph-mir loads function bodies in MIR form from a YAML file, runs an
ordered list of CFG passes over them (by default separate-const-switch)
and dumps the IR between passes.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			return doPipeline(args[0], out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	// Add dump flags
	rootCmd.Flags().BoolVarP(&dInput, "dinput", "", false, "Dump MIR as loaded")
	rootCmd.Flags().BoolVarP(&dSepConst, "dsepconst", "", false, "Dump MIR after separate-const-switch")
	rootCmd.Flags().BoolVarP(&dTunnel, "dtunnel", "", false, "Dump MIR after tunnel")
	rootCmd.Flags().BoolVarP(&dSimplify, "dsimplify", "", false, "Dump MIR after remove-unreachable")
	rootCmd.Flags().BoolVarP(&dAll, "dall", "", false, "Dump MIR after every pass")

	// Add pipeline flags
	rootCmd.Flags().StringVar(&passList, "passes", pipeline.DefaultPasses,
		"Comma-separated passes to run (known: "+strings.Join(pipeline.Names(), ", ")+")")
	rootCmd.Flags().StringVar(&runArgs, "run", "", "Interpret each function before and after the passes with these comma-separated integer arguments")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Report block counts per pass on stderr")

	return rootCmd
}

// dumpOutputFilename returns the dump filename for a stage:
// input.yaml -> input.<stage>.mir
func dumpOutputFilename(filename, stage string) string {
	ext := filepath.Ext(filename)
	if ext == ".yaml" || ext == ".yml" {
		filename = filename[:len(filename)-len(ext)]
	}
	return filename + "." + stage + ".mir"
}

// dumpBody writes body to the stage's dump file and to out
func dumpBody(filename, stage string, body *mir.Body, out io.Writer, files map[string]*os.File) error {
	outFile, ok := files[stage]
	if !ok {
		outputFilename := dumpOutputFilename(filename, stage)
		f, err := os.Create(outputFilename)
		if err != nil {
			return fmt.Errorf("error creating %s: %w", outputFilename, err)
		}
		files[stage] = f
		outFile = f
	}

	// Print to the file
	mir.NewPrinter(outFile).PrintBody(body)

	// Also print to stdout for convenience
	fmt.Fprintf(out, "// %s\n", stage)
	mir.NewPrinter(out).PrintBody(body)
	return nil
}

// parseRunArgs parses the --run argument list
func parseRunArgs(s string) ([]int64, error) {
	var args []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseInt(part, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("bad --run argument %q: %w", part, err)
		}
		args = append(args, v)
	}
	return args, nil
}

// doPipeline loads filename, runs the selected passes and writes dumps
func doPipeline(filename string, out, errOut io.Writer) error {
	prog, err := mirload.LoadFile(filename)
	if err != nil {
		return err
	}

	p, err := pipeline.Parse(passList)
	if err != nil {
		return err
	}
	if verbose {
		p.Trace = errOut
	}

	files := make(map[string]*os.File)
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	var dumpErr error
	p.DumpAll = dAll
	for name, flag := range dumpPassFlags {
		if *flag {
			p.DumpAfter[name] = true
		}
	}
	p.Dump = func(pass string, body *mir.Body) {
		if err := dumpBody(filename, pass, body, out, files); err != nil && dumpErr == nil {
			dumpErr = err
		}
	}

	var evalArgs []int64
	if runArgs != "" {
		if evalArgs, err = parseRunArgs(runArgs); err != nil {
			return err
		}
	}

	for _, body := range prog.Bodies {
		if dInput {
			if err := dumpBody(filename, "input", body, out, files); err != nil {
				return err
			}
		}

		var original *mir.Body
		if runArgs != "" {
			original = body.Clone()
		}

		p.Run(body)
		if dumpErr != nil {
			return dumpErr
		}
		if err := body.Validate(); err != nil {
			return fmt.Errorf("pipeline produced a malformed body: %w", err)
		}

		if original != nil {
			if err := compareRuns(original, body, evalArgs, out); err != nil {
				return err
			}
		}
	}

	return nil
}

// compareRuns interprets both versions of a body and reports the result
func compareRuns(before, after *mir.Body, args []int64, out io.Writer) error {
	var in interp.Interp
	want, errBefore := in.Eval(before, args...)
	got, errAfter := in.Eval(after, args...)

	if errBefore != nil || errAfter != nil {
		if (errBefore == nil) != (errAfter == nil) {
			return fmt.Errorf("%s: %w: before: %v, after: %v", before.Name, ErrMismatch, errBefore, errAfter)
		}
		fmt.Fprintf(out, "%s: error: %v\n", before.Name, errAfter)
		return nil
	}
	if want.Return != got.Return || want.Discriminant != got.Discriminant {
		return fmt.Errorf("%s: %w: returned %d before, %d after", before.Name, ErrMismatch, want.Return, got.Return)
	}
	if a, b := effectLog(want.Effects), effectLog(got.Effects); a != b {
		return fmt.Errorf("%s: %w: calls before [%s], after [%s]", before.Name, ErrMismatch, a, b)
	}
	fmt.Fprintf(out, "%s = %d (%d blocks executed)\n", before.Name, got.Return, got.Steps)
	return nil
}

func effectLog(effects []interp.Effect) string {
	parts := make([]string, len(effects))
	for i, e := range effects {
		parts[i] = e.String()
	}
	return strings.Join(parts, "; ")
}
