// Package driver glues the compilation stages together: it reads source
// text, runs the front end, lowers to IR, selects x64 instructions,
// allocates registers, and renders assembly. The core stages do no I/O of
// their own; everything enters and leaves through here.
package driver

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nwmarino/lovelace/internal/diag"
	"github.com/nwmarino/lovelace/internal/ir"
	"github.com/nwmarino/lovelace/internal/lower"
	"github.com/nwmarino/lovelace/internal/mach"
	"github.com/nwmarino/lovelace/internal/sema"
	"github.com/nwmarino/lovelace/internal/syntax"
	"github.com/nwmarino/lovelace/internal/target"
	"github.com/nwmarino/lovelace/internal/x64"
)

// Options configure one compilation.
type Options struct {
	// EmitIR additionally dumps the textual IR to IRSink (and into
	// Result.IR); assembly is still generated.
	EmitIR bool
	IRSink io.Writer

	// DiagSink receives rendered diagnostics; defaults to stderr.
	DiagSink io.Writer

	// Logger receives pass-level debug logging; defaults to a no-op.
	Logger *zap.Logger
}

func (o *Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Result is the outcome of one compilation.
type Result struct {
	// Assembly is the rendered AT&T output. Empty when errors were
	// recorded.
	Assembly []byte

	// IR is the textual IR dump, filled when EmitIR was requested.
	IR string
}

// Compile compiles one source text to assembly. The returned error wraps
// fatal diagnostics and non-fatal error counts alike; no output is produced
// in either case.
func Compile(path, src string, opts Options) (result Result, err error) {
	log := opts.logger()

	sink := opts.DiagSink
	if sink == nil {
		sink = os.Stderr
	}
	diags := diag.New(sink)
	diags.SetReadFile(func(p string) ([]byte, error) {
		if p == path {
			return []byte(src), nil
		}
		return os.ReadFile(p)
	})

	// Fatal diagnostics abort by panicking with a sentinel; translate that
	// into a plain error at the pipeline boundary.
	defer func() {
		if r := recover(); r != nil {
			msg, ok := diag.IsFatal(r)
			if !ok {
				panic(r)
			}
			err = errors.New("fatal: " + msg)
		}
	}()

	log.Debug("parsing", zap.String("path", path))
	parser := syntax.NewParser(path, src, diags)
	unit := parser.ParseUnit()

	log.Debug("analyzing")
	sema.New(unit, diags).Run()

	tgt := target.New(target.ArchX64, target.ABISystemV, target.OSLinux)

	log.Debug("lowering")
	graph := lower.New(unit, tgt, diags).Run()

	for _, fn := range graph.Functions() {
		ir.TrivialDCE(fn)
	}

	if opts.EmitIR {
		result.IR = graph.Format()
		if opts.IRSink != nil {
			if _, werr := io.WriteString(opts.IRSink, result.IR); werr != nil {
				return result, errors.Wrap(werr, "writing IR dump")
			}
		}
	}

	log.Debug("selecting instructions")
	obj := mach.NewObject(graph, tgt)
	for _, fn := range graph.Functions() {
		if !fn.HasBody() {
			continue
		}
		mf := mach.NewFunction(fn, tgt)
		x64.NewSelector(mf, diags).Run()
		obj.AddFunction(mf)
	}

	log.Debug("allocating registers")
	x64.RegisterAnalysis(obj)

	// Render into memory first: a failed compilation must leave no
	// partially written output behind.
	var buf bytes.Buffer
	if werr := x64.NewAsmWriter(obj).Run(&buf); werr != nil {
		return result, werr
	}

	if n := diags.ErrorCount(); n > 0 {
		return result, errors.Errorf("compilation failed with %d error(s)", n)
	}

	result.Assembly = buf.Bytes()
	return result, nil
}

// CompileFile compiles the file at path and writes the assembly to the file
// named output.
func CompileFile(path, output string, opts Options) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading input")
	}

	result, err := Compile(path, string(src), opts)
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, result.Assembly, 0o644); err != nil {
		return errors.Wrap(err, "writing output")
	}
	return nil
}
