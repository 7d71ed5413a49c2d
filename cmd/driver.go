package cmd

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"midas/common"
	"midas/generate"
	"midas/interp"
	"midas/mir"
	"midas/mirload"
	"midas/profile"
	"midas/report"

	"github.com/llir/llvm/ir"
)

// Driver represents the state of a single invocation of the generator.
type Driver struct {
	// programPath is the path to the program description being compiled.
	programPath string

	// profile is the build profile selected for this invocation.
	profile *profile.Profile

	prog *mir.Program
	mod  *ir.Module
}

// NewDriver creates a new driver for the program at programPath.  The profile
// is loaded from the directory containing the program.
func NewDriver(programPath, profileName string) *Driver {
	absPath, err := filepath.Abs(programPath)
	if err != nil {
		report.ReportFatal("error calculating absolute path: %s", err.Error())
		return nil
	}

	prof, err := profile.Load(filepath.Dir(absPath), profileName)
	if err != nil {
		report.ReportFatal("failed to load profile: %s", err.Error())
		return nil
	}

	return &Driver{programPath: absPath, profile: prof}
}

// Load decodes and resolves the program.
func (d *Driver) Load() bool {
	report.ReportBeginPhase("Loading")

	prog, err := mirload.LoadFile(d.programPath)
	if err != nil {
		report.ReportEndPhase(false)
		report.ReportStdError("Load Error", err)
		return false
	}

	d.prog = prog
	report.ReportEndPhase(true)
	return true
}

// Generate translates the loaded program into an LLVM module.  Internal
// compiler errors propagate as panics to the deferred `report.CatchErrors`.
func (d *Driver) Generate() {
	report.ReportBeginPhase("Generating")

	g := generate.NewGenerator(d.prog, d.profile.Options())
	d.mod = g.Generate()

	report.ReportEndPhase(true)
}

// Write outputs the generated module as textual LLVM IR and returns the path
// it was written to.
func (d *Driver) Write(outputPath string) (string, bool) {
	report.ReportBeginPhase("Writing")

	if outputPath == "" {
		outputPath = d.profile.Output(d.programPath)
	}

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			report.ReportEndPhase(false)
			report.ReportStdError("Output Error", err)
			return "", false
		}
	}

	if err := ioutil.WriteFile(outputPath, []byte(d.mod.String()), 0644); err != nil {
		report.ReportEndPhase(false)
		report.ReportStdError("Output Error", err)
		return "", false
	}

	report.ReportEndPhase(true)
	return outputPath, true
}

// Run executes the entry function of the generated module in the
// interpreter and displays its result.
func (d *Driver) Run() bool {
	report.ReportBeginPhase("Running")

	m := interp.New(d.mod, os.Stdout)
	result, err := m.Call(common.EntryFuncName)
	if err != nil {
		report.ReportEndPhase(false)
		report.ReportStdError("Runtime Error", err)
		return false
	}

	report.ReportEndPhase(true)

	if text, ok := d.formatResult(m, result); ok {
		report.PrintInfoMessage("Result", text)
	}

	if n := m.LiveObjects(); n > 0 {
		report.ReportWarning("Leak", "%d heap object(s) still live after `%s` returned", n, common.EntryFuncName)
	}

	return true
}

// formatResult renders the value returned by the entry function.  Void
// results are not displayed.
func (d *Driver) formatResult(m *interp.Machine, result interp.Value) (string, bool) {
	var entry *mir.Function
	for _, fn := range d.prog.Functions {
		if fn.Prototype.Name == common.EntryFuncName {
			entry = fn
			break
		}
	}

	if entry == nil {
		return "", false
	}

	switch entry.Prototype.Return.Referend.(type) {
	case *mir.Void:
		return "", false
	case *mir.Bool:
		return fmt.Sprint(result.(int64) != 0), true
	case *mir.Str:
		s, err := m.StrContents(result.(interp.Pointer))
		if err != nil {
			return err.Error(), true
		}

		return fmt.Sprintf("%q", s), true
	default:
		return fmt.Sprint(result), true
	}
}
