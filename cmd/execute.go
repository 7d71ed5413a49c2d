package cmd

import (
	"os"

	"midas/common"
	"midas/mirload"
	"midas/report"

	"github.com/ComedicChimera/olive"
	"github.com/kr/pretty"
)

// Execute is the main entry point for the `midas` CLI utility
func Execute() {
	defer report.CatchErrors()

	// set up the argument parser and all its extended commands and arguments
	cli := olive.NewCLI("midas", "midas generates LLVM IR from Midas programs", true)
	logLvlArg := cli.AddSelectorArg("loglevel", "ll", "the compiler log level", false, []string{"silent", "error", "warn", "verbose"})
	logLvlArg.SetDefaultValue("verbose")

	buildCmd := cli.AddSubcommand("build", "generate LLVM IR for a program", true)
	buildCmd.AddPrimaryArg("program-path", "the path to the program to build", true)
	buildCmd.AddStringArg("profile", "p", "the name of the profile to build", false)
	buildCmd.AddStringArg("output", "o", "the path to write the IR to", false)

	runCmd := cli.AddSubcommand("run", "generate and interpret a program", true)
	runCmd.AddPrimaryArg("program-path", "the path to the program to run", true)
	runCmd.AddStringArg("profile", "p", "the name of the profile to run with", false)

	dumpCmd := cli.AddSubcommand("dump", "print the decoded program", true)
	dumpCmd.AddPrimaryArg("program-path", "the path to the program to dump", true)

	cli.AddSubcommand("version", "print the Midas version", false)

	// run the argument parser
	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		report.ReportFatal(err.Error())
	}

	report.InitReporter(report.ParseLogLevel(result.Arguments["loglevel"].(string)))

	// process the inputed command line
	subcmdName, subResult, _ := result.Subcommand()
	switch subcmdName {
	case "build":
		execBuildCommand(subResult)
	case "run":
		execRunCommand(subResult)
	case "dump":
		execDumpCommand(subResult)
	case "version":
		report.PrintInfoMessage("Midas Version", common.MidasVersion)
	}
}

// execBuildCommand executes the build subcommand
func execBuildCommand(result *olive.ArgParseResult) {
	programPath, _ := result.PrimaryArg()
	d := NewDriver(programPath, stringArg(result, "profile"))

	outputPath := ""
	if d.Load() {
		d.Generate()
		outputPath, _ = d.Write(stringArg(result, "output"))
	}

	report.ReportFinished(outputPath)
	if report.AnyErrors() {
		os.Exit(1)
	}
}

// execRunCommand executes the run subcommand
func execRunCommand(result *olive.ArgParseResult) {
	programPath, _ := result.PrimaryArg()
	d := NewDriver(programPath, stringArg(result, "profile"))

	if !d.Load() {
		os.Exit(1)
	}

	d.Generate()
	if !d.Run() {
		os.Exit(1)
	}
}

// execDumpCommand executes the dump subcommand
func execDumpCommand(result *olive.ArgParseResult) {
	programPath, _ := result.PrimaryArg()

	prog, err := mirload.LoadFile(programPath)
	if err != nil {
		report.ReportFatal("failed to load program: %s", err.Error())
	}

	pretty.Println(prog)
}

// stringArg returns the value of an optional string argument or the empty
// string if it was not given.
func stringArg(result *olive.ArgParseResult, name string) string {
	if val, ok := result.Arguments[name]; ok {
		return val.(string)
	}

	return ""
}
