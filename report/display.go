package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"
)

var (
	SuccessColorFG = pterm.FgLightGreen
	SuccessStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	WarnColorFG    = pterm.FgYellow
	WarnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG    = SuccessColorFG
	InfoStyleBG    = SuccessStyleBG
)

const icePostlude = `This error was not supposed to happen: the input program violates an
invariant an earlier compiler phase should have established.`

// displayICE displays an internal compiler error message.
func displayICE(message string) {
	fmt.Print("\n")
	ErrorStyleBG.Print("Internal Compiler Error")
	ErrorColorFG.Println(" " + message)
	InfoColorFG.Println(icePostlude)
	fmt.Println()
}

// displayFatal displays a fatal error message.
func displayFatal(message string) {
	ErrorStyleBG.Print("Fatal Error")
	ErrorColorFG.Println(" " + message)
	fmt.Println()
}

// displayStdError displays a standard Go error.
func displayStdError(tag string, err error) {
	ErrorStyleBG.Print(tag)
	ErrorColorFG.Println(" " + err.Error())
}

// -----------------------------------------------------------------------------

// PrintInfoMessage prints an informational message to the user.
func PrintInfoMessage(tag, msg string) {
	InfoStyleBG.Print(tag)
	InfoColorFG.Println(" " + msg)
}

// phaseSpinner stores the current phase spinner.
var phaseSpinner *pterm.SpinnerPrinter
var currentPhase string
var phaseStartTime time.Time

const maxPhaseLength = len("Generating")

// ReportBeginPhase displays the beginning of a compilation phase.  It only
// displays anything at verbose log level.
func ReportBeginPhase(phase string) {
	if rep.logLevel < LogLevelVerbose {
		return
	}

	currentPhase = phase
	phaseText := phase + "..." + strings.Repeat(" ", maxPhaseLength-len(phase)+2)
	phaseSpinner = pterm.DefaultSpinner.WithStyle(pterm.NewStyle(InfoColorFG))

	phaseSpinner.SuccessPrinter = &pterm.PrefixPrinter{
		MessageStyle: pterm.NewStyle(pterm.FgDefault),
		Prefix: pterm.Prefix{
			Style: SuccessStyleBG,
			Text:  "Done",
		},
	}

	phaseSpinner.FailPrinter = &pterm.PrefixPrinter{
		MessageStyle: pterm.NewStyle(pterm.FgDefault),
		Prefix: pterm.Prefix{
			Style: ErrorStyleBG,
			Text:  "Fail",
		},
	}

	phaseSpinner.Start(phaseText)
	phaseStartTime = time.Now()
}

// ReportEndPhase displays the end of the current compilation phase.
func ReportEndPhase(success bool) {
	if phaseSpinner == nil {
		return
	}

	padding := strings.Repeat(" ", maxPhaseLength-len(currentPhase)+2)
	if success {
		phaseSpinner.Success(
			currentPhase+padding,
			fmt.Sprintf("(%.3fs)", time.Since(phaseStartTime).Seconds()),
		)
	} else {
		phaseSpinner.Fail(currentPhase + padding)
	}

	phaseSpinner = nil
}

// ReportFinished displays the concluding message: where the output went or
// that something failed along the way.
func ReportFinished(outputPath string) {
	if rep.logLevel < LogLevelVerbose {
		return
	}

	fmt.Print("\n")
	if AnyErrors() {
		ErrorColorFG.Println("Oh no! Generation failed.")
	} else {
		SuccessColorFG.Print("All done! ")
		fmt.Print("Output written to ")
		InfoColorFG.Println(outputPath)
	}
}

// displayWarning displays a warning message.
func displayWarning(tag, message string) {
	WarnStyleBG.Print(tag)
	WarnColorFG.Println(" " + message)
}
