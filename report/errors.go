package report

import (
	"fmt"
	"os"
)

// InternalError is raised when the generator detects that its input violates
// an invariant some earlier compiler phase was supposed to establish.  These
// are never user-facing diagnostics: they always indicate a compiler bug.
type InternalError struct {
	Message string
}

func (ie *InternalError) Error() string {
	return "internal compiler error: " + ie.Message
}

// ICE raises an internal compiler error by panicking with an *InternalError.
// Translation is aborted immediately; the panic is caught by CatchErrors at
// the top of the driver.
func ICE(msg string, args ...interface{}) {
	panic(&InternalError{Message: fmt.Sprintf(msg, args...)})
}

// -----------------------------------------------------------------------------

// ReportICE reports an internal compiler error and exits.  These errors are
// always displayed regardless of log level.
func ReportICE(message string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	displayICE(fmt.Sprintf(message, args...))

	os.Exit(-1)
}

// ReportFatal reports a fatal error.  These are expected errors that should
// cause all compilation to stop immediately: unreadable inputs, bad profiles,
// etc.
func ReportFatal(message string, args ...interface{}) {
	if rep.logLevel > LogLevelSilent {
		rep.m.Lock()
		defer rep.m.Unlock()

		displayFatal(fmt.Sprintf(message, args...))
	}

	os.Exit(1)
}

// ReportStdError reports a non-fatal, standard Go error.  The tag names the
// stage which produced it.
func ReportStdError(tag string, err error) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.isErr = true

	if rep.logLevel > LogLevelSilent {
		displayStdError(tag, err)
	}
}

// ReportWarning reports a warning.  Warnings never stop compilation.
func ReportWarning(tag, message string, args ...interface{}) {
	if rep.logLevel < LogLevelWarn {
		return
	}

	rep.m.Lock()
	defer rep.m.Unlock()

	displayWarning(tag, fmt.Sprintf(message, args...))
}

// -----------------------------------------------------------------------------

// CatchErrors catches any internal compiler error raised by a `panic` during
// translation and reports it.  Any other panic is re-raised since it did not
// originate from a checked invariant.
// NB: This function must ALWAYS be deferred.
func CatchErrors() {
	if x := recover(); x != nil {
		if ierr, ok := x.(*InternalError); ok {
			ReportICE("%s", ierr.Message)
		}

		panic(x)
	}
}

// Recover converts an internal compiler error raised inside f into a returned
// error.  It is used where the caller wants to keep going (eg. tests and the
// interactive `run` command).
func Recover(f func()) (err error) {
	defer func() {
		if x := recover(); x != nil {
			if ierr, ok := x.(*InternalError); ok {
				err = ierr
				return
			}

			panic(x)
		}
	}()

	f()
	return nil
}
