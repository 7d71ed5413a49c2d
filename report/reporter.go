package report

import (
	"strings"
	"sync"
)

// reporter is responsible for reporting errors and other kinds of messages to
// the user.  The reporter respects the set log level and is synchronized: its
// functions can be safely called from multiple goroutines.
type reporter struct {
	// The mutex used to synchonize different reporting calls.
	m *sync.Mutex

	// The selected log level of the reporter.  This must be one of the
	// enumerated log levels below.
	logLevel int

	// Indicates whether or not an error has been detected.
	isErr bool
}

// Enumeration of the different possible log levels.
const (
	LogLevelSilent  = iota // Displays no output.
	LogLevelError          // Displays only errors to the user.
	LogLevelWarn           // Displays only warnings and errors to the user.
	LogLevelVerbose        // Displays all messages to the user (default).
)

// rep is the global reporter instance.  It starts out verbose so that
// reporting before initialization still works.
var rep = &reporter{m: &sync.Mutex{}, logLevel: LogLevelVerbose}

// InitReporter sets the log level of the global reporter.
func InitReporter(logLevel int) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.logLevel = logLevel
	rep.isErr = false
}

// ParseLogLevel converts a log level name into its enumerated value.  Unknown
// names (including the empty string) default to verbose.
func ParseLogLevel(name string) int {
	switch strings.ToLower(name) {
	case "silent":
		return LogLevelSilent
	case "error":
		return LogLevelError
	case "warn", "warning":
		return LogLevelWarn
	default:
		return LogLevelVerbose
	}
}

// AnyErrors returns whether or not any errors were reported.
func AnyErrors() bool {
	rep.m.Lock()
	defer rep.m.Unlock()

	return rep.isErr
}
