package report

import (
	"errors"
	"testing"
)

func TestRecover(t *testing.T) {
	err := Recover(func() {
		ICE("local `%s` opened twice", "x")
	})

	var ierr *InternalError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected an internal error but got %v", err)
	}

	if ierr.Message != "local `x` opened twice" {
		t.Errorf("unexpected message %q", ierr.Message)
	}

	if err := Recover(func() {}); err != nil {
		t.Errorf("expected no error but got %s", err)
	}
}

func TestRecoverForeignPanic(t *testing.T) {
	defer func() {
		if x := recover(); x != "boom" {
			t.Errorf("expected the original panic but got %v", x)
		}
	}()

	Recover(func() {
		panic("boom")
	})

	t.Error("foreign panic was swallowed")
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]int{
		"silent":  LogLevelSilent,
		"error":   LogLevelError,
		"WARN":    LogLevelWarn,
		"verbose": LogLevelVerbose,
		"":        LogLevelVerbose,
	}

	for name, want := range cases {
		if got := ParseLogLevel(name); got != want {
			t.Errorf("%q: expected %d but got %d", name, want, got)
		}
	}
}

func TestStdErrorsAreRecorded(t *testing.T) {
	InitReporter(LogLevelSilent)
	defer InitReporter(LogLevelVerbose)

	if AnyErrors() {
		t.Fatal("fresh reporter has errors")
	}

	ReportStdError("Load Error", errors.New("no such file"))
	if !AnyErrors() {
		t.Error("reported error was not recorded")
	}
}
