package flags

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrHelp is returned by Parse when -h, -help or --help is present.
	ErrHelp = errors.New("flags: help requested")

	// ErrDuplicateFlag is wrapped when a name is registered twice.
	ErrDuplicateFlag = errors.New("flag already registered")

	// ErrUnknownFlag is wrapped when an argument names no registered flag.
	ErrUnknownFlag = errors.New("unknown flag")

	// ErrMissingValue is wrapped when a non-boolean flag has no value.
	ErrMissingValue = errors.New("missing value")

	// ErrInvalidValue is wrapped when a converter rejects a value.
	ErrInvalidValue = errors.New("invalid value")
)

// Problem is one offending argument or registration.
type Problem struct {
	Flag string // flag name
	Arg  string // the argument as given, if any
	Err  error  // wraps one of the Err* sentinels
}

func (p Problem) Error() string {
	if p.Arg != "" {
		return fmt.Sprintf("%s: %v", p.Arg, p.Err)
	}
	return fmt.Sprintf("-%s: %v", p.Flag, p.Err)
}

func (p Problem) Unwrap() error { return p.Err }

// ParseError lists every problem found in one Parse, ApplyFallback or Register call.
type ParseError struct {
	Problems []Problem
}

func (e *ParseError) Error() string {
	if len(e.Problems) == 1 {
		return "flag error: " + e.Problems[0].Error()
	}
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("%d flag errors: %s", len(e.Problems), strings.Join(msgs, "; "))
}

// Unwrap exposes each problem so errors.Is matches any of the sentinels.
func (e *ParseError) Unwrap() []error {
	errs := make([]error, len(e.Problems))
	for i, p := range e.Problems {
		errs[i] = p
	}
	return errs
}
