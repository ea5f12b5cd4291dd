package server

import (
	"errors"

	"github.com/marmos91/srvkit/pkg/lifecycle"
	"github.com/marmos91/srvkit/pkg/shutdown"
)

// Process exit codes returned by Main.
const (
	ExitOK        = 0
	ExitFailure   = 1 // teardown failure or any other error
	ExitUsage     = 2 // flag, config or settings error
	ExitStartup   = 3 // Init or PreMain failed
	ExitMain      = 4 // Main failed
	ExitAdminBind = 5 // admin port unavailable
	ExitForced    = shutdown.ExitCodeForced
)

// ExitCode maps the error returned by a lifecycle run to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var he *lifecycle.HookError
	if !errors.As(err, &he) {
		return ExitFailure
	}
	switch {
	case he.Phase.IsStartup():
		return ExitStartup
	case he.Phase == lifecycle.Main:
		return ExitMain
	default:
		return ExitFailure
	}
}
