package lifecycle

import (
	"context"
	"errors"
	"fmt"
)

// Phase is a step of the process lifecycle. Phases run in declaration order.
type Phase int32

const (
	NotStarted Phase = iota
	Init
	PreMain
	Main
	PostMain
	Exit
	ExitLast
	Terminated
)

// Phases lists the phases that can carry a hook, in execution order.
var Phases = []Phase{Init, PreMain, Main, PostMain, Exit, ExitLast}

func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not_started"
	case Init:
		return "init"
	case PreMain:
		return "pre_main"
	case Main:
		return "main"
	case PostMain:
		return "post_main"
	case Exit:
		return "exit"
	case ExitLast:
		return "exit_last"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// MarshalText renders the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name as produced by String.
func (p *Phase) UnmarshalText(text []byte) error {
	for q := NotStarted; q <= Terminated; q++ {
		if q.String() == string(text) {
			*p = q
			return nil
		}
	}
	return fmt.Errorf("lifecycle: unknown phase %q", text)
}

// IsStartup reports whether p runs before Main.
func (p Phase) IsStartup() bool { return p == Init || p == PreMain }

// IsTeardown reports whether p is one of the always-run cleanup phases.
func (p Phase) IsTeardown() bool { return p == Exit || p == ExitLast }

func (p Phase) hookable() bool { return p >= Init && p <= ExitLast }

// Hook is application logic bound to one phase.
type Hook func(ctx context.Context) error

// Capability interfaces. An application passed to RegisterApp has each
// implemented method bound to the matching phase.
type (
	Initializer interface{ Init(ctx context.Context) error }
	PreMainer   interface{ PreMain(ctx context.Context) error }
	Mainer      interface{ Main(ctx context.Context) error }
	PostMainer  interface{ PostMain(ctx context.Context) error }
	Exiter      interface{ Exit(ctx context.Context) error }
	ExitLaster  interface{ ExitLast(ctx context.Context) error }
)

// HooksOf extracts the hooks app implements, keyed by phase.
func HooksOf(app any) map[Phase]Hook {
	hooks := make(map[Phase]Hook)
	if a, ok := app.(Initializer); ok {
		hooks[Init] = a.Init
	}
	if a, ok := app.(PreMainer); ok {
		hooks[PreMain] = a.PreMain
	}
	if a, ok := app.(Mainer); ok {
		hooks[Main] = a.Main
	}
	if a, ok := app.(PostMainer); ok {
		hooks[PostMain] = a.PostMain
	}
	if a, ok := app.(Exiter); ok {
		hooks[Exit] = a.Exit
	}
	if a, ok := app.(ExitLaster); ok {
		hooks[ExitLast] = a.ExitLast
	}
	return hooks
}

var (
	// ErrAlreadyRun is returned by Run and Register once Run has been called.
	ErrAlreadyRun = errors.New("lifecycle: orchestrator already run")

	// ErrHookRegistered is returned when a phase already has a hook.
	ErrHookRegistered = errors.New("lifecycle: hook already registered for phase")

	// ErrInvalidPhase is returned when registering for a phase that takes no hook.
	ErrInvalidPhase = errors.New("lifecycle: phase does not accept hooks")
)

// HookError wraps a failure raised by a hook, tagged with its phase.
type HookError struct {
	Phase    Phase
	Err      error
	Panicked bool
}

func (e *HookError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("%s hook panicked: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("%s hook failed: %v", e.Phase, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }
