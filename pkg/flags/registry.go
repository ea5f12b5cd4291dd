package flags

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Registry owns a set of uniquely-named flags and the positional arguments
// left over after parsing.
type Registry struct {
	mu     sync.RWMutex
	flags  map[string]entry
	args   []string
	parsed bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{flags: make(map[string]entry)}
}

func (r *Registry) add(e entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := e.flagName()
	if _, exists := r.flags[name]; exists {
		return &ParseError{Problems: []Problem{{Flag: name, Err: ErrDuplicateFlag}}}
	}
	r.flags[name] = e
	return nil
}

// Parsed reports whether Parse has completed successfully at least once.
func (r *Registry) Parsed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.parsed
}

// Args returns the positional arguments from the last successful Parse.
func (r *Registry) Args() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.args)
}

type staged struct {
	e     entry
	value any
}

// Parse binds args to the registered flags.
//
// Accepted forms are -name=value, --name=value, -name value and --name value;
// boolean flags also accept a bare -name. Parsing stops at "--" or at the first
// argument that does not start with "-"; everything after is positional.
// Every flag is reset to its default first, so parsing the same args again gives
// the same result. On error nothing is bound and the returned *ParseError lists
// every offending argument. -h, -help and --help return ErrHelp unless a flag of
// that name has been registered.
func (r *Registry) Parse(args []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		problems   []Problem
		values     = make(map[string]staged)
		positional []string
		help       bool
	)

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			positional = append(positional, args[i:]...)
			break
		}

		name := strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
		raw, hasValue := "", false
		if idx := strings.IndexByte(name, '='); idx >= 0 {
			name, raw, hasValue = name[:idx], name[idx+1:], true
		}
		if name == "" || strings.HasPrefix(name, "-") {
			problems = append(problems, Problem{Arg: arg, Err: fmt.Errorf("%w: bad flag syntax", ErrUnknownFlag)})
			continue
		}

		e, ok := r.flags[name]
		if !ok {
			if name == "h" || name == "help" {
				help = true
				continue
			}
			problems = append(problems, Problem{Flag: name, Arg: arg, Err: ErrUnknownFlag})
			continue
		}

		if !hasValue {
			switch {
			case e.isBool():
				raw, hasValue = "true", true
			case i+1 < len(args):
				i++
				raw, hasValue = args[i], true
			default:
				problems = append(problems, Problem{Flag: name, Arg: arg, Err: ErrMissingValue})
				continue
			}
		}

		v, err := e.convert(raw)
		if err != nil {
			problems = append(problems, Problem{
				Flag: name,
				Arg:  arg,
				Err:  fmt.Errorf("%w %q: %w", ErrInvalidValue, raw, err),
			})
			continue
		}
		values[name] = staged{e: e, value: v}
	}

	if help {
		return ErrHelp
	}
	if len(problems) > 0 {
		return &ParseError{Problems: problems}
	}

	for _, e := range r.flags {
		e.reset()
	}
	for _, s := range values {
		s.e.commit(s.value, SourceFlag)
	}
	r.args = positional
	r.parsed = true
	return nil
}

// LookupFunc yields a fallback value for a flag name.
type LookupFunc func(name string) (string, bool)

// ApplyFallback binds, for every flag still at its default, the value lookup
// yields for its name. Explicit command-line values are never overridden.
// Like Parse it is all-or-nothing.
func (r *Registry) ApplyFallback(lookup LookupFunc) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		problems []Problem
		values   []staged
	)
	for _, name := range r.sortedNamesLocked() {
		e := r.flags[name]
		if e.info().Source != SourceDefault {
			continue
		}
		raw, ok := lookup(name)
		if !ok {
			continue
		}
		v, err := e.convert(raw)
		if err != nil {
			problems = append(problems, Problem{
				Flag: name,
				Err:  fmt.Errorf("%w %q from fallback: %w", ErrInvalidValue, raw, err),
			})
			continue
		}
		values = append(values, staged{e: e, value: v})
	}

	if len(problems) > 0 {
		return &ParseError{Problems: problems}
	}
	for _, s := range values {
		s.e.commit(s.value, SourceFallback)
	}
	return nil
}

// Lookup returns the description of a flag by name.
func (r *Registry) Lookup(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.flags[name]
	if !ok {
		return Info{}, false
	}
	return e.info(), true
}

// All describes every registered flag, sorted by name.
func (r *Registry) All() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.sortedNamesLocked()
	infos := make([]Info, 0, len(names))
	for _, name := range names {
		infos = append(infos, r.flags[name].info())
	}
	return infos
}

func (r *Registry) sortedNamesLocked() []string {
	names := make([]string, 0, len(r.flags))
	for name := range r.flags {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Usage renders help text listing each flag once, sorted by name.
func (r *Registry) Usage(program string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage: %s [flags] [args]\n\nFlags:\n", program)
	for _, info := range r.All() {
		fmt.Fprintf(&b, "  -%s=%q\n", info.Name, info.Default)
		if info.Help != "" {
			fmt.Fprintf(&b, "        %s\n", info.Help)
		}
	}
	return b.String()
}

// Typed helpers. Like the standard library's flag package they panic when a
// name is registered twice, which is a programming error.

// String registers a string flag.
func (r *Registry) String(name, def, help string) *Flag[string] {
	return MustRegister(r, name, def, help, OfString())
}

// Int registers an int flag.
func (r *Registry) Int(name string, def int, help string) *Flag[int] {
	return MustRegister(r, name, def, help, OfInt())
}

// Int64 registers an int64 flag.
func (r *Registry) Int64(name string, def int64, help string) *Flag[int64] {
	return MustRegister(r, name, def, help, OfInt64())
}

// Bool registers a boolean flag.
func (r *Registry) Bool(name string, def bool, help string) *Flag[bool] {
	return MustRegister(r, name, def, help, OfBool())
}

// Float64 registers a float64 flag.
func (r *Registry) Float64(name string, def float64, help string) *Flag[float64] {
	return MustRegister(r, name, def, help, OfFloat64())
}

// Duration registers a time.Duration flag.
func (r *Registry) Duration(name string, def time.Duration, help string) *Flag[time.Duration] {
	return MustRegister(r, name, def, help, OfDuration())
}

// StringSlice registers a comma-separated list flag.
func (r *Registry) StringSlice(name string, def []string, help string) *Flag[[]string] {
	return MustRegister(r, name, def, help, OfStringSlice())
}

// Bytes registers a byte-size flag accepting values like "64MiB" or "1g".
func (r *Registry) Bytes(name string, def int64, help string) *Flag[int64] {
	return MustRegister(r, name, def, help, OfBytes())
}

// Secret registers a string flag whose value is redacted wherever the flag
// is described. Get still returns the real value.
func (r *Registry) Secret(name, def, help string) *Flag[string] {
	return MustRegister(r, name, def, help, OfSecret())
}

// Addr registers a host:port flag. A bare port is accepted as ":port".
func (r *Registry) Addr(name, def, help string) *Flag[string] {
	return MustRegister(r, name, def, help, OfAddr())
}
