// Package flags is a typed command-line flag registry.
//
// Flags are registered with a name, a default, help text and a Converter that
// turns the textual form into a value of the flag's type. Parsing collects every
// problem in the argument list and binds nothing unless all of it is valid.
// Flags not given on the command line may be filled from a fallback lookup
// (environment, config file) before the program reads them.
package flags

import (
	"fmt"
	"sync"
)

// Source records where a flag's current value came from.
type Source int

const (
	SourceDefault  Source = iota // registered default
	SourceFallback               // environment or config file
	SourceFlag                   // explicit command-line argument
)

func (s Source) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceFallback:
		return "fallback"
	case SourceFlag:
		return "flag"
	default:
		return "unknown"
	}
}

// Flag is a registered flag holding a value of type T.
// Get is safe for concurrent use with parsing.
type Flag[T any] struct {
	name string
	help string
	def  T
	conv Converter[T]

	mu     sync.RWMutex
	value  T
	source Source
}

// Name returns the flag name.
func (f *Flag[T]) Name() string { return f.name }

// Help returns the help text.
func (f *Flag[T]) Help() string { return f.help }

// Default returns the registered default.
func (f *Flag[T]) Default() T { return f.def }

// Get returns the bound value.
func (f *Flag[T]) Get() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// Source reports where the bound value came from.
func (f *Flag[T]) Source() Source {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.source
}

// IsSet reports whether the value came from anywhere other than the default.
func (f *Flag[T]) IsSet() bool {
	return f.Source() != SourceDefault
}

func (f *Flag[T]) String() string {
	return f.conv.Format(f.Get())
}

// entry is the type-erased view the registry works with.
type entry interface {
	flagName() string
	info() Info
	isBool() bool
	convert(raw string) (any, error)
	commit(v any, src Source)
	reset()
}

func (f *Flag[T]) flagName() string { return f.name }

func (f *Flag[T]) info() Info {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Info{
		Name:    f.name,
		Help:    f.help,
		Default: f.conv.Format(f.def),
		Value:   f.conv.Format(f.value),
		Source:  f.source,
		IsBool:  f.isBool(),
	}
}

func (f *Flag[T]) isBool() bool {
	b, ok := any(f.conv).(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

func (f *Flag[T]) convert(raw string) (any, error) {
	v, err := f.conv.Parse(raw)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (f *Flag[T]) commit(v any, src Source) {
	f.mu.Lock()
	f.value = v.(T)
	f.source = src
	f.mu.Unlock()
}

func (f *Flag[T]) reset() {
	f.mu.Lock()
	f.value = f.def
	f.source = SourceDefault
	f.mu.Unlock()
}

// Info is a read-only description of a flag for usage output and the admin surface.
type Info struct {
	Name    string `json:"name"`
	Help    string `json:"help"`
	Default string `json:"default"`
	Value   string `json:"value"`
	Source  Source `json:"source"`
	IsBool  bool   `json:"-"`
}

// MarshalText lets Source render by name in JSON and YAML.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a source name.
func (s *Source) UnmarshalText(text []byte) error {
	for _, c := range []Source{SourceDefault, SourceFallback, SourceFlag} {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("flags: unknown source %q", text)
}

// Register adds a flag of type T to r. It fails with a *ParseError wrapping
// ErrDuplicateFlag if name is already taken.
func Register[T any](r *Registry, name string, def T, help string, conv Converter[T]) (*Flag[T], error) {
	if name == "" {
		return nil, fmt.Errorf("flags: empty flag name")
	}
	f := &Flag[T]{
		name:  name,
		help:  help,
		def:   def,
		conv:  conv,
		value: def,
	}
	if err := r.add(f); err != nil {
		return nil, err
	}
	return f, nil
}

// MustRegister is Register that panics on error.
func MustRegister[T any](r *Registry, name string, def T, help string, conv Converter[T]) *Flag[T] {
	f, err := Register(r, name, def, help, conv)
	if err != nil {
		panic(err)
	}
	return f
}
