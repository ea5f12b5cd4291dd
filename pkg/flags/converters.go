package flags

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cast"
)

// Converter turns the textual form of a flag into a T and back.
type Converter[T any] interface {
	Parse(s string) (T, error)
	Format(v T) string
}

// ConverterFunc adapts a pair of functions to Converter.
type ConverterFunc[T any] struct {
	ParseFunc  func(string) (T, error)
	FormatFunc func(T) string
}

func (c ConverterFunc[T]) Parse(s string) (T, error) { return c.ParseFunc(s) }

func (c ConverterFunc[T]) Format(v T) string {
	if c.FormatFunc == nil {
		return fmt.Sprint(v)
	}
	return c.FormatFunc(v)
}

// OfString accepts any string verbatim.
func OfString() Converter[string] {
	return ConverterFunc[string]{
		ParseFunc:  func(s string) (string, error) { return s, nil },
		FormatFunc: func(s string) string { return s },
	}
}

// OfInt parses decimal, 0x hex and 0o octal integers.
func OfInt() Converter[int] {
	return ConverterFunc[int]{
		ParseFunc:  func(s string) (int, error) { return cast.ToIntE(s) },
		FormatFunc: strconv.Itoa,
	}
}

// OfInt64 parses 64-bit integers.
func OfInt64() Converter[int64] {
	return ConverterFunc[int64]{
		ParseFunc:  func(s string) (int64, error) { return cast.ToInt64E(s) },
		FormatFunc: func(v int64) string { return strconv.FormatInt(v, 10) },
	}
}

// OfFloat64 parses floating point numbers.
func OfFloat64() Converter[float64] {
	return ConverterFunc[float64]{
		ParseFunc:  func(s string) (float64, error) { return cast.ToFloat64E(s) },
		FormatFunc: func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) },
	}
}

type boolConverter struct{}

func (boolConverter) Parse(s string) (bool, error) { return cast.ToBoolE(s) }
func (boolConverter) Format(v bool) string         { return strconv.FormatBool(v) }
func (boolConverter) IsBoolFlag() bool             { return true }

// OfBool parses booleans. Flags using it may be given without a value.
func OfBool() Converter[bool] {
	return boolConverter{}
}

// OfDuration parses Go duration strings such as "250ms" or "1h30m".
func OfDuration() Converter[time.Duration] {
	return ConverterFunc[time.Duration]{
		ParseFunc: func(s string) (time.Duration, error) {
			if s == "0" {
				return 0, nil
			}
			return time.ParseDuration(s)
		},
		FormatFunc: time.Duration.String,
	}
}

// OfStringSlice parses a comma-separated list. Blank items are dropped.
func OfStringSlice() Converter[[]string] {
	return ConverterFunc[[]string]{
		ParseFunc: func(s string) ([]string, error) {
			var out []string
			for _, item := range strings.Split(s, ",") {
				if item = strings.TrimSpace(item); item != "" {
					out = append(out, item)
				}
			}
			return out, nil
		},
		FormatFunc: func(v []string) string { return strings.Join(v, ",") },
	}
}

// OfBytes parses binary byte sizes ("512", "64k", "1.5GiB"). Values are
// formatted in the largest unit that divides them exactly, so the output
// parses back to the same size.
func OfBytes() Converter[int64] {
	return ConverterFunc[int64]{
		ParseFunc:  units.RAMInBytes,
		FormatFunc: formatBytes,
	}
}

var byteSuffixes = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

func formatBytes(v int64) string {
	i := 0
	for v != 0 && v%1024 == 0 && i < len(byteSuffixes)-1 {
		v /= 1024
		i++
	}
	return strconv.FormatInt(v, 10) + byteSuffixes[i]
}

// Redacted replaces the value of a non-empty secret flag in descriptions.
const Redacted = "<redacted>"

// OfSecret accepts any string verbatim but never formats it: descriptions,
// usage and the admin flag listing show Redacted instead.
func OfSecret() Converter[string] {
	return ConverterFunc[string]{
		ParseFunc: func(s string) (string, error) { return s, nil },
		FormatFunc: func(s string) string {
			if s == "" {
				return ""
			}
			return Redacted
		},
	}
}

// OfAddr parses a listen address. "9990" is read as ":9990".
func OfAddr() Converter[string] {
	return ConverterFunc[string]{
		ParseFunc:  parseAddr,
		FormatFunc: func(s string) string { return s },
	}
}

func parseAddr(s string) (string, error) {
	if _, err := strconv.Atoi(s); err == nil {
		s = ":" + s
	}
	_, port, err := net.SplitHostPort(s)
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return "", fmt.Errorf("invalid port %q", port)
	}
	return s, nil
}
