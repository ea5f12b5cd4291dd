package flags

import (
	"os"
	"strings"
)

// EnvName maps a flag name to its environment variable: "admin.port" with
// prefix "SRVD" becomes "SRVD_ADMIN_PORT".
func EnvName(prefix, name string) string {
	key := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(name))
	if prefix == "" {
		return key
	}
	return strings.ToUpper(prefix) + "_" + key
}

// EnvLookup reads fallback values from the process environment.
// Empty variables count as unset.
func EnvLookup(prefix string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := os.LookupEnv(EnvName(prefix, name))
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}
}

// MapLookup reads fallback values from a map keyed by flag name.
func MapLookup(m map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// Chain tries each lookup in order and returns the first hit.
func Chain(lookups ...LookupFunc) LookupFunc {
	return func(name string) (string, bool) {
		for _, l := range lookups {
			if l == nil {
				continue
			}
			if v, ok := l(name); ok {
				return v, true
			}
		}
		return "", false
	}
}
