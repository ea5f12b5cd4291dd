package flags

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndDefault(t *testing.T) {
	r := NewRegistry()

	foo, err := Register(r, "foo", "default-foo", "help-foo", OfString())
	require.NoError(t, err)

	require.NoError(t, r.Parse(nil))
	assert.Equal(t, "default-foo", foo.Get())
	assert.Equal(t, SourceDefault, foo.Source())
	assert.False(t, foo.IsSet())
}

func TestParseExplicitValue(t *testing.T) {
	r := NewRegistry()
	foo := r.String("foo", "default-foo", "help-foo")

	require.NoError(t, r.Parse([]string{"-foo=bar"}))
	assert.Equal(t, "bar", foo.Get())
	assert.Equal(t, SourceFlag, foo.Source())
}

func TestParseForms(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"SingleDashEquals", []string{"-n=1"}, 1},
		{"DoubleDashEquals", []string{"--n=2"}, 2},
		{"SingleDashSpace", []string{"-n", "3"}, 3},
		{"DoubleDashSpace", []string{"--n", "4"}, 4},
		{"LastWins", []string{"-n=1", "-n=5"}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			n := r.Int("n", 0, "")
			require.NoError(t, r.Parse(tt.args))
			assert.Equal(t, tt.want, n.Get())
		})
	}
}

func TestParseBool(t *testing.T) {
	r := NewRegistry()
	v := r.Bool("verbose", false, "")
	q := r.Bool("quiet", true, "")

	require.NoError(t, r.Parse([]string{"-verbose", "--quiet=false", "rest"}))
	assert.True(t, v.Get())
	assert.False(t, q.Get())
	assert.Equal(t, []string{"rest"}, r.Args())
}

func TestParsePositional(t *testing.T) {
	t.Run("StopsAtFirstNonFlag", func(t *testing.T) {
		r := NewRegistry()
		a := r.String("a", "", "")
		require.NoError(t, r.Parse([]string{"-a", "x", "cmd", "-a=y"}))
		assert.Equal(t, "x", a.Get())
		assert.Equal(t, []string{"cmd", "-a=y"}, r.Args())
	})

	t.Run("DoubleDashTerminates", func(t *testing.T) {
		r := NewRegistry()
		r.String("a", "", "")
		require.NoError(t, r.Parse([]string{"--", "-a=1"}))
		assert.Equal(t, []string{"-a=1"}, r.Args())
	})

	t.Run("LoneDashIsPositional", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Parse([]string{"-"}))
		assert.Equal(t, []string{"-"}, r.Args())
	})
}

func TestParseCollectsAllErrors(t *testing.T) {
	r := NewRegistry()
	n := r.Int("n", 7, "")
	r.String("s", "", "")

	err := r.Parse([]string{"-unknown=1", "-n=abc", "-other", "-s"})
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	require.Len(t, perr.Problems, 4)

	assert.ErrorIs(t, perr.Problems[0], ErrUnknownFlag)
	assert.ErrorIs(t, perr.Problems[1], ErrInvalidValue)
	assert.ErrorIs(t, perr.Problems[2], ErrUnknownFlag)
	assert.ErrorIs(t, perr.Problems[3], ErrMissingValue)

	assert.ErrorIs(t, err, ErrUnknownFlag)
	assert.ErrorIs(t, err, ErrMissingValue)
	assert.Contains(t, err.Error(), "4 flag errors")

	assert.Equal(t, 7, n.Get(), "nothing is bound on failure")
	assert.False(t, r.Parsed())
}

func TestParseIsAtomic(t *testing.T) {
	r := NewRegistry()
	a := r.String("a", "def", "")

	require.NoError(t, r.Parse([]string{"-a=first"}))
	require.Error(t, r.Parse([]string{"-a=second", "-nope"}))
	assert.Equal(t, "first", a.Get())
}

func TestParseIsIdempotent(t *testing.T) {
	r := NewRegistry()
	a := r.String("a", "def", "")
	b := r.Int("b", 1, "")
	args := []string{"-a=x", "-b", "9", "tail"}

	require.NoError(t, r.Parse(args))
	first := []any{a.Get(), b.Get(), r.Args()}

	require.NoError(t, r.Parse(args))
	second := []any{a.Get(), b.Get(), r.Args()}
	assert.Equal(t, first, second)

	require.NoError(t, r.Parse(nil))
	assert.Equal(t, "def", a.Get(), "reparse resets flags not given")
	assert.Equal(t, 1, b.Get())
}

func TestParseHelp(t *testing.T) {
	for _, arg := range []string{"-h", "-help", "--help"} {
		t.Run(arg, func(t *testing.T) {
			r := NewRegistry()
			r.String("a", "", "")
			err := r.Parse([]string{arg, "-unknown"})
			assert.ErrorIs(t, err, ErrHelp)
		})
	}

	t.Run("RegisteredHelpFlagWins", func(t *testing.T) {
		r := NewRegistry()
		h := r.Bool("h", false, "human readable")
		require.NoError(t, r.Parse([]string{"-h"}))
		assert.True(t, h.Get())
	})
}

func TestDuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	_, err := Register(r, "foo", "a", "", OfString())
	require.NoError(t, err)

	_, err = Register(r, "foo", 1, "", OfInt())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateFlag)

	var perr *ParseError
	assert.True(t, errors.As(err, &perr))

	assert.Panics(t, func() { r.String("foo", "", "") })
}

func TestLateRegistrationBindsDefault(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Parse(nil))

	late := r.Duration("late", time.Second, "")
	assert.Equal(t, time.Second, late.Get())
}

func TestApplyFallbackPrecedence(t *testing.T) {
	r := NewRegistry()
	port := r.Addr("admin.port", ":9990", "")
	level := r.String("log.level", "INFO", "")
	grace := r.Duration("shutdown.grace_period", 30*time.Second, "")

	require.NoError(t, r.Parse([]string{"-admin.port=:7000"}))

	env := MapLookup(map[string]string{"admin.port": ":8000", "log.level": "DEBUG"})
	file := MapLookup(map[string]string{"log.level": "WARN", "shutdown.grace_period": "5s"})
	require.NoError(t, r.ApplyFallback(Chain(env, file)))

	assert.Equal(t, ":7000", port.Get(), "explicit flag beats env")
	assert.Equal(t, "DEBUG", level.Get(), "env beats file")
	assert.Equal(t, 5*time.Second, grace.Get(), "file beats default")
	assert.Equal(t, SourceFallback, grace.Source())
}

func TestApplyFallbackInvalid(t *testing.T) {
	r := NewRegistry()
	n := r.Int("n", 3, "")
	s := r.String("s", "", "")

	err := r.ApplyFallback(MapLookup(map[string]string{"n": "three", "s": "ok"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, 3, n.Get())
	assert.Equal(t, "", s.Get(), "fallback is all-or-nothing")
}

func TestEnvLookup(t *testing.T) {
	t.Setenv("SRVD_ADMIN_PORT", ":9999")
	t.Setenv("SRVD_EMPTY", "")

	lookup := EnvLookup("srvd")
	v, ok := lookup("admin.port")
	assert.True(t, ok)
	assert.Equal(t, ":9999", v)

	_, ok = lookup("empty")
	assert.False(t, ok)

	assert.Equal(t, "SRVD_STATS_DELTA_INTERVAL", EnvName("srvd", "stats.delta-interval"))
	assert.Equal(t, "ADMIN_PORT", EnvName("", "admin.port"))
}

func TestUsageSortedAndComplete(t *testing.T) {
	r := NewRegistry()
	r.String("zeta", "z", "last")
	r.Int("alpha", 1, "first")
	r.Bool("mid", false, "")

	usage := r.Usage("srvd")

	assert.True(t, strings.HasPrefix(usage, "Usage: srvd"))
	ia := strings.Index(usage, "-alpha=")
	im := strings.Index(usage, "-mid=")
	iz := strings.Index(usage, "-zeta=")
	assert.True(t, ia >= 0 && ia < im && im < iz)
	assert.Equal(t, 1, strings.Count(usage, "-alpha="))
	assert.Contains(t, usage, "first")
	assert.Contains(t, usage, `-zeta="z"`)
}

func TestAllAndLookup(t *testing.T) {
	r := NewRegistry()
	r.String("b", "x", "bee")
	r.Bool("a", false, "")
	require.NoError(t, r.Parse([]string{"-b=y"}))

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.True(t, all[0].IsBool)
	assert.Equal(t, Info{Name: "b", Help: "bee", Default: "x", Value: "y", Source: SourceFlag}, all[1])

	_, ok := r.Lookup("missing")
	assert.False(t, ok)
}

func TestConcurrentReadsDuringParse(t *testing.T) {
	r := NewRegistry()
	n := r.Int("n", 0, "")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = r.Parse([]string{"-n=1"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = n.Get()
			_ = r.All()
		}
	}()
	wg.Wait()
	assert.Equal(t, 1, n.Get())
}
