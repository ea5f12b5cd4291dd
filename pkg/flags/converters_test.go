package flags

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarConverters(t *testing.T) {
	n, err := OfInt().Parse("42")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = OfInt().Parse("4x2")
	assert.Error(t, err)

	i64, err := OfInt64().Parse("-9000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(-9000000000), i64)

	f, err := OfFloat64().Parse("0.25")
	require.NoError(t, err)
	assert.Equal(t, 0.25, f)
	assert.Equal(t, "0.25", OfFloat64().Format(0.25))

	b, err := OfBool().Parse("false")
	require.NoError(t, err)
	assert.False(t, b)
	_, err = OfBool().Parse("maybe")
	assert.Error(t, err)
}

func TestDurationConverter(t *testing.T) {
	d, err := OfDuration().Parse("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
	assert.Equal(t, "1m30s", OfDuration().Format(d))

	d, err = OfDuration().Parse("0")
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = OfDuration().Parse("soon")
	assert.Error(t, err)
}

func TestStringSliceConverter(t *testing.T) {
	v, err := OfStringSlice().Parse("cpu, alloc_space,,goroutines ")
	require.NoError(t, err)
	assert.Equal(t, []string{"cpu", "alloc_space", "goroutines"}, v)
	assert.Equal(t, "cpu,alloc_space,goroutines", OfStringSlice().Format(v))
}

func TestBytesConverter(t *testing.T) {
	tests := map[string]int64{
		"512":    512,
		"64k":    64 << 10,
		"1.5MiB": 3 << 19,
		"2g":     2 << 30,
	}
	for in, want := range tests {
		got, err := OfBytes().Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := OfBytes().Parse("lots")
	assert.Error(t, err)
	assert.Equal(t, "64MiB", OfBytes().Format(64<<20))
}

func TestBytesConverterFormatsExactly(t *testing.T) {
	tests := map[int64]string{
		0:          "0B",
		1000:       "1000B",
		1500000:    "1500000B",
		3 << 19:    "1536KiB",
		1536 << 20: "1536MiB",
		5 << 40:    "5TiB",
		3 << 60:    "3072PiB",
	}
	for v, want := range tests {
		got := OfBytes().Format(v)
		assert.Equal(t, want, got, v)

		back, err := OfBytes().Parse(got)
		require.NoError(t, err, got)
		assert.Equal(t, v, back, "%s parses back to the bound value", got)
	}
}

func TestSecretConverter(t *testing.T) {
	v, err := OfSecret().Parse("hunter2-secret")
	require.NoError(t, err)
	assert.Equal(t, "hunter2-secret", v)
	assert.Equal(t, Redacted, OfSecret().Format(v))
	assert.Empty(t, OfSecret().Format(""))

	r := NewRegistry()
	token := r.Secret("token", "", "api token")
	require.NoError(t, r.Parse([]string{"-token=hunter2-secret"}))
	assert.Equal(t, "hunter2-secret", token.Get())

	info, ok := r.Lookup("token")
	require.True(t, ok)
	assert.Equal(t, Redacted, info.Value)
	assert.NotContains(t, r.Usage("srvd"), "hunter2-secret")
}

func TestAddrConverter(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: ":9990", want: ":9990"},
		{in: "9990", want: ":9990"},
		{in: "127.0.0.1:0", want: "127.0.0.1:0"},
		{in: "[::1]:80", want: "[::1]:80"},
		{in: "localhost", wantErr: true},
		{in: ":70000", wantErr: true},
		{in: ":http", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := OfAddr().Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCustomConverter(t *testing.T) {
	type mode string
	conv := ConverterFunc[mode]{
		ParseFunc: func(s string) (mode, error) {
			if s != "fast" && s != "safe" {
				return "", assert.AnError
			}
			return mode(s), nil
		},
	}

	r := NewRegistry()
	m := MustRegister(r, "mode", mode("safe"), "", Converter[mode](conv))
	require.NoError(t, r.Parse([]string{"-mode=fast"}))
	assert.Equal(t, mode("fast"), m.Get())
	assert.Equal(t, "fast", m.String())

	assert.ErrorIs(t, r.Parse([]string{"-mode=reckless"}), ErrInvalidValue)
}
