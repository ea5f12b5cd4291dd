package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "table", want: FormatTable},
		{input: "", want: FormatTable},
		{input: "JSON", want: FormatJSON},
		{input: "yml", want: FormatYAML},
		{input: "  yaml ", want: FormatYAML},
		{input: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func flagTable() *Table {
	tbl := NewTable("NAME", "VALUE", "SOURCE")
	tbl.AddRow("admin.port", ":9990", "default")
	tbl.AddRow("log.level", "DEBUG", "flag")
	return tbl
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(flagTable()))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "admin.port")
	assert.Contains(t, out, "DEBUG")
}

func TestPrintStructuredFormats(t *testing.T) {
	data := map[string]any{"phase": "main", "state": "ok"}

	var js bytes.Buffer
	require.NoError(t, NewPrinter(&js, FormatJSON, false).Print(data))
	assert.JSONEq(t, `{"phase":"main","state":"ok"}`, js.String())

	var ym bytes.Buffer
	require.NoError(t, NewPrinter(&ym, FormatYAML, false).Print(data))
	assert.Contains(t, ym.String(), "phase: main")
}

func TestTableFormatFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(map[string]int{"requests": 5}))
	assert.JSONEq(t, `{"requests":5}`, buf.String())
}

func TestPrintKeyValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintKeyValues(&buf, [][2]string{{"Phase", "main"}, {"State", "ok"}}))
	assert.Contains(t, buf.String(), "Phase")
	assert.Contains(t, buf.String(), "main")
}

func TestStatusLines(t *testing.T) {
	var plain bytes.Buffer
	NewPrinter(&plain, FormatTable, false).Success("stopped")
	assert.Equal(t, "stopped\n", plain.String())

	var colored bytes.Buffer
	NewPrinter(&colored, FormatTable, true).Warning("already stopping")
	assert.Contains(t, colored.String(), "\033[33m")
}
