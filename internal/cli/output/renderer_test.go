package output

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func newTestRenderer(mode OutputMode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestMode(t *testing.T) {
	tests := map[string]OutputMode{
		"":         ModeAuto,
		"auto":     ModeAuto,
		"TEXT":     ModeText,
		"markdown": ModeMarkdown,
		"md":       ModeMarkdown,
		"json":     ModeJSON,
		"xml":      ModeAuto,
	}
	for in, want := range tests {
		assert.Equal(t, want, Mode(in), "Mode(%q)", in)
	}
}

func TestEffectiveMode(t *testing.T) {
	r, _, _ := newTestRenderer(ModeAuto, true)
	assert.Equal(t, ModeText, r.EffectiveMode())

	r, _, _ = newTestRenderer(ModeAuto, false)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())

	r, _, _ = newTestRenderer(ModeJSON, true)
	assert.Equal(t, ModeJSON, r.EffectiveMode())
}

func TestNewRenderer_BufferIsNotATerminal(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestTable(t *testing.T) {
	header := []string{"Game", "Winner"}
	rows := [][]string{{"demo", "player 1"}, {"skirmish", "-"}}

	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown, false)
		r.Table(header, rows)
		assert.Contains(t, out.String(), "| Game | Winner |")
		assert.Contains(t, out.String(), "| demo | player 1 |")
	})

	t.Run("text without tty has no escape codes", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, false)
		r.Table(header, rows)
		assert.Contains(t, out.String(), "┌")
		assert.Contains(t, out.String(), "skirmish")
		assert.False(t, ansiPattern.MatchString(out.String()))
	})
}

func TestHeaderAndKeyValue(t *testing.T) {
	r, out, _ := newTestRenderer(ModeMarkdown, false)
	r.Header(2, "Game abc")
	r.KeyValue("Status", "completed")
	assert.Equal(t, "## Game abc\n\n- **Status:** completed\n", out.String())

	r, out, _ = newTestRenderer(ModeText, false)
	r.Header(1, "Games")
	r.KeyValue("Turns", "3")
	assert.Contains(t, out.String(), "Games")
	assert.Contains(t, out.String(), "Turns: 3")
	assert.False(t, ansiPattern.MatchString(out.String()))
}

func TestDiagnosticsGoToErrWriter(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText, false)
	r.Warning("careful")
	r.Error("broken")
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "! careful")
	assert.Contains(t, errOut.String(), "✗ broken")
}

func TestJSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.JSON(map[string]int{"turns": 2}))
	assert.Equal(t, "{\n  \"turns\": 2\n}\n", out.String())

	out.Reset()
	require.NoError(t, r.JSONLine(map[string]int{"seq": 1}))
	assert.Equal(t, "{\"seq\":1}\n", out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### Title", FormatHeader(3, "Title"))
	assert.Equal(t, "- **Key:** value", FormatKeyValue("Key", "value"))
}
