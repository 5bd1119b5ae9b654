package commands

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{version: "0.1.0", want: "starfleet v0.1.0 (" + runtime.Version()},
		{version: "dev", want: "starfleet vdev"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			cmd := NewVersionCommand(tt.version)
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)

			require.NoError(t, cmd.Execute())

			out := buf.String()
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, "Built-in scenarios: demo, demo-scripted")
		})
	}
}
