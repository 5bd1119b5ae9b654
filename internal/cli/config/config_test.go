package config

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "starfleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("state", "", "")
	fs.StringP("output", "o", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.String("log-format", "", "")
	fs.Int("parallelism", 0, "")
	fs.String("addr", "", "")
	fs.Duration("debounce", 0, "")
	fs.String("scenarios-dir", "", "")
	fs.BoolP("watch", "w", false, "")
	fs.Bool("no-record", false, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	loaded, err := Load("", nil)
	require.NoError(t, err)

	assert.Empty(t, loaded.File)
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), loaded.StatePath)
	assert.Equal(t, DefaultOutput, loaded.OutputFormat)
	assert.Equal(t, DefaultLogFormat, loaded.LogFormat)
	assert.Equal(t, DefaultParallelism, loaded.Parallelism)
	assert.Equal(t, "127.0.0.1:8080", loaded.Serve.Addr)
	assert.Equal(t, 10*time.Second, loaded.Serve.ReadTimeout)
	assert.Equal(t, 200*time.Millisecond, loaded.Watch.Debounce)
	assert.False(t, loaded.Verbose)
}

func TestLoad_FileFoundUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
state_path: data/games.db
output: json
parallelism: 2
serve:
  addr: ":9090"
  write_timeout: 1m
watch:
  debounce: 50ms
`)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)

	loaded, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "starfleet.yaml"), loaded.File)
	assert.Equal(t, root, loaded.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "data", "games.db"), loaded.StatePath)
	assert.Equal(t, "json", loaded.OutputFormat)
	assert.Equal(t, 2, loaded.Parallelism)
	assert.Equal(t, ":9090", loaded.Serve.Addr)
	assert.Equal(t, time.Minute, loaded.Serve.WriteTimeout)
	assert.Equal(t, 10*time.Second, loaded.Serve.ReadTimeout, "unset keys keep their defaults")
	assert.Equal(t, 50*time.Millisecond, loaded.Watch.Debounce)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfgFile := writeConfig(t, dir, "output: markdown\nparallelism: 2\nlog_format: json\n")

	t.Setenv("STARFLEET_PARALLELISM", "3")
	t.Setenv("STARFLEET_SERVE__ADDR", ":7070")
	t.Setenv("STARFLEET_OUTPUT", "text")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"-o", "json", "--debounce", "1s", "--state", "mine.db"}))

	loaded, err := Load(cfgFile, flags)
	require.NoError(t, err)

	assert.Equal(t, "json", loaded.OutputFormat, "flag beats env and file")
	assert.Equal(t, 3, loaded.Parallelism, "env beats file")
	assert.Equal(t, ":7070", loaded.Serve.Addr)
	assert.Equal(t, "json", loaded.LogFormat, "file beats defaults")
	assert.Equal(t, time.Second, loaded.Watch.Debounce)
	assert.Equal(t, filepath.Join(dir, "mine.db"), loaded.StatePath)
}

func TestLoad_UnsetFlagsDoNotOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfgFile := writeConfig(t, dir, "output: markdown\n")

	flags := testFlags()
	require.NoError(t, flags.Parse(nil))

	loaded, err := Load(cfgFile, flags)
	require.NoError(t, err)
	assert.Equal(t, "markdown", loaded.OutputFormat)
}

func TestLoad_CommandFlagsAreIgnored(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--watch", "--no-record", "--debounce", "75ms", "--scenarios-dir", "battles"}))

	loaded, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 75*time.Millisecond, loaded.Watch.Debounce)
	assert.Equal(t, filepath.Join(dir, "battles"), loaded.ScenariosDir)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})

	t.Run("invalid values", func(t *testing.T) {
		cfgFile := writeConfig(t, dir, "output: xml\nparallelism: 0\n")
		_, err := Load(cfgFile, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalid))
		assert.Contains(t, err.Error(), "output must be one of")
		assert.Contains(t, err.Error(), "parallelism must be at least 1")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty output is auto", mutate: func(c *Config) { c.OutputFormat = "" }},
		{name: "state path", mutate: func(c *Config) { c.StatePath = "" }, errSubstr: "state_path is required"},
		{name: "log format", mutate: func(c *Config) { c.LogFormat = "xml" }, errSubstr: "log_format"},
		{name: "addr", mutate: func(c *Config) { c.Serve.Addr = "" }, errSubstr: "serve.addr"},
		{name: "timeouts", mutate: func(c *Config) { c.Serve.ReadTimeout = 0 }, errSubstr: "timeouts"},
		{name: "debounce", mutate: func(c *Config) { c.Watch.Debounce = -time.Second }, errSubstr: "debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Defaults()

	NewLogger(cfg, &buf).Info("hidden")
	assert.Empty(t, buf.String(), "info is below the default level")

	cfg.Verbose = true
	cfg.LogFormat = "json"
	NewLogger(cfg, &buf).Debug("shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestGetLogger(t *testing.T) {
	fallback := GetLogger(context.Background())
	require.NotNil(t, fallback)

	logger := NewLogger(Defaults(), &bytes.Buffer{})
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
