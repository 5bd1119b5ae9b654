// Package config loads the starfleet CLI configuration.
//
// Values are layered from built-in defaults, a starfleet.yaml file,
// STARFLEET_ environment variables and explicitly set flags, in increasing
// order of precedence.
package config

import (
	"time"

	"github.com/leapstack-labs/starfleet/internal/scenario"
	"github.com/leapstack-labs/starfleet/internal/server"
)

// Config holds all CLI configuration options.
type Config struct {
	StatePath    string      `koanf:"state_path"`
	OutputFormat string      `koanf:"output"`
	Verbose      bool        `koanf:"verbose"`
	LogFormat    string      `koanf:"log_format"`
	ScenariosDir string      `koanf:"scenarios_dir"`
	Parallelism  int         `koanf:"parallelism"`
	Serve        ServeConfig `koanf:"serve"`
	Watch        WatchConfig `koanf:"watch"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// ServeConfig configures the HTTP API.
type ServeConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// WatchConfig configures run --watch.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce"`
}

// Default configuration values.
const (
	DefaultStateFile    = ".starfleet/state.db"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogFormat    = "text"
	DefaultScenariosDir = "scenarios"
	DefaultParallelism  = 4
)

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		StatePath:    DefaultStateFile,
		OutputFormat: DefaultOutput,
		LogFormat:    DefaultLogFormat,
		ScenariosDir: DefaultScenariosDir,
		Parallelism:  DefaultParallelism,
		Serve: ServeConfig{
			Addr:         server.DefaultAddr,
			ReadTimeout:  server.DefaultReadTimeout,
			WriteTimeout: server.DefaultWriteTimeout,
		},
		Watch: WatchConfig{Debounce: scenario.DefaultDebounce},
	}
}

func defaultMap() map[string]any {
	d := Defaults()
	return map[string]any{
		"state_path":          d.StatePath,
		"output":              d.OutputFormat,
		"verbose":             d.Verbose,
		"log_format":          d.LogFormat,
		"scenarios_dir":       d.ScenariosDir,
		"parallelism":         d.Parallelism,
		"serve.addr":          d.Serve.Addr,
		"serve.read_timeout":  d.Serve.ReadTimeout,
		"serve.write_timeout": d.Serve.WriteTimeout,
		"watch.debounce":      d.Watch.Debounce,
	}
}
