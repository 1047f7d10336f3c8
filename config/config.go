// Package config loads the optional TOML file that overrides the VM's
// runtime tunables.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config holds the VM's tunables: data-stack size, the argv offset
// ("file-first" convention), and whether a fatal runtime error prints a
// stack trace.
type Config struct {
	VM struct {
		StackSize int `toml:"stack_size"`
	} `toml:"vm"`

	Argv struct {
		FileFirst bool `toml:"file_first"`
	} `toml:"argv"`

	Debug struct {
		StackTrace bool `toml:"stack_trace"`
	} `toml:"debug"`
}

// DefaultConfig returns the tunables the VM uses when no file is found.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.VM.StackSize = 256
	cfg.Argv.FileFirst = false
	cfg.Debug.StackTrace = false
	return cfg
}

// Load reads path, falling back to DefaultConfig() when it doesn't
// exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}
