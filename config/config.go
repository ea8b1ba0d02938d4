// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/config.go
// Summary: Server configuration loaded from YAML and TEXELSPLIT_* variables.
// Usage: Load resolves defaults, then the config file, then the environment.
// Command-line flags are applied on top by the caller.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Engine names.
const (
	EngineNone     = "none"
	EngineHeadless = "headless"
	EnginePTY      = "pty"
)

// Config is the server configuration.
type Config struct {
	SocketPath    string `yaml:"socket_path"`
	Engine        string `yaml:"engine"`
	Shell         string `yaml:"shell"`
	TerminalCols  int    `yaml:"terminal_cols"`
	TerminalRows  int    `yaml:"terminal_rows"`
	JournalPath   string `yaml:"journal_path"`
	Diagnostics   bool   `yaml:"diagnostics"`
	MaxLineBytes  int    `yaml:"max_line_bytes"`
	DefaultPanel  string `yaml:"default_panel"`
	WorkspaceName string `yaml:"workspace_name"`

	// ConfigFile is the file the values were read from, if any.
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values. The socket path has no
// default: the transport must be chosen explicitly.
func Defaults() *Config {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Config{
		Engine:       EngineHeadless,
		Shell:        shell,
		TerminalCols: 80,
		TerminalRows: 24,
		MaxLineBytes: 1 << 20,
		DefaultPanel: "terminal",
	}
}

// Load reads configuration from path (or the default location when path is
// empty) and the environment. A missing default file is not an error; a
// missing explicit file is.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var fileCfg Config
			if err := yaml.Unmarshal(data, &fileCfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
			cfg.ConfigFile = path
			mergeFile(cfg, &fileCfg)
		case explicit || !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if err := mergeEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be repaired. The socket path is not
// checked here; the server reports a missing transport itself.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineNone, EngineHeadless, EnginePTY:
	default:
		return fmt.Errorf("config: unknown engine %q", c.Engine)
	}
	if c.TerminalCols <= 0 || c.TerminalRows <= 0 {
		return fmt.Errorf("config: terminal size %dx%d must be positive", c.TerminalCols, c.TerminalRows)
	}
	if c.MaxLineBytes < 1024 {
		return fmt.Errorf("config: max_line_bytes %d is below 1024", c.MaxLineBytes)
	}
	if c.Engine == EnginePTY && c.Shell == "" {
		return errors.New("config: pty engine needs a shell")
	}
	return nil
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.SocketPath != "" {
		cfg.SocketPath = expandHome(file.SocketPath)
	}
	if file.Engine != "" {
		cfg.Engine = file.Engine
	}
	if file.Shell != "" {
		cfg.Shell = file.Shell
	}
	if file.TerminalCols > 0 {
		cfg.TerminalCols = file.TerminalCols
	}
	if file.TerminalRows > 0 {
		cfg.TerminalRows = file.TerminalRows
	}
	if file.JournalPath != "" {
		cfg.JournalPath = expandHome(file.JournalPath)
	}
	if file.Diagnostics {
		cfg.Diagnostics = true
	}
	if file.MaxLineBytes > 0 {
		cfg.MaxLineBytes = file.MaxLineBytes
	}
	if file.DefaultPanel != "" {
		cfg.DefaultPanel = file.DefaultPanel
	}
	if file.WorkspaceName != "" {
		cfg.WorkspaceName = file.WorkspaceName
	}
}

// mergeEnv applies TEXELSPLIT_* variables onto cfg. Env always wins over the
// file.
func mergeEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q is not an integer", name, v)
		}
		*dst = n
		return nil
	}

	str("TEXELSPLIT_SOCKET", &cfg.SocketPath)
	str("TEXELSPLIT_ENGINE", &cfg.Engine)
	str("TEXELSPLIT_SHELL", &cfg.Shell)
	str("TEXELSPLIT_JOURNAL", &cfg.JournalPath)
	str("TEXELSPLIT_DEFAULT_PANEL", &cfg.DefaultPanel)
	str("TEXELSPLIT_WORKSPACE_NAME", &cfg.WorkspaceName)
	for name, dst := range map[string]*int{
		"TEXELSPLIT_TERMINAL_COLS":  &cfg.TerminalCols,
		"TEXELSPLIT_TERMINAL_ROWS":  &cfg.TerminalRows,
		"TEXELSPLIT_MAX_LINE_BYTES": &cfg.MaxLineBytes,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}
	if v, ok := lookup("TEXELSPLIT_DIAGNOSTICS"); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: TEXELSPLIT_DIAGNOSTICS=%q is not a boolean", v)
		}
		cfg.Diagnostics = b
	}
	cfg.SocketPath = expandHome(cfg.SocketPath)
	cfg.JournalPath = expandHome(cfg.JournalPath)
	return nil
}
