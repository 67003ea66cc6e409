// Package manifest handles kavya.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "kavya.toml"

// DefaultPrompt is the REPL prompt used when none is configured.
const DefaultPrompt = "(Kavya)→ "

// DefaultHistory is the REPL history file used when none is configured.
const DefaultHistory = "~/.kavya_history"

// Manifest represents a kavya.toml project configuration.
type Manifest struct {
	Project Project    `toml:"project"`
	REPL    REPLConfig `toml:"repl"`
	Log     LogConfig  `toml:"log"`
	Run     RunConfig  `toml:"run"`

	// Dir is the directory containing the kavya.toml file (set at load time).
	// Empty for a default manifest.
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// REPLConfig configures the interactive prompt.
type REPLConfig struct {
	Prompt  string `toml:"prompt"`
	History string `toml:"history"`
}

// LogConfig configures commonlog output.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"` // empty logs to stderr
}

// RunConfig configures script execution.
type RunConfig struct {
	Dump bool `toml:"dump"` // disassemble each chunk before running it
}

// Default returns the configuration used when no kavya.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.REPL.Prompt == "" {
		m.REPL.Prompt = DefaultPrompt
	}
	if m.REPL.History == "" {
		m.REPL.History = DefaultHistory
	}
}

// Load parses a kavya.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if m.Log.Verbosity < 0 {
		return nil, fmt.Errorf("%s: log verbosity must not be negative", path)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a kavya.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// HistoryPath returns the REPL history file with `~` expanded and relative
// paths resolved against the manifest directory. Returns "" if the home
// directory is needed but unknown.
func (m *Manifest) HistoryPath() string {
	return m.resolve(m.REPL.History)
}

// LogPath returns the log file path, or "" to log to stderr.
func (m *Manifest) LogPath() string {
	return m.resolve(m.Log.Path)
}

func (m *Manifest) resolve(path string) string {
	switch {
	case path == "":
		return ""
	case path == "~" || strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	case filepath.IsAbs(path) || m.Dir == "":
		return path
	}
	return filepath.Join(m.Dir, path)
}
