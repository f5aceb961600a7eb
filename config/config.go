// Package config loads sclview settings from YAML.
//
// A missing file is not an error: every setting has a default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dhamidi/sclview/batch"
	"github.com/dhamidi/sclview/highlight"
	"github.com/dhamidi/sclview/scl"
)

// FileNames are looked up, in order, by Discover.
var FileNames = []string{".sclview.yaml", ".sclview.yml"}

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Extensions       []string      `yaml:"extensions"`
	QueryFile        string        `yaml:"query_file"`
	Highlight        bool          `yaml:"highlight"`
	RespectGitignore bool          `yaml:"respect_gitignore"`
	SkipHidden       bool          `yaml:"skip_hidden"`
	Theme            Theme         `yaml:"theme"`
	UI               UIConfig      `yaml:"ui"`
	WatchInterval    time.Duration `yaml:"watch_interval"`

	// dir is the directory of the file the config was read from. Relative
	// paths are resolved against it.
	dir string
}

type UIConfig struct {
	Addr string `yaml:"addr"`
}

func Default() *Config {
	return &Config{
		Extensions:    append([]string(nil), batch.DefaultExtensions...),
		Highlight:     true,
		UI:            UIConfig{Addr: ":8080"},
		WatchInterval: time.Second,
	}
}

// Load reads the file at path over the defaults. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Discover returns the path of the first config file found in dir.
func Discover(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func (c *Config) Validate() error {
	var problems []string
	if len(c.Extensions) == 0 {
		problems = append(problems, "extensions must not be empty")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			problems = append(problems, fmt.Sprintf("extension %q must start with a dot", ext))
		}
	}
	if c.UI.Addr == "" {
		problems = append(problems, "ui.addr must not be empty")
	}
	if c.WatchInterval <= 0 {
		problems = append(problems, "watch_interval must be positive")
	}
	if err := c.Theme.Styles().Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// HighlightQuery returns the source of the highlight query: the configured
// query file, or the built-in query.
func (c *Config) HighlightQuery() (string, error) {
	if c.QueryFile == "" {
		return scl.HighlightsQuery, nil
	}
	path := c.QueryFile
	if !filepath.IsAbs(path) && c.dir != "" {
		path = filepath.Join(c.dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read query file: %w", err)
	}
	return string(data), nil
}

// HighlightTheme returns the default palette with the configured entries
// replacing their defaults.
func (c *Config) HighlightTheme() highlight.Theme {
	return highlight.DefaultTheme().Merge(c.Theme.Styles())
}

// BatchOptions configures a batch scanner the way the config says.
func (c *Config) BatchOptions() []batch.Option {
	return []batch.Option{
		batch.WithExtensions(c.Extensions...),
		batch.WithGitignore(c.RespectGitignore),
		batch.WithSkipHidden(c.SkipHidden),
	}
}
