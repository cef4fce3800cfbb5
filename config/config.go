// Package config loads the canvas server and CLI configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/containment"
	"github.com/meikuraledutech/canvas/history"
	"github.com/meikuraledutech/canvas/workspace"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds canvas configuration.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
	Storage     StorageConfig     `toml:"storage"`
	Editor      EditorConfig      `toml:"editor"`
	Containment ContainmentConfig `toml:"containment"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `toml:"level"`  // "debug", "info", "warn", "error"
	Format string `toml:"format"` // "text", "json"
}

// StorageConfig selects where documents are kept.
type StorageConfig struct {
	Backend     string `toml:"backend"` // "memory", "postgres"
	DatabaseURL string `toml:"database_url"`
	Key         string `toml:"key"`
}

// EditorConfig tunes the workspace store.
type EditorConfig struct {
	HistoryCap      int      `toml:"history_cap"`
	PersistDebounce Duration `toml:"persist_debounce"`
	FrameInterval   Duration `toml:"frame_interval"`
}

// ContainmentConfig tunes container sizing.
type ContainmentConfig struct {
	Padding           float64               `toml:"padding"`
	DefaultNodeWidth  float64               `toml:"default_node_width"`
	DefaultNodeHeight float64               `toml:"default_node_height"`
	MinSizes          map[string]SizeConfig `toml:"min_sizes"`
}

// SizeConfig is a width/height pair.
type SizeConfig struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// Duration is a time.Duration written as a string such as "500ms".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the default configuration.
func Default() *Config {
	ct := containment.DefaultOptions()
	mins := make(map[string]SizeConfig, len(ct.MinSizes))
	for typ, s := range ct.MinSizes {
		mins[typ] = SizeConfig{Width: s.W, Height: s.H}
	}
	return &Config{
		Server:  ServerConfig{Addr: ":3000"},
		Log:     LogConfig{Level: "info", Format: "text"},
		Storage: StorageConfig{Backend: BackendMemory, Key: workspace.DefaultKey},
		Editor: EditorConfig{
			HistoryCap:      history.DefaultCap,
			PersistDebounce: Duration{500 * time.Millisecond},
			FrameInterval:   Duration{16 * time.Millisecond},
		},
		Containment: ContainmentConfig{
			Padding:           ct.Padding,
			DefaultNodeWidth:  ct.NodeSize.W,
			DefaultNodeHeight: ct.NodeSize.H,
			MinSizes:          mins,
		},
	}
}

// Load reads the config file at path over the defaults. A missing file is not
// an error. DATABASE_URL, when set, overrides storage.database_url.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Storage.DatabaseURL = url
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("config: storage.database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.Containment.Padding < 0 {
		return fmt.Errorf("config: containment.padding must not be negative, got %v", c.Containment.Padding)
	}
	return nil
}

// Logger builds a logger writing to w at the configured level and format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WorkspaceOptions converts the editor and containment sections into options
// for workspace.Open.
func (c *Config) WorkspaceOptions(logger *slog.Logger) workspace.Options {
	ct := containment.Options{
		Padding:  c.Containment.Padding,
		NodeSize: canvas.Size{W: c.Containment.DefaultNodeWidth, H: c.Containment.DefaultNodeHeight},
		MinSizes: make(map[string]canvas.Size, len(c.Containment.MinSizes)),
	}
	for typ, s := range c.Containment.MinSizes {
		ct.MinSizes[typ] = canvas.Size{W: s.Width, H: s.Height}
	}
	return workspace.Options{
		Key:             c.Storage.Key,
		HistoryCap:      c.Editor.HistoryCap,
		PersistDebounce: c.Editor.PersistDebounce.Duration,
		FrameInterval:   c.Editor.FrameInterval.Duration,
		Containment:     ct,
		Logger:          logger,
	}
}
