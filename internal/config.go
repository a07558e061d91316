package internal

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nnotes/internal/notestore"
	"github.com/starford/nnotes/internal/ranker"
)

// Index backends.
const (
	BackendInverted = "inverted"
	BackendSQLite   = "sqlite"
	BackendBleve    = "bleve"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Data   DataConfig        `yaml:"data"`
	Index  IndexConfig       `yaml:"index"`
	Search SearchConfig      `yaml:"search"`
	Watch  WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	return c.Watch.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.Required, validation.In(LogFormatJSON, LogFormatText)),
	)
}

// DataConfig locates the data directory and the note snapshot inside it.
type DataConfig struct {
	Path      string `yaml:"path"`
	NotesFile string `yaml:"notes_file"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.NotesFile, validation.Required, validation.By(relativePath)),
	)
}

// IndexConfig selects the search index backend. Dir is relative to the
// data directory.
type IndexConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendInverted, BackendSQLite, BackendBleve)),
		validation.Field(&c.Dir, validation.Required, validation.By(relativePath)),
	)
}

// SearchConfig tunes ranking and the result cap.
type SearchConfig struct {
	Limit        int     `yaml:"limit"`
	TitleBoost   float64 `yaml:"title_boost"`
	ContentBoost float64 `yaml:"content_boost"`
	K1           float64 `yaml:"k1"`
	B            float64 `yaml:"b"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Limit, validation.Required, validation.Min(1), validation.Max(1000)),
		validation.Field(&c.TitleBoost, validation.Required, validation.Min(0.0)),
		validation.Field(&c.ContentBoost, validation.Required, validation.Min(0.0)),
		validation.Field(&c.K1, validation.Min(0.0)),
		validation.Field(&c.B, validation.Min(0.0), validation.Max(1.0)),
	)
}

// Params converts the search configuration into ranking parameters.
func (c *SearchConfig) Params() ranker.Params {
	p := ranker.DefaultParams()
	p.K1 = c.K1
	p.B = c.B
	p.Boosts["title"] = c.TitleBoost
	p.Boosts["content"] = c.ContentBoost
	return p
}

// WatchConfig tunes --watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

func relativePath(value interface{}) error {
	p, _ := value.(string)
	if filepath.IsAbs(p) || !filepath.IsLocal(p) {
		return errors.New("must be a relative path inside the data directory")
	}
	return nil
}

// DefaultDataDir returns $XDG_DATA_HOME/nnotes, falling back to
// ~/.local/share/nnotes.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "nnotes")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "nnotes")
	}
	return filepath.Join(home, ".local", "share", "nnotes")
}

// DefaultConfigPath returns the config file looked up when --config is not
// given.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "nnotes", "config.yaml")
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelWarn,
			LogFormat: LogFormatText,
		},
		Data: DataConfig{
			Path:      DefaultDataDir(),
			NotesFile: notestore.DefaultKey,
		},
		Index: IndexConfig{
			Backend: BackendInverted,
			Dir:     "index",
		},
		Search: SearchConfig{
			Limit:        10,
			TitleBoost:   2,
			ContentBoost: 1,
			K1:           ranker.DefaultK1,
			B:            ranker.DefaultB,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
	}
}
