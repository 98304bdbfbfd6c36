// Package config loads the tunehub configuration from YAML or TOML files, .env files and
// TUNEHUB_* environment variables.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
)

//go:embed config.example.toml
var exampleConf []byte

// Engines and session stores.
const (
	EngineBeep = "beep"
	EngineMock = "mock"

	StoreFile   = "file"
	StoreMemory = "memory"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TUNEHUB_"

// Config is the application configuration.
type Config struct {
	Library   LibraryConfig   `yaml:"library" toml:"library"`
	Audio     AudioConfig     `yaml:"audio" toml:"audio"`
	Playback  PlaybackConfig  `yaml:"playback" toml:"playback"`
	Session   SessionConfig   `yaml:"session" toml:"session"`
	Providers ProvidersConfig `yaml:"providers" toml:"providers"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// LibraryConfig configures the local provider.
type LibraryConfig struct {
	Folders   []string `yaml:"folders" toml:"folders"`
	Watch     bool     `yaml:"watch" toml:"watch"`
	Workers   int      `yaml:"workers" toml:"workers"`
	CachePath string   `yaml:"cache_path" toml:"cache_path"`
}

// AudioConfig selects the audio engine.
type AudioConfig struct {
	Engine     string `yaml:"engine" toml:"engine"`
	SampleRate int    `yaml:"sample_rate" toml:"sample_rate"`
}

// PlaybackConfig holds the mixer and history defaults.
type PlaybackConfig struct {
	Volume    float64 `yaml:"volume" toml:"volume"`
	UndoLimit int     `yaml:"undo_limit" toml:"undo_limit"`
}

// SessionConfig configures where the session snapshot lives.
type SessionConfig struct {
	Store     string        `yaml:"store" toml:"store"`
	Path      string        `yaml:"path" toml:"path"`
	SaveDelay time.Duration `yaml:"save_delay" toml:"save_delay"`
}

// ProvidersConfig configures provider activation.
type ProvidersConfig struct {
	Enabled         []string `yaml:"enabled" toml:"enabled"`
	HostIntegration bool     `yaml:"host_integration" toml:"host_integration"`
	DemoTracks      int      `yaml:"demo_tracks" toml:"demo_tracks"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Dir returns the directory holding tunehub's configuration and data.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "tunehub")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := Dir()
	music := "Music"
	if home, err := os.UserHomeDir(); err == nil {
		music = filepath.Join(home, "Music")
	}
	return &Config{
		Library: LibraryConfig{
			Folders:   []string{music},
			Watch:     true,
			Workers:   4,
			CachePath: filepath.Join(dir, "metadata.db"),
		},
		Audio: AudioConfig{
			Engine:     EngineBeep,
			SampleRate: 44100,
		},
		Playback: PlaybackConfig{
			Volume:    80,
			UndoLimit: 100,
		},
		Session: SessionConfig{
			Store:     StoreFile,
			Path:      filepath.Join(dir, "session.json"),
			SaveDelay: time.Second,
		},
		Providers: ProvidersConfig{
			Enabled:         []string{"local"},
			HostIntegration: true,
			DemoTracks:      12,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration: defaults, then the file at path (if path is not empty),
// then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := lo.Filter(files, func(f string, _ int) bool {
		_, err := os.Stat(f)
		return err == nil
	})
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// ApplyEnv applies TUNEHUB_* overrides read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		return strings.TrimSpace(v), ok
	}
	setBool := func(key string, dst *bool) {
		if v, ok := get(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, domain.NewValidationError(EnvPrefix+key, v, "must be a boolean"))
				return
			}
			*dst = b
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, domain.NewValidationError(EnvPrefix+key, v, "must be an integer"))
				return
			}
			*dst = n
		}
	}
	setString := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	if v, ok := get("LIBRARY_FOLDERS"); ok {
		c.Library.Folders = splitList(v, string(os.PathListSeparator))
	}
	setBool("LIBRARY_WATCH", &c.Library.Watch)
	setInt("LIBRARY_WORKERS", &c.Library.Workers)
	setString("LIBRARY_CACHE_PATH", &c.Library.CachePath)
	setString("AUDIO_ENGINE", &c.Audio.Engine)
	setInt("AUDIO_SAMPLE_RATE", &c.Audio.SampleRate)
	if v, ok := get("VOLUME"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, domain.NewValidationError(EnvPrefix+"VOLUME", v, "must be a number"))
		} else {
			c.Playback.Volume = f
		}
	}
	setInt("UNDO_LIMIT", &c.Playback.UndoLimit)
	setString("SESSION_STORE", &c.Session.Store)
	setString("SESSION_PATH", &c.Session.Path)
	if v, ok := get("SESSION_SAVE_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, domain.NewValidationError(EnvPrefix+"SESSION_SAVE_DELAY", v, "must be a duration"))
		} else {
			c.Session.SaveDelay = d
		}
	}
	if v, ok := get("PROVIDERS"); ok {
		c.Providers.Enabled = splitList(v, ",")
	}
	setBool("HOST_INTEGRATION", &c.Providers.HostIntegration)
	setInt("DEMO_TRACKS", &c.Providers.DemoTracks)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FORMAT", &c.Logging.Format)

	return errors.Join(errs...)
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, field string, value any, msg string) {
		if !ok {
			errs = append(errs, domain.NewValidationError(field, value, msg))
		}
	}

	check(c.Library.Workers > 0, "library.workers", c.Library.Workers, "must be positive")
	check(lo.Contains([]string{EngineBeep, EngineMock}, c.Audio.Engine), "audio.engine", c.Audio.Engine, "must be beep or mock")
	check(c.Audio.SampleRate >= 8000 && c.Audio.SampleRate <= 192000, "audio.sample_rate", c.Audio.SampleRate, "must be between 8000 and 192000")
	check(c.Playback.Volume >= 0 && c.Playback.Volume <= 100, "playback.volume", c.Playback.Volume, "must be between 0 and 100")
	check(c.Playback.UndoLimit > 0, "playback.undo_limit", c.Playback.UndoLimit, "must be positive")
	check(lo.Contains([]string{StoreFile, StoreMemory}, c.Session.Store), "session.store", c.Session.Store, "must be file or memory")
	check(c.Session.Store != StoreFile || c.Session.Path != "", "session.path", c.Session.Path, "is required for the file store")
	check(c.Session.SaveDelay >= 0, "session.save_delay", c.Session.SaveDelay, "must not be negative")
	check(c.Providers.DemoTracks >= 0, "providers.demo_tracks", c.Providers.DemoTracks, "must not be negative")
	for _, id := range c.Providers.Enabled {
		if err := domain.ValidateProviderID(id); err != nil {
			errs = append(errs, err)
		}
	}
	check(lo.Contains([]string{"debug", "info", "warn", "warning", "error"}, strings.ToLower(c.Logging.Level)),
		"logging.level", c.Logging.Level, "must be debug, info, warn or error")
	check(lo.Contains([]string{"text", "json", "pretty"}, strings.ToLower(c.Logging.Format)),
		"logging.format", c.Logging.Format, "must be text, json or pretty")

	return errors.Join(errs...)
}

// WriteExample writes the commented example configuration to path.
// It refuses to overwrite an existing file.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) expandPaths() {
	c.Library.Folders = lo.Map(c.Library.Folders, func(f string, _ int) string { return expandHome(f) })
	c.Library.CachePath = expandHome(c.Library.CachePath)
	c.Session.Path = expandHome(c.Session.Path)
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func splitList(s, sep string) []string {
	return lo.Compact(lo.Map(strings.Split(s, sep), func(p string, _ int) string { return strings.TrimSpace(p) }))
}
