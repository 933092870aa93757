package shared

import (
	_ "embed"
	"fmt"
	"math/bits"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Player     PlayerConfig     `toml:"player"`
	Analyzer   AnalyzerConfig   `toml:"analyzer"`
	Visualizer VisualizerConfig `toml:"visualizer"`
	Library    LibraryConfig    `toml:"library"`
	Database   DatabaseConfig   `toml:"database"`
	API        APIConfig        `toml:"api"`
	Server     ServerConfig     `toml:"server"`
}

// PlayerConfig contains output device settings.
type PlayerConfig struct {
	DefaultVolume float64 `toml:"default_volume"`
	SampleRate    int     `toml:"sample_rate"`
	BufferMS      int     `toml:"buffer_ms"`
	TimeUpdateMS  int     `toml:"time_update_ms"`
	// MaxDownloadMB caps how much of a remote track is buffered into memory.
	MaxDownloadMB int `toml:"max_download_mb"`
}

// AnalyzerConfig contains spectrum analysis settings.
type AnalyzerConfig struct {
	FFTSize     int     `toml:"fft_size"`
	Smoothing   float64 `toml:"smoothing"`
	MinDecibels float64 `toml:"min_decibels"`
	MaxDecibels float64 `toml:"max_decibels"`
}

// VisualizerConfig contains renderer settings.
type VisualizerConfig struct {
	BarWidth int    `toml:"bar_width"`
	BarGap   int    `toml:"bar_gap"`
	Height   int    `toml:"height"`
	Scheme   string `toml:"scheme"`
	Mirrored bool   `toml:"mirrored"`
	FPS      int    `toml:"fps"`
}

// LibraryConfig selects where tracks and playlists come from.
type LibraryConfig struct {
	Source string `toml:"source"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// APIConfig contains the REST backend settings.
type APIConfig struct {
	BaseURL   string  `toml:"base_url"`
	Token     string  `toml:"token"`
	RateLimit float64 `toml:"rate_limit"`
}

// ServerConfig contains remote-control HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks value ranges that the playback core depends on.
func (c *Config) Validate() error {
	if c.Player.DefaultVolume < 0 || c.Player.DefaultVolume > 1 {
		return fmt.Errorf("%w: player.default_volume must be within [0, 1], got %v", ErrInvalidConfig, c.Player.DefaultVolume)
	}
	if c.Player.SampleRate <= 0 {
		return fmt.Errorf("%w: player.sample_rate must be positive", ErrInvalidConfig)
	}
	if c.Player.MaxDownloadMB <= 0 {
		return fmt.Errorf("%w: player.max_download_mb must be positive, got %d", ErrInvalidConfig, c.Player.MaxDownloadMB)
	}
	if n := c.Analyzer.FFTSize; n < 32 || n > 32768 || bits.OnesCount(uint(n)) != 1 {
		return fmt.Errorf("%w: analyzer.fft_size must be a power of two in [32, 32768], got %d", ErrInvalidConfig, n)
	}
	if c.Analyzer.Smoothing < 0 || c.Analyzer.Smoothing > 1 {
		return fmt.Errorf("%w: analyzer.smoothing must be within [0, 1]", ErrInvalidConfig)
	}
	if c.Analyzer.MinDecibels >= c.Analyzer.MaxDecibels {
		return fmt.Errorf("%w: analyzer.min_decibels must be below max_decibels", ErrInvalidConfig)
	}
	if c.Visualizer.BarWidth < 1 || c.Visualizer.BarGap < 0 || c.Visualizer.Height < 1 {
		return fmt.Errorf("%w: visualizer bar_width and height must be positive, bar_gap non-negative", ErrInvalidConfig)
	}
	if c.Visualizer.FPS < 1 || c.Visualizer.FPS > 120 {
		return fmt.Errorf("%w: visualizer.fps must be within [1, 120]", ErrInvalidConfig)
	}
	switch c.Library.Source {
	case "local", "api":
	default:
		return fmt.Errorf("%w: library.source must be \"local\" or \"api\", got %q", ErrInvalidConfig, c.Library.Source)
	}
	return nil
}
