// ABOUTME: Layered configuration for the queue player and stream server
// ABOUTME: Defaults, optional YAML file and SENDSPIN_QUEUE_* environment via viper
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. SENDSPIN_QUEUE_OUTPUT_BACKEND
const EnvPrefix = "SENDSPIN_QUEUE"

// Config is the full application configuration
type Config struct {
	Queue  QueueConfig  `mapstructure:"queue"`
	Output OutputConfig `mapstructure:"output"`
	Stream StreamConfig `mapstructure:"stream"`
	Watch  WatchConfig  `mapstructure:"watch"`
	Log    LogConfig    `mapstructure:"log"`
}

// QueueConfig controls keep-alive and the silence filler
type QueueConfig struct {
	KeepAlive      bool          `mapstructure:"keep_alive"`
	FillerDuration time.Duration `mapstructure:"filler_duration"`
	// FixedFillerChannels and FixedFillerRate pin the filler format when both are set
	FixedFillerChannels int `mapstructure:"fixed_filler_channels"`
	FixedFillerRate     int `mapstructure:"fixed_filler_rate"`
}

// OutputConfig selects the sink and the format everything is conformed to
type OutputConfig struct {
	Backend    string `mapstructure:"backend"`
	SampleRate int    `mapstructure:"sample_rate"`
	Channels   int    `mapstructure:"channels"`
	BitDepth   int    `mapstructure:"bit_depth"`
	BlockSize  int    `mapstructure:"block_size"`
	Volume     int    `mapstructure:"volume"`
	WAVPath    string `mapstructure:"wav_path"`
}

// StreamConfig controls the websocket stream server
type StreamConfig struct {
	Addr        string        `mapstructure:"addr"`
	Codec       string        `mapstructure:"codec"`
	ChunkPeriod time.Duration `mapstructure:"chunk_period"`
	BufferAhead time.Duration `mapstructure:"buffer_ahead"`
	Name        string        `mapstructure:"name"`
	MDNS        bool          `mapstructure:"mdns"`
}

// WatchConfig names a spool directory whose new audio files are queued
type WatchConfig struct {
	Dir string `mapstructure:"dir"`
}

// LogConfig controls logging
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("queue.keep_alive", false)
	v.SetDefault("queue.filler_duration", 10*time.Millisecond)
	v.SetDefault("queue.fixed_filler_channels", 0)
	v.SetDefault("queue.fixed_filler_rate", 0)

	v.SetDefault("output.backend", "oto")
	v.SetDefault("output.sample_rate", 48000)
	v.SetDefault("output.channels", 2)
	v.SetDefault("output.bit_depth", 16)
	v.SetDefault("output.block_size", 1024)
	v.SetDefault("output.volume", 100)
	v.SetDefault("output.wav_path", "")

	v.SetDefault("stream.addr", ":8927")
	v.SetDefault("stream.codec", "pcm")
	v.SetDefault("stream.chunk_period", 20*time.Millisecond)
	v.SetDefault("stream.buffer_ahead", 500*time.Millisecond)
	v.SetDefault("stream.name", "Sendspin Queue")
	v.SetDefault("stream.mdns", false)

	v.SetDefault("watch.dir", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Load reads configuration into a Config. configFile may be empty, in which
// case config.yaml is looked up in the working directory and
// $HOME/.config/sendspin-queue and skipped when absent.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/sendspin-queue")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	var errs []error

	if c.Queue.FillerDuration <= 0 {
		errs = append(errs, fmt.Errorf("queue.filler_duration must be positive, got %s", c.Queue.FillerDuration))
	}
	if (c.Queue.FixedFillerChannels > 0) != (c.Queue.FixedFillerRate > 0) {
		errs = append(errs, errors.New("queue.fixed_filler_channels and queue.fixed_filler_rate must be set together"))
	}

	switch c.Output.Backend {
	case "oto", "malgo", "wav":
	default:
		errs = append(errs, fmt.Errorf("output.backend must be oto, malgo or wav, got %q", c.Output.Backend))
	}
	if c.Output.SampleRate < 8000 || c.Output.SampleRate > 384000 {
		errs = append(errs, fmt.Errorf("output.sample_rate out of range: %d", c.Output.SampleRate))
	}
	if c.Output.Channels < 1 || c.Output.Channels > 8 {
		errs = append(errs, fmt.Errorf("output.channels out of range: %d", c.Output.Channels))
	}
	switch c.Output.BitDepth {
	case 16, 24, 32:
	default:
		errs = append(errs, fmt.Errorf("output.bit_depth must be 16, 24 or 32, got %d", c.Output.BitDepth))
	}
	if c.Output.BlockSize < 1 {
		errs = append(errs, fmt.Errorf("output.block_size must be at least 1, got %d", c.Output.BlockSize))
	}
	if c.Output.Volume < 0 || c.Output.Volume > 100 {
		errs = append(errs, fmt.Errorf("output.volume must be 0-100, got %d", c.Output.Volume))
	}

	switch c.Stream.Codec {
	case "pcm", "opus":
	default:
		errs = append(errs, fmt.Errorf("stream.codec must be pcm or opus, got %q", c.Stream.Codec))
	}
	if c.Stream.ChunkPeriod < time.Millisecond {
		errs = append(errs, fmt.Errorf("stream.chunk_period too short: %s", c.Stream.ChunkPeriod))
	}
	if c.Stream.BufferAhead < 0 {
		errs = append(errs, fmt.Errorf("stream.buffer_ahead must not be negative: %s", c.Stream.BufferAhead))
	}

	return errors.Join(errs...)
}
