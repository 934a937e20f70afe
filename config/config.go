package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Backend selects the codec implementation registered at startup.
type Backend string

const (
	BackendStdlib Backend = "stdlib"
	BackendVips   Backend = "vips"
)

// Resampler names the interpolation used when downsampling.
type Resampler string

const (
	ResamplerCatmullRom Resampler = "catmullrom"
	ResamplerBiLinear   Resampler = "bilinear"
	ResamplerLanczos3   Resampler = "lanczos3"
)

// Config is the top-level configuration struct.  Start from Default() and
// override only what you need.
type Config struct {
	// Pipeline.
	MaxDimension    int       `koanf:"max_dimension"`    // longest side after resize; default 1920
	DefaultQuality  int       `koanf:"default_quality"`  // 1-100; default 80
	DefaultStrategy string    `koanf:"default_strategy"` // preset id: jpeg, webp, quantization, dct
	Resampler       Resampler `koanf:"resampler"`
	Backend         Backend   `koanf:"backend"`

	// Delay is an optional pause before each interactive run.  Zero disables it.
	Delay time.Duration `koanf:"delay"`

	// Worker pool controls.
	WorkerCount int           `koanf:"worker_count"` // default: runtime.NumCPU()
	QueueSize   int           `koanf:"queue_size"`   // max queued runs before backpressure
	JobTimeout  time.Duration `koanf:"job_timeout"`

	// Input limits.
	MaxImageBytes int64 `koanf:"max_image_bytes"` // 0 = no limit
	ChunkSize     int   `koanf:"chunk_size"`      // streaming chunk size in bytes

	Storage StorageConfig `koanf:"storage"`
	Server  ServerConfig  `koanf:"server"`

	LogLevel string `koanf:"log_level"` // "debug", "info", "warn", "error"
}

// StorageConfig configures the local filesystem storage adapter.
type StorageConfig struct {
	Dir         string `koanf:"dir"`
	Permissions uint32 `koanf:"permissions"` // default 0644
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string `koanf:"addr"`
	MaxUploadBytes int64  `koanf:"max_upload_bytes"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		MaxDimension:    1920,
		DefaultQuality:  80,
		DefaultStrategy: "jpeg",
		Resampler:       ResamplerCatmullRom,
		Backend:         BackendStdlib,
		WorkerCount:     0, // resolved at runtime to NumCPU
		QueueSize:       64,
		JobTimeout:      30 * time.Second,
		MaxImageBytes:   50 << 20,
		ChunkSize:       32 * 1024,
		Storage: StorageConfig{
			Dir:         "compressed",
			Permissions: 0o644,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 50 << 20,
		},
		LogLevel: "info",
	}
}

// Load merges the given TOML files over Default() in order (last wins).
// Paths that do not exist are skipped.
func Load(paths ...string) (Config, error) {
	k := koanf.New(".")
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.MaxDimension <= 0 {
		return errors.New("config: MaxDimension must be positive")
	}
	if c.DefaultQuality < 1 || c.DefaultQuality > 100 {
		return errors.New("config: DefaultQuality must be between 1 and 100")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: ChunkSize must be positive")
	}
	if c.Delay < 0 {
		return errors.New("config: Delay must not be negative")
	}
	switch c.Resampler {
	case ResamplerCatmullRom, ResamplerBiLinear, ResamplerLanczos3:
	default:
		return fmt.Errorf("config: unknown resampler %q", c.Resampler)
	}
	switch c.Backend {
	case BackendStdlib, BackendVips:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}
