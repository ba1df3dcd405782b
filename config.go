package evpack

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/evpack/bank"
	"github.com/arloliu/evpack/format"
	"github.com/arloliu/evpack/registry"
)

// Config is the file form of the writer and reader options.
//
//	compression: lzma
//	max_bank_payload: 65524
//	big_endian: false
//	log_level: info
//	versions:
//	  Tracks: 2
//	locations:
//	  - Rec/Track/Best
type Config struct {
	Compression    string           `yaml:"compression"`
	MaxBankPayload int              `yaml:"max_bank_payload"`
	BigEndian      bool             `yaml:"big_endian"`
	LogLevel       string           `yaml:"log_level"`
	Versions       map[string]uint8 `yaml:"versions"`
	// Locations are registered up front, so readers resolve them without having written them.
	Locations []string `yaml:"locations"`
}

// DefaultConfig returns the configuration matching the zero-option Writer.
func DefaultConfig() Config {
	return Config{
		Compression:    "lzma",
		MaxBankPayload: bank.MaxPayload,
		LogLevel:       "info",
	}
}

// ParseConfig decodes a YAML configuration. Missing fields keep their defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// LoadConfig reads and decodes a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	return ParseConfig(data)
}

// Level returns the slog level named by LogLevel, defaulting to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Options converts the configuration to writer and reader options.
// logger may be nil.
func (c Config) Options(logger *slog.Logger) ([]Option, error) {
	method, err := format.ParseCompressionType(c.Compression)
	if err != nil {
		return nil, err
	}

	reg, err := registry.NewHashed(c.Locations...)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithCompression(method),
		WithMaxBankPayload(c.MaxBankPayload),
		WithRegistry(reg),
		WithLogger(logger),
	}
	if c.BigEndian {
		opts = append(opts, WithBigEndian())
	}

	for name, v := range c.Versions {
		class, err := format.ParseClassID(name)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithPackingVersion(class, v))
	}

	return opts, nil
}
