// Package config loads flowwctl settings from TOML.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/floww/internal/midiimport"
	"github.com/danmuck/floww/internal/model"
	"github.com/danmuck/floww/internal/sheet"
	"github.com/danmuck/floww/internal/stream"
)

type Config struct {
	Encoder EncoderConfig
	Decoder DecoderConfig
	Sheet   SheetConfig
	Import  ImportConfig
}

type EncoderConfig struct {
	MaxTrackIDBytes uint64
	MaxPayloadBytes uint64
}

type DecoderConfig struct {
	MaxTrackIDBytes uint64
	MaxPayloadBytes uint64
	StrictChecksum  bool
	ChunkSize       int
}

type SheetConfig struct {
	Ordering sheet.Ordering
}

type ImportConfig struct {
	Validation  model.Validation
	TrackPrefix string
	SkipEmpty   bool
}

func Default() Config {
	limits := stream.DefaultLimits()
	return Config{
		Encoder: EncoderConfig{
			MaxTrackIDBytes: limits.MaxTrackIDBytes,
			MaxPayloadBytes: limits.MaxPayloadBytes,
		},
		Decoder: DecoderConfig{
			MaxTrackIDBytes: limits.MaxTrackIDBytes,
			MaxPayloadBytes: limits.MaxPayloadBytes,
			ChunkSize:       stream.DefaultChunkSize,
		},
		Sheet: SheetConfig{Ordering: sheet.Reject},
		Import: ImportConfig{
			Validation:  model.Strict,
			TrackPrefix: midiimport.DefaultTrackPrefix,
		},
	}
}

type fileConfig struct {
	Encoder struct {
		MaxTrackIDBytes int64 `toml:"max_track_id_bytes"`
		MaxPayloadBytes int64 `toml:"max_payload_bytes"`
	} `toml:"encoder"`
	Decoder struct {
		MaxTrackIDBytes int64 `toml:"max_track_id_bytes"`
		MaxPayloadBytes int64 `toml:"max_payload_bytes"`
		StrictChecksum  bool  `toml:"strict_checksum"`
		ChunkSize       int   `toml:"chunk_size"`
	} `toml:"decoder"`
	Sheet struct {
		Ordering string `toml:"ordering"`
	} `toml:"sheet"`
	Import struct {
		Validation  string `toml:"validation"`
		TrackPrefix string `toml:"track_prefix"`
		SkipEmpty   bool   `toml:"skip_empty"`
	} `toml:"import"`
}

// Load reads path and applies the keys it defines over Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("config unknown keys (%s): %s", path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("encoder", "max_track_id_bytes") {
		if cfg.Encoder.MaxTrackIDBytes, err = positive("encoder.max_track_id_bytes", raw.Encoder.MaxTrackIDBytes); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("encoder", "max_payload_bytes") {
		if cfg.Encoder.MaxPayloadBytes, err = positive("encoder.max_payload_bytes", raw.Encoder.MaxPayloadBytes); err != nil {
			return Config{}, err
		}
	}

	if meta.IsDefined("decoder", "max_track_id_bytes") {
		if cfg.Decoder.MaxTrackIDBytes, err = positive("decoder.max_track_id_bytes", raw.Decoder.MaxTrackIDBytes); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("decoder", "max_payload_bytes") {
		if cfg.Decoder.MaxPayloadBytes, err = positive("decoder.max_payload_bytes", raw.Decoder.MaxPayloadBytes); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("decoder", "strict_checksum") {
		cfg.Decoder.StrictChecksum = raw.Decoder.StrictChecksum
	}
	if meta.IsDefined("decoder", "chunk_size") {
		if raw.Decoder.ChunkSize <= 0 {
			return Config{}, fmt.Errorf("decoder.chunk_size must be positive: %d", raw.Decoder.ChunkSize)
		}
		cfg.Decoder.ChunkSize = raw.Decoder.ChunkSize
	}

	if meta.IsDefined("sheet", "ordering") {
		if cfg.Sheet.Ordering, err = sheet.ParseOrdering(raw.Sheet.Ordering); err != nil {
			return Config{}, fmt.Errorf("parse sheet.ordering: %w", err)
		}
	}

	if meta.IsDefined("import", "validation") {
		if cfg.Import.Validation, err = ParseValidation(raw.Import.Validation); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("import", "track_prefix") {
		prefix := strings.TrimSpace(raw.Import.TrackPrefix)
		if prefix == "" {
			return Config{}, fmt.Errorf("import.track_prefix must not be empty")
		}
		cfg.Import.TrackPrefix = prefix
	}
	if meta.IsDefined("import", "skip_empty") {
		cfg.Import.SkipEmpty = raw.Import.SkipEmpty
	}

	return cfg, nil
}

// ParseValidation maps "strict" or "clamp" onto a model.Validation.
func ParseValidation(raw string) (model.Validation, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "strict":
		return model.Strict, nil
	case "clamp":
		return model.Clamp, nil
	default:
		return model.Strict, fmt.Errorf("unknown validation mode %q", raw)
	}
}

func (c Config) StreamEncoder() stream.EncoderConfig {
	cfg := stream.DefaultEncoderConfig()
	cfg.Limits = stream.Limits{
		MaxTrackIDBytes: c.Encoder.MaxTrackIDBytes,
		MaxPayloadBytes: c.Encoder.MaxPayloadBytes,
	}
	return cfg
}

func (c Config) StreamDecoder() stream.DecoderConfig {
	cfg := stream.DefaultDecoderConfig()
	cfg.Limits = stream.Limits{
		MaxTrackIDBytes: c.Decoder.MaxTrackIDBytes,
		MaxPayloadBytes: c.Decoder.MaxPayloadBytes,
	}
	cfg.StrictChecksum = c.Decoder.StrictChecksum
	cfg.ChunkSize = c.Decoder.ChunkSize
	return cfg
}

func (c Config) SheetOptions() []sheet.Option {
	return []sheet.Option{sheet.WithOrdering(c.Sheet.Ordering)}
}

func (c Config) ImportOptions() midiimport.Options {
	opts := midiimport.DefaultOptions()
	opts.Validation = c.Import.Validation
	opts.TrackPrefix = c.Import.TrackPrefix
	opts.SkipEmpty = c.Import.SkipEmpty
	return opts
}

func positive(key string, v int64) (uint64, error) {
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive: %d", key, v)
	}
	return uint64(v), nil
}
