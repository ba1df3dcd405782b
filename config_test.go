package evpack

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/evpack/format"
	"github.com/arloliu/evpack/internal/synth"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
compression: zstd
big_endian: true
log_level: debug
versions:
  Tracks: 2
  MuonPIDs: 1
locations:
  - Rec/Track/Best
`))
	require.NoError(t, err)

	require.Equal(t, "zstd", cfg.Compression)
	require.Equal(t, DefaultConfig().MaxBankPayload, cfg.MaxBankPayload)
	require.True(t, cfg.BigEndian)
	require.Equal(t, slog.LevelDebug, cfg.Level())
	require.Equal(t, map[string]uint8{"Tracks": 2, "MuonPIDs": 1}, cfg.Versions)

	opts, err := cfg.Options(nil)
	require.NoError(t, err)
	w, err := NewWriter(opts...)
	require.NoError(t, err)
	require.Equal(t, format.CompressionZstd, w.Compression())
	require.Equal(t, uint8(2), w.cfg.versions[format.ClassTracks])
	require.True(t, w.cfg.bigEndian)

	// pre-registered locations resolve before anything is written
	id, err := w.cfg.registry.ID(synth.TracksLocation)
	require.NoError(t, err)
	loc, err := w.cfg.registry.Location(id)
	require.NoError(t, err)
	require.Equal(t, synth.TracksLocation, loc)
}

func TestConfig_Invalid(t *testing.T) {
	_, err := ParseConfig([]byte("compression: [1, 2"))
	require.Error(t, err)

	cases := map[string]Config{
		"compression": {Compression: "brotli", MaxBankPayload: 100},
		"class":       {Compression: "none", MaxBankPayload: 100, Versions: map[string]uint8{"Hits": 1}},
		"version":     {Compression: "none", MaxBankPayload: 100, Versions: map[string]uint8{"Tracks": 9}},
		"payload":     {Compression: "none", MaxBankPayload: 70000},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			opts, err := cfg.Options(nil)
			if err == nil {
				_, err = NewWriter(opts...)
			}
			require.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evpack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compression: lz4\nlog_level: warn\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "lz4", cfg.Compression)
	require.Equal(t, slog.LevelWarn, cfg.Level())

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
