package evpack

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/evpack/bank"
	"github.com/arloliu/evpack/format"
	"github.com/arloliu/evpack/internal/options"
	"github.com/arloliu/evpack/packed"
	"github.com/arloliu/evpack/registry"
)

// settings holds the configuration shared by Writer and Reader.
// Readers ignore the write-side fields.
type settings struct {
	compression format.CompressionType
	maxPayload  int
	bigEndian   bool
	versions    map[format.ClassID]uint8
	registry    registry.Registry
	logger      *slog.Logger
}

func newSettings() *settings {
	return &settings{
		compression: format.CompressionLZMA,
		maxPayload:  bank.MaxPayload,
		versions:    make(map[format.ClassID]uint8),
		logger:      slog.New(slog.DiscardHandler),
	}
}

// Option configures a Writer or a Reader.
type Option = options.Option[*settings]

// WithCompression sets the method used to compress the transport stream. The default is LZMA.
func WithCompression(method format.CompressionType) Option {
	return options.New(func(s *settings) error {
		if !method.IsValid() {
			return fmt.Errorf("invalid compression method: %d", method)
		}
		s.compression = method

		return nil
	})
}

// WithMaxBankPayload sets the largest bank payload in bytes, at most bank.MaxPayload.
func WithMaxBankPayload(n int) Option {
	return options.New(func(s *settings) error {
		if n < 1 || n > bank.MaxPayload {
			return fmt.Errorf("max bank payload %d not in [1, %d]", n, bank.MaxPayload)
		}
		s.maxPayload = n

		return nil
	})
}

// WithPackingVersion writes containers of class with version instead of the newest one.
func WithPackingVersion(class format.ClassID, version uint8) Option {
	return options.New(func(s *settings) error {
		if err := packed.CheckVersion(class, version); err != nil {
			return err
		}
		s.versions[class] = version

		return nil
	})
}

// WithLittleEndian writes transport payloads in little-endian byte order. It is the default.
func WithLittleEndian() Option {
	return options.NoError(func(s *settings) {
		s.bigEndian = false
	})
}

// WithBigEndian writes transport payloads in big-endian byte order.
func WithBigEndian() Option {
	return options.NoError(func(s *settings) {
		s.bigEndian = true
	})
}

// WithRegistry sets the location registry. Writers and readers of the same
// stream must resolve locations to the same ids.
func WithRegistry(reg registry.Registry) Option {
	return options.New(func(s *settings) error {
		if reg == nil {
			return fmt.Errorf("nil registry")
		}
		s.registry = reg

		return nil
	})
}

// WithLogger sets the logger receiving diagnostics such as skipped references.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	})
}

func applyOptions(opts []Option) (*settings, error) {
	s := newSettings()
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}

	if s.registry == nil {
		reg, err := registry.NewHashed()
		if err != nil {
			return nil, err
		}
		s.registry = reg
	}

	return s, nil
}
