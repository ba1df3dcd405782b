package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type writerSettings struct {
	method  string
	payload int
	calls   []string
}

func withMethod(m string) Option[*writerSettings] {
	return NoError(func(s *writerSettings) {
		s.method = m
		s.calls = append(s.calls, "method")
	})
}

func withPayload(n int) Option[*writerSettings] {
	return New(func(s *writerSettings) error {
		if n <= 0 {
			return errors.New("payload must be positive")
		}
		s.payload = n
		s.calls = append(s.calls, "payload")

		return nil
	})
}

func TestApply(t *testing.T) {
	s := &writerSettings{}
	require.NoError(t, Apply(s, withMethod("lzma"), withPayload(1000), withMethod("zstd")))
	require.Equal(t, "zstd", s.method)
	require.Equal(t, 1000, s.payload)
	require.Equal(t, []string{"method", "payload", "method"}, s.calls)
}

func TestApply_StopsAtFirstError(t *testing.T) {
	s := &writerSettings{}
	err := Apply(s, withMethod("lzma"), withPayload(0), withMethod("zstd"))
	require.EqualError(t, err, "payload must be positive")
	require.Equal(t, "lzma", s.method)
	require.Equal(t, []string{"method"}, s.calls)
}

func TestApply_Empty(t *testing.T) {
	s := &writerSettings{}
	require.NoError(t, Apply(s))
	require.NoError(t, Apply(s, nil, withPayload(5)))
	require.Equal(t, 5, s.payload)
}
