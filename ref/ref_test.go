package ref

import (
	"errors"
	"testing"

	"github.com/arloliu/evpack/errs"
	"github.com/stretchr/testify/require"
)

func TestLayout_PackSplit(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		index  int
		key    int32
	}{
		{"32-bit zero", Layout32, 0, 0},
		{"32-bit max index", Layout32, 15, 12345},
		{"32-bit max key", Layout32, 15, Layout32.MaxKey()},
		{"64-bit zero", Layout64, 0, 0},
		{"64-bit large", Layout64, 70000, 1 << 30},
		{"64-bit max", Layout64, Layout64.MaxLinks() - 1, Layout64.MaxKey()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tt.layout.Pack(tt.index, tt.key)
			require.NoError(t, err)
			require.NotEqual(t, Null, token)

			index, key, err := tt.layout.Split(token)
			require.NoError(t, err)
			require.Equal(t, tt.index, index)
			require.Equal(t, tt.key, key)
		})
	}
}

func TestLayout_Limits(t *testing.T) {
	_, err := Layout32.Pack(16, 1)
	require.ErrorIs(t, err, errs.ErrLinkTableFull)

	_, err = Layout32.Pack(0, 1<<28)
	require.ErrorIs(t, err, errs.ErrKeyOutOfRange)

	_, err = Layout64.Pack(0, -1)
	require.ErrorIs(t, err, errs.ErrKeyOutOfRange)

	_, err = Layout(7).Pack(0, 1)
	require.ErrorIs(t, err, errs.ErrInvalidLayout)

	require.Equal(t, 16, Layout32.MaxLinks())
}

func TestLayout_32BitTokenFitsInt32(t *testing.T) {
	token, err := Layout32.Pack(15, 1)
	require.NoError(t, err)
	require.Equal(t, int64(int32(token)), token)
	require.Less(t, token, int64(0))
}

func TestLinkTable(t *testing.T) {
	links := NewLinkTable()
	require.Equal(t, 0, links.Add(100))
	require.Equal(t, 1, links.Add(200))
	require.Equal(t, 0, links.Add(100))
	require.Equal(t, []int32{100, 200}, links.IDs())

	id, ok := links.Lookup(1)
	require.True(t, ok)
	require.Equal(t, int32(200), id)

	_, ok = links.Lookup(2)
	require.False(t, ok)
	_, ok = links.Lookup(-1)
	require.False(t, ok)

	rebuilt := NewLinkTableFrom(links.IDs())
	require.Equal(t, links.IDs(), rebuilt.IDs())
	idx, ok := rebuilt.Index(200)
	require.True(t, ok)
	require.Equal(t, 1, idx)

	links.Reset()
	require.Equal(t, 0, links.Len())
	require.Equal(t, 0, links.Add(300))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	for _, layout := range []Layout{Layout32, Layout64} {
		t.Run(layout.String(), func(t *testing.T) {
			writer := NewLinkTable()
			var wcache Cache

			type target struct {
				container int32
				key       int32
			}
			targets := []target{{11, 1}, {11, 2}, {22, 5}, {33, 9}, {22, 6}, {11, 3}}

			tokens := make([]int64, 0, len(targets))
			for _, tg := range targets {
				token, err := Encode(writer, &wcache, layout, tg.container, tg.key)
				require.NoError(t, err)
				tokens = append(tokens, token)
			}
			require.Equal(t, []int32{11, 22, 33}, writer.IDs())

			// the reader sees the persisted table
			reader := NewLinkTableFrom(writer.IDs())
			var rcache Cache
			for i, token := range tokens {
				container, key, err := Decode(reader, &rcache, layout, token)
				require.NoError(t, err)
				require.Equal(t, targets[i].container, container)
				require.Equal(t, targets[i].key, key)
			}
		})
	}
}

func TestEncodeDecode_CacheHint(t *testing.T) {
	links := NewLinkTable()
	var cache Cache

	first, err := Encode(links, &cache, Layout64, 42, 1)
	require.NoError(t, err)
	require.Equal(t, 0, cache.Hits())

	second, err := Encode(links, &cache, Layout64, 42, 2)
	require.NoError(t, err)
	require.Equal(t, 1, cache.Hits())

	var rcache Cache
	_, _, err = Decode(links, &rcache, Layout64, first)
	require.NoError(t, err)
	require.Equal(t, 0, rcache.Hits())

	container, key, err := Decode(links, &rcache, Layout64, second)
	require.NoError(t, err)
	require.Equal(t, 1, rcache.Hits())
	require.Equal(t, int32(42), container)
	require.Equal(t, int32(2), key)

	rcache.Reset()
	require.Equal(t, 0, rcache.Hits())
}

func TestEncode_NilCache(t *testing.T) {
	links := NewLinkTable()
	token, err := Encode(links, nil, Layout64, 7, 3)
	require.NoError(t, err)

	container, key, err := Decode(links, nil, Layout64, token)
	require.NoError(t, err)
	require.Equal(t, int32(7), container)
	require.Equal(t, int32(3), key)
}

func TestEncode_LinkTableFull(t *testing.T) {
	links := NewLinkTable()
	for i := range Layout32.MaxLinks() {
		_, err := Encode(links, nil, Layout32, int32(i), 0)
		require.NoError(t, err)
	}

	_, err := Encode(links, nil, Layout32, 999, 0)
	require.ErrorIs(t, err, errs.ErrLinkTableFull)
	require.Equal(t, Layout32.MaxLinks(), links.Len())
}

func TestDecode_Errors(t *testing.T) {
	links := NewLinkTableFrom([]int32{5})

	t.Run("Null token", func(t *testing.T) {
		_, _, err := Decode(links, nil, Layout64, Null)
		require.ErrorIs(t, err, errs.ErrNullReference)

		_, _, err = Decode(links, nil, Layout32, Null)
		require.ErrorIs(t, err, errs.ErrNullReference)
	})

	t.Run("Dangling index", func(t *testing.T) {
		token, err := Layout64.Pack(3, 10)
		require.NoError(t, err)

		_, _, err = Decode(links, nil, Layout64, token)
		require.ErrorIs(t, err, errs.ErrDanglingReference)

		var rerr *errs.ReferenceError
		require.True(t, errors.As(err, &rerr))
		require.Equal(t, 3, rerr.Index)
		require.Equal(t, token, rerr.Token)
	})

	t.Run("Corrupt negative token", func(t *testing.T) {
		_, _, err := Decode(links, nil, Layout64, -5)
		require.ErrorIs(t, err, errs.ErrDanglingReference)
	})
}

func BenchmarkEncodeCached(b *testing.B) {
	links := NewLinkTable()
	var cache Cache
	for b.Loop() {
		_, _ = Encode(links, &cache, Layout64, 42, 17)
	}
}
