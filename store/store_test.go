package store

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/evpack/bank"
	"github.com/arloliu/evpack/errs"
	"github.com/arloliu/evpack/format"
)

func testBanks(t *testing.T, seed uint64, size int) []bank.Bank {
	t.Helper()

	rng := rand.New(rand.NewPCG(seed, seed)) //nolint:gosec
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rng.IntN(256))
	}

	banks, err := bank.Encode(data, format.CompressionNone, 1000, false)
	require.NoError(t, err)

	return banks
}

func stores(t *testing.T) map[string]Store {
	t.Helper()

	db, err := OpenPebble("banks", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	db.SetSync(false)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	return map[string]Store{
		"memory": NewMemory(),
		"pebble": db,
	}
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			id := EventID{Run: 7, Event: 1 << 40}
			want := testBanks(t, 1, 3500)
			require.Len(t, want, 4)

			// parts arrive out of order
			shuffled := []bank.Bank{want[2], want[0], want[3], want[1]}
			require.NoError(t, s.Put(ctx, id, shuffled))

			got, err := s.Get(ctx, id)
			require.NoError(t, err)
			require.Equal(t, want, got)

			stream, _, err := bank.Decode(got)
			require.NoError(t, err)
			require.Len(t, stream, 3500)
		})
	}
}

func TestStore_PutReplaces(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			id := EventID{Run: 1, Event: 2}
			require.NoError(t, s.Put(ctx, id, testBanks(t, 1, 4000)))

			smaller := testBanks(t, 2, 1500)
			require.NoError(t, s.Put(ctx, id, smaller))

			got, err := s.Get(ctx, id)
			require.NoError(t, err)
			require.Equal(t, smaller, got)
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, EventID{Run: 1, Event: 1}, testBanks(t, 1, 10)))

			_, err := s.Get(ctx, EventID{Run: 1, Event: 2})
			require.ErrorIs(t, err, errs.ErrEventNotFound)
			_, err = s.Get(ctx, EventID{Run: 2, Event: 1})
			require.ErrorIs(t, err, errs.ErrEventNotFound)
		})
	}
}

func TestStore_Events(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []EventID{{3, 300}, {3, 2}, {4, 1}, {3, 70000}, {2, 5}} {
				require.NoError(t, s.Put(ctx, id, testBanks(t, id.Event, 2500)))
			}

			ids, err := s.Events(ctx, 3)
			require.NoError(t, err)
			require.Equal(t, []EventID{{3, 2}, {3, 300}, {3, 70000}}, ids)

			ids, err = s.Events(ctx, 9)
			require.NoError(t, err)
			require.Empty(t, ids)
		})
	}
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, s.Put(ctx, EventID{}, nil), context.Canceled)
			_, err := s.Get(ctx, EventID{})
			require.ErrorIs(t, err, context.Canceled)
			_, err = s.Events(ctx, 0)
			require.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestPebble_CorruptValue(t *testing.T) {
	db, err := OpenPebble("banks", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	defer db.Close()

	id := EventID{Run: 1, Event: 1}
	banks := testBanks(t, 1, 100)
	raw := bank.Marshal(banks[0])
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, db.db.Set(BankKey(id, 0), raw, pebble.Sync))

	_, err = db.Get(context.Background(), id)
	require.ErrorIs(t, err, errs.ErrChecksumMismatch)
}

func TestBankKey(t *testing.T) {
	id := EventID{Run: 0x01020304, Event: 0x05060708090A0B0C}
	key := BankKey(id, 0x0D0E)
	require.Equal(t, []byte{'e', 'v', 'b', 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}, key)

	got, part, err := ParseBankKey(key)
	require.NoError(t, err)
	require.Equal(t, id, got)
	require.Equal(t, 0x0D0E, part)

	_, _, err = ParseBankKey(key[:10])
	require.ErrorIs(t, err, errs.ErrInvalidStoreKey)
	_, _, err = ParseBankKey(append([]byte("xyz"), key[3:]...))
	require.ErrorIs(t, err, errs.ErrInvalidStoreKey)

	// numeric order matches key order
	require.Less(t, string(BankKey(EventID{1, 255}, 0)), string(BankKey(EventID{1, 256}, 0)))
	require.Equal(t, []byte{'e', 'v', 'c'}, prefixEnd([]byte("evb")))
	require.Equal(t, []byte{'a', 'c'}, prefixEnd([]byte{'a', 'b', 0xFF}))
	require.Nil(t, prefixEnd([]byte{0xFF, 0xFF}))
}
