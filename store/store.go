// Package store persists the banks of encoded events.
//
// A Sink accepts the banks of one event and a Source returns them. Memory
// keeps banks in process; Pebble keeps them in a pebble key-value store, one
// key per bank:
//
//	"evb" | run (u32 BE) | event (u64 BE) | part (u16 BE)
//
// Big-endian keys sort events of a run in numeric order, and the parts of an
// event by part id.
package store

import (
	"context"
	"fmt"

	"github.com/arloliu/evpack/bank"
	"github.com/arloliu/evpack/endian"
	"github.com/arloliu/evpack/errs"
)

// EventID identifies an event.
type EventID struct {
	Run   uint32
	Event uint64
}

func (id EventID) String() string {
	return fmt.Sprintf("%d/%d", id.Run, id.Event)
}

// Sink accepts the banks of encoded events.
type Sink interface {
	// Put stores banks under id, replacing any banks stored before.
	Put(ctx context.Context, id EventID, banks []bank.Bank) error
}

// Source returns the banks of stored events.
type Source interface {
	// Get returns the banks of id sorted by part, or errs.ErrEventNotFound.
	Get(ctx context.Context, id EventID) ([]bank.Bank, error)
	// Events returns the stored events of run in ascending order.
	Events(ctx context.Context, run uint32) ([]EventID, error)
}

// Store is both a Sink and a Source.
type Store interface {
	Sink
	Source
	Close() error
}

var keyPrefix = []byte("evb")

const (
	runPrefixLen = 3 + 4
	eventKeyLen  = runPrefixLen + 8
	bankKeyLen   = eventKeyLen + 2
)

var keyEngine = endian.GetBigEndianEngine()

func runPrefix(run uint32) []byte {
	key := make([]byte, 0, bankKeyLen)
	key = append(key, keyPrefix...)

	return keyEngine.AppendUint32(key, run)
}

func eventPrefix(id EventID) []byte {
	return keyEngine.AppendUint64(runPrefix(id.Run), id.Event)
}

// BankKey returns the key of part of event id.
func BankKey(id EventID, part int) []byte {
	return keyEngine.AppendUint16(eventPrefix(id), uint16(part)) //nolint:gosec
}

// ParseBankKey splits a key built by BankKey.
func ParseBankKey(key []byte) (EventID, int, error) {
	if len(key) != bankKeyLen || string(key[:len(keyPrefix)]) != string(keyPrefix) {
		return EventID{}, 0, fmt.Errorf("%w: %x", errs.ErrInvalidStoreKey, key)
	}

	id := EventID{
		Run:   keyEngine.Uint32(key[3:runPrefixLen]),
		Event: keyEngine.Uint64(key[runPrefixLen:eventKeyLen]),
	}

	return id, int(keyEngine.Uint16(key[eventKeyLen:])), nil
}

// prefixEnd returns the smallest key greater than every key starting with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}

	return nil
}
