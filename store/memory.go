package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/arloliu/evpack/bank"
	"github.com/arloliu/evpack/errs"
)

// Memory is an in-process Store. Banks are kept marshalled, so a stored event
// is isolated from later changes to the caller's banks.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	events map[EventID][][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{events: make(map[EventID][][]byte)}
}

func (m *Memory) Put(ctx context.Context, id EventID, banks []bank.Bank) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := make([][]byte, len(banks))
	for i, b := range banks {
		data[i] = bank.Marshal(b)
	}

	m.mu.Lock()
	m.events[id] = data
	m.mu.Unlock()

	return nil
}

func (m *Memory) Get(ctx context.Context, id EventID) ([]bank.Bank, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	data, ok := m.events[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrEventNotFound, id)
	}

	banks := make([]bank.Bank, 0, len(data))
	for _, raw := range data {
		b, _, err := bank.Parse(raw)
		if err != nil {
			return nil, err
		}
		banks = append(banks, b)
	}
	bank.Sort(banks)

	return banks, nil
}

func (m *Memory) Events(ctx context.Context, run uint32) ([]EventID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	var ids []EventID
	for id := range m.events {
		if id.Run == run {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(ids, func(a, b EventID) int { return cmp.Compare(a.Event, b.Event) })

	return ids, nil
}

// Close releases nothing; it exists to satisfy Store.
func (m *Memory) Close() error {
	return nil
}
