package store

import (
	"context"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/arloliu/evpack/bank"
	"github.com/arloliu/evpack/errs"
)

// Pebble is a Store backed by a pebble database.
type Pebble struct {
	db   *pebble.DB
	sync bool
}

var _ Store = (*Pebble)(nil)

// OpenPebble opens or creates the database in dir. opts may be nil;
// tests pass options with an in-memory vfs.
func OpenPebble(dir string, opts *pebble.Options) (*Pebble, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}

	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open bank store %s: %w", dir, err)
	}

	return &Pebble{db: db, sync: true}, nil
}

// SetSync selects whether Put waits for the write-ahead log to reach stable storage.
func (p *Pebble) SetSync(sync bool) {
	p.sync = sync
}

func (p *Pebble) writeOptions() *pebble.WriteOptions {
	if p.sync {
		return pebble.Sync
	}

	return pebble.NoSync
}

// Put replaces the banks of id in one atomic batch.
func (p *Pebble) Put(ctx context.Context, id EventID, banks []bank.Bank) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	prefix := eventPrefix(id)
	if err := batch.DeleteRange(prefix, prefixEnd(prefix), nil); err != nil {
		return err
	}
	for _, b := range banks {
		if err := batch.Set(BankKey(id, b.Part()), bank.Marshal(b), nil); err != nil {
			return err
		}
	}

	if err := batch.Commit(p.writeOptions()); err != nil {
		return fmt.Errorf("put event %s: %w", id, err)
	}

	return nil
}

// Get returns the banks of id in part order.
func (p *Pebble) Get(ctx context.Context, id EventID) ([]bank.Bank, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := eventPrefix(id)
	iter, err := p.db.NewIterWithContext(ctx, &pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var banks []bank.Bank
	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return nil, err
		}

		// the iterator reuses its value buffer
		b, _, err := bank.Parse(append([]byte(nil), value...))
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", id, err)
		}
		banks = append(banks, b)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	if len(banks) == 0 {
		return nil, fmt.Errorf("%w: %s", errs.ErrEventNotFound, id)
	}

	return banks, nil
}

// Events returns the events of run in ascending order.
func (p *Pebble) Events(ctx context.Context, run uint32) ([]EventID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := runPrefix(run)
	iter, err := p.db.NewIterWithContext(ctx, &pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids []EventID
	for iter.First(); iter.Valid(); iter.Next() {
		id, _, err := ParseBankKey(iter.Key())
		if err != nil {
			return nil, err
		}
		if n := len(ids); n == 0 || ids[n-1] != id {
			ids = append(ids, id)
		}
	}

	return ids, iter.Error()
}

// Close flushes and closes the database.
func (p *Pebble) Close() error {
	return p.db.Close()
}
