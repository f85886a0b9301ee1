package storage

import (
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/tcfw/chaind/pkg/storage"
)

const (
	cacheSize = 1 << 20 * 100
)

var (
	_ storage.KV = (*PebbleKV)(nil)
)

// PebbleKV adapts a pebble database to storage.KV. Batches are committed
// with fsync.
type PebbleKV struct {
	db *pebble.DB
}

func NewPebbleKV(repo string) (*PebbleKV, error) {
	c := pebble.NewCache(cacheSize)
	tc := pebble.NewTableCache(c, 16, 100)
	defer tc.Unref()
	defer c.Unref()

	db, err := pebble.Open(repo, &pebble.Options{Cache: c, TableCache: tc})
	if err != nil {
		return nil, errors.Wrap(err, "opening pebble store")
	}

	return &PebbleKV{db: db}, nil
}

func (s *PebbleKV) Get(key []byte) ([]byte, error) {
	d, done, err := s.db.Get(key)
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	defer done.Close()

	return append([]byte(nil), d...), nil
}

func (s *PebbleKV) Has(key []byte) (bool, error) {
	_, done, err := s.db.Get(key)
	if err != nil {
		if err == pebble.ErrNotFound {
			return false, nil
		}
		return false, err
	}

	return true, done.Close()
}

func (s *PebbleKV) NewBatch() storage.Batch {
	return &pebbleBatch{b: s.db.NewBatch()}
}

func (s *PebbleKV) NewIter(prefix []byte) storage.Iterator {
	return &pebbleIter{it: s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: storage.PrefixUpperBound(prefix),
	})}
}

func (s *PebbleKV) Close() error {
	return s.db.Close()
}

type pebbleBatch struct {
	b *pebble.Batch
}

func (b *pebbleBatch) Set(key, value []byte) error {
	return b.b.Set(key, value, nil)
}

func (b *pebbleBatch) Delete(key []byte) error {
	return b.b.Delete(key, nil)
}

func (b *pebbleBatch) Commit() error {
	return b.b.Commit(pebble.Sync)
}

func (b *pebbleBatch) Close() error {
	return b.b.Close()
}

type pebbleIter struct {
	it *pebble.Iterator
}

func (i *pebbleIter) First() bool   { return i.it.First() }
func (i *pebbleIter) Next() bool    { return i.it.Next() }
func (i *pebbleIter) Valid() bool   { return i.it.Valid() }
func (i *pebbleIter) Key() []byte   { return append([]byte(nil), i.it.Key()...) }
func (i *pebbleIter) Value() []byte { return append([]byte(nil), i.it.Value()...) }
func (i *pebbleIter) Close() error  { return i.it.Close() }
