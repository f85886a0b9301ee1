package storage

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/tcfw/chaind/pkg/storage"
)

var (
	_ storage.KV = (*LevelKV)(nil)
)

// LevelKV adapts a goleveldb database to storage.KV.
type LevelKV struct {
	db *leveldb.DB
}

func NewLevelKV(path string, cacheMB int) (*LevelKV, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		BlockCacheCapacity: cacheMB * opt.MiB,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening leveldb store")
	}

	return &LevelKV{db: db}, nil
}

func (l *LevelKV) Get(key []byte) ([]byte, error) {
	v, err := l.db.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return v, nil
}

func (l *LevelKV) Has(key []byte) (bool, error) {
	return l.db.Has(key, nil)
}

func (l *LevelKV) NewBatch() storage.Batch {
	return &levelBatch{db: l.db, b: new(leveldb.Batch)}
}

func (l *LevelKV) NewIter(prefix []byte) storage.Iterator {
	return &levelIter{it: l.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

func (l *LevelKV) Close() error {
	return l.db.Close()
}

type levelBatch struct {
	db   *leveldb.DB
	b    *leveldb.Batch
	done bool
}

func (b *levelBatch) Set(key, value []byte) error {
	if b.done {
		return storage.ErrBatchCommitted
	}
	b.b.Put(key, value)
	return nil
}

func (b *levelBatch) Delete(key []byte) error {
	if b.done {
		return storage.ErrBatchCommitted
	}
	b.b.Delete(key)
	return nil
}

func (b *levelBatch) Commit() error {
	if b.done {
		return storage.ErrBatchCommitted
	}
	b.done = true

	return b.db.Write(b.b, &opt.WriteOptions{Sync: true})
}

func (b *levelBatch) Close() error {
	b.b.Reset()
	b.done = true
	return nil
}

type levelIter struct {
	it iterator.Iterator
}

func (i *levelIter) First() bool   { return i.it.First() }
func (i *levelIter) Next() bool    { return i.it.Next() }
func (i *levelIter) Valid() bool   { return i.it.Valid() }
func (i *levelIter) Key() []byte   { return append([]byte(nil), i.it.Key()...) }
func (i *levelIter) Value() []byte { return append([]byte(nil), i.it.Value()...) }

func (i *levelIter) Close() error {
	i.it.Release()
	return i.it.Error()
}
