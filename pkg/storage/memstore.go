package storage

import (
	"bytes"
	"sort"
	"sync"
)

var (
	_ KV = (*MemKV)(nil)
)

// MemKV is an in-memory KV engine. Nothing is persisted; it backs tests and
// throwaway nodes.
type MemKV struct {
	mu sync.RWMutex

	objects map[string][]byte
	closed  bool
}

func NewMemKV() *MemKV {
	return &MemKV{
		objects: make(map[string][]byte),
	}
}

func (m *MemKV) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	v, ok := m.objects[string(key)]
	if !ok {
		return nil, ErrNotFound
	}

	return append([]byte(nil), v...), nil
}

func (m *MemKV) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrClosed
	}

	_, ok := m.objects[string(key)]
	return ok, nil
}

func (m *MemKV) NewBatch() Batch {
	return &memBatch{kv: m}
}

// NewIter snapshots the matching keys at call time.
func (m *MemKV) NewIter(prefix []byte) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it := &memIter{pos: -1}
	for k, v := range m.objects {
		if bytes.HasPrefix([]byte(k), prefix) {
			it.keys = append(it.keys, k)
			it.vals = append(it.vals, append([]byte(nil), v...))
		}
	}

	sort.Sort(it)

	return it
}

func (m *MemKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.objects)
}

func (m *MemKV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

type memOp struct {
	key   string
	value []byte
	del   bool
}

type memBatch struct {
	kv   *MemKV
	ops  []memOp
	done bool
}

func (b *memBatch) Set(key, value []byte) error {
	if b.done {
		return ErrBatchCommitted
	}

	b.ops = append(b.ops, memOp{key: string(key), value: append([]byte(nil), value...)})
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	if b.done {
		return ErrBatchCommitted
	}

	b.ops = append(b.ops, memOp{key: string(key), del: true})
	return nil
}

func (b *memBatch) Commit() error {
	if b.done {
		return ErrBatchCommitted
	}

	b.kv.mu.Lock()
	defer b.kv.mu.Unlock()

	if b.kv.closed {
		return ErrClosed
	}

	for _, op := range b.ops {
		if op.del {
			delete(b.kv.objects, op.key)
			continue
		}
		b.kv.objects[op.key] = op.value
	}

	b.done = true
	b.ops = nil

	return nil
}

func (b *memBatch) Close() error {
	b.ops = nil
	b.done = true
	return nil
}

type memIter struct {
	keys []string
	vals [][]byte
	pos  int
}

func (it *memIter) Len() int           { return len(it.keys) }
func (it *memIter) Less(i, j int) bool { return it.keys[i] < it.keys[j] }
func (it *memIter) Swap(i, j int) {
	it.keys[i], it.keys[j] = it.keys[j], it.keys[i]
	it.vals[i], it.vals[j] = it.vals[j], it.vals[i]
}

func (it *memIter) First() bool {
	it.pos = 0
	return it.Valid()
}

func (it *memIter) Next() bool {
	it.pos++
	return it.Valid()
}

func (it *memIter) Valid() bool {
	return it.pos >= 0 && it.pos < len(it.keys)
}

func (it *memIter) Key() []byte {
	return []byte(it.keys[it.pos])
}

func (it *memIter) Value() []byte {
	return it.vals[it.pos]
}

func (it *memIter) Close() error {
	it.keys = nil
	it.vals = nil
	return nil
}
