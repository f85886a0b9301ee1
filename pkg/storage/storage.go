// Package storage defines the byte level key value capability the ledger is
// built on. Engines must make Batch.Commit atomic: either every Set and
// Delete in the batch lands or none of them do.
package storage

// KV is a durable ordered key value engine.
type KV interface {
	// Get returns a copy of the value stored at key or ErrNotFound.
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)

	NewBatch() Batch

	// NewIter iterates all keys sharing prefix in ascending byte order.
	NewIter(prefix []byte) Iterator

	Close() error
}

// Batch collects writes to be applied atomically on Commit.
type Batch interface {
	Set(key, value []byte) error
	Delete(key []byte) error
	Commit() error
	Close() error
}

type Iterator interface {
	First() bool
	Next() bool
	Valid() bool
	Key() []byte
	Value() []byte
	Close() error
}

// PrefixUpperBound returns the smallest key greater than every key sharing
// prefix, or nil if no such key exists.
func PrefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)

	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}

	return nil
}
