package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcfw/chaind/internal/config"
	"github.com/tcfw/chaind/pkg/storage"
)

func engines(t *testing.T) map[string]storage.KV {
	p, err := NewPebbleKV(t.TempDir())
	require.NoError(t, err)

	l, err := NewLevelKV(t.TempDir(), 8)
	require.NoError(t, err)

	kvs := map[string]storage.KV{
		EnginePebble:  p,
		EngineLevelDB: l,
		EngineMemory:  storage.NewMemKV(),
	}

	t.Cleanup(func() {
		for _, kv := range kvs {
			kv.Close()
		}
	})

	return kvs
}

func TestEngineGetSet(t *testing.T) {
	for name, kv := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get([]byte("missing"))
			assert.ErrorIs(t, err, storage.ErrNotFound)

			b := kv.NewBatch()
			require.NoError(t, b.Set([]byte("a"), []byte("1")))
			require.NoError(t, b.Set([]byte("b"), []byte("2")))
			require.NoError(t, b.Commit())

			v, err := kv.Get([]byte("a"))
			require.NoError(t, err)
			assert.Equal(t, []byte("1"), v)

			has, err := kv.Has([]byte("b"))
			require.NoError(t, err)
			assert.True(t, has)

			b = kv.NewBatch()
			require.NoError(t, b.Delete([]byte("a")))
			require.NoError(t, b.Commit())

			has, err = kv.Has([]byte("a"))
			require.NoError(t, err)
			assert.False(t, has)
		})
	}
}

func TestEngineIterPrefix(t *testing.T) {
	for name, kv := range engines(t) {
		t.Run(name, func(t *testing.T) {
			b := kv.NewBatch()
			b.Set([]byte{5, 0, 2}, []byte("b"))
			b.Set([]byte{5, 0, 1}, []byte("a"))
			b.Set([]byte{6, 0, 0}, []byte("z"))
			b.Set([]byte{4, 0xff}, []byte("y"))
			require.NoError(t, b.Commit())

			it := kv.NewIter([]byte{5})
			vals := []string{}
			for it.First(); it.Valid(); it.Next() {
				vals = append(vals, string(it.Value()))
			}
			require.NoError(t, it.Close())

			assert.Equal(t, []string{"a", "b"}, vals)
		})
	}
}

func TestOpenUnknownEngine(t *testing.T) {
	_, err := Open(&config.Storage{Engine: "rocks", Path: t.TempDir()})
	assert.Error(t, err)
}

func TestOpenMemory(t *testing.T) {
	kv, err := Open(&config.Storage{Engine: EngineMemory})
	require.NoError(t, err)
	defer kv.Close()

	_, ok := kv.(*storage.MemKV)
	assert.True(t, ok)
}
