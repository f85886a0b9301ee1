package storage

import (
	"os"

	"github.com/pkg/errors"

	"github.com/tcfw/chaind/internal/config"
	"github.com/tcfw/chaind/internal/utils/logging"
	"github.com/tcfw/chaind/pkg/storage"
)

const (
	EnginePebble  = "pebble"
	EngineLevelDB = "leveldb"
	EngineMemory  = "memory"
)

// Open opens the KV engine selected in the storage config. The caller owns
// the returned handle and must Close it.
func Open(cfg *config.Storage) (storage.KV, error) {
	if cfg.Engine != EngineMemory {
		if err := os.MkdirAll(cfg.Path, os.ModePerm); err != nil {
			return nil, errors.Wrap(err, "creating storage dir")
		}
	}

	logging.Component("storage").
		WithField("engine", cfg.Engine).
		WithField("path", cfg.Path).
		Debug("opening storage")

	switch cfg.Engine {
	case EnginePebble:
		return NewPebbleKV(cfg.Path)
	case EngineLevelDB:
		return NewLevelKV(cfg.Path, cfg.CacheMB)
	case EngineMemory:
		return storage.NewMemKV(), nil
	default:
		return nil, errors.Errorf("unknown storage engine %q", cfg.Engine)
	}
}
