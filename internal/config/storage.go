package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Storage struct {
	Engine  string
	Path    string
	CacheMB int
}

const (
	Cfg_storage_engine  = "storage.engine"
	Cfg_storage_path    = "storage.path"
	Cfg_storage_cacheMB = "storage.cacheMB"
)

var (
	storageDefaults = map[string]interface{}{
		Cfg_storage_engine:  "pebble",
		Cfg_storage_path:    defaultDataDir(),
		Cfg_storage_cacheMB: 64,
	}
)

func init() {
	for k, v := range storageDefaults {
		viper.SetDefault(k, v)
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "chaind-data"
	}
	return filepath.Join(home, ".chaind", "data")
}

func buildStorageConfig() (*Storage, error) {
	c := &Storage{}

	c.Engine = viper.GetString(Cfg_storage_engine)
	c.Path = viper.GetString(Cfg_storage_path)
	c.CacheMB = viper.GetInt(Cfg_storage_cacheMB)

	return c, nil
}
