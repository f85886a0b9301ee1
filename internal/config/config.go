package config

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/tcfw/chaind/internal/utils/logging"
)

const (
	Cfg_verbose = "verbose"
)

var (
	defaults = map[string]interface{}{
		Cfg_verbose: false,
	}
)

func init() {
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

func GetConfig() (*Config, error) {
	viper.SetConfigType("yaml")
	viper.SetConfigName("chaind")
	viper.AddConfigPath("/etc/chaind/")
	viper.AddConfigPath("$HOME/.chaind")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("CHAIND")
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error
			logging.Entry().Warnf("no config found")
		} else {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	c := &Config{}

	c.storage, err = buildStorageConfig()
	if err != nil {
		return nil, errors.Wrap(err, "storage config")
	}

	c.node, err = buildNodeConfig()
	if err != nil {
		return nil, errors.Wrap(err, "node config")
	}

	c.mempool, err = buildMempoolConfig()
	if err != nil {
		return nil, errors.Wrap(err, "mempool config")
	}

	c.api, err = buildAPIConfig()
	if err != nil {
		return nil, errors.Wrap(err, "api config")
	}

	c.chain, err = buildChainConfig()
	if err != nil {
		return nil, errors.Wrap(err, "chain config")
	}

	if viper.GetBool(Cfg_verbose) {
		logrus.SetLevel(logrus.DebugLevel)
		logging.SetLevel(logrus.DebugLevel)
		logging.Entry().WithField("level", "debug").Debug("setting log level")
	}

	return c, nil
}

type Config struct {
	storage *Storage
	node    *Node
	mempool *Mempool
	api     *API
	chain   *Chain
}

func (c *Config) Storage() *Storage {
	return c.storage
}

func (c *Config) Node() *Node {
	return c.node
}

func (c *Config) Mempool() *Mempool {
	return c.mempool
}

func (c *Config) API() *API {
	return c.api
}

func (c *Config) Chain() *Chain {
	return c.chain
}
