package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/tcfw/chaind/pkg/chain"
)

type Chain struct {
	Genesis *chain.GenesisInfo
}

const (
	Cfg_chain_genesis = "chain.genesis"
)

func buildChainConfig() (*Chain, error) {
	c := &Chain{}

	path := viper.GetString(Cfg_chain_genesis)
	if path == "" {
		c.Genesis = chain.DefaultGenesis()
		return c, nil
	}

	g, err := chain.LoadGenesis(path)
	if err != nil {
		return nil, errors.Wrap(err, "loading genesis")
	}
	c.Genesis = g

	return c, nil
}
