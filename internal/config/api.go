package config

import (
	"github.com/spf13/viper"
)

type API struct {
	Listen      string
	MetricsAddr string
}

const (
	Cfg_api_listen      = "api.listen"
	Cfg_api_metricsAddr = "api.metricsAddr"
	Cfg_daemon_addr     = "daemon_addr"
)

var (
	apiDefaults = map[string]interface{}{
		Cfg_api_listen:      "127.0.0.1:8765",
		Cfg_api_metricsAddr: "127.0.0.1:9765",
		Cfg_daemon_addr:     "127.0.0.1:8765",
	}
)

func init() {
	for k, v := range apiDefaults {
		viper.SetDefault(k, v)
	}
}

func buildAPIConfig() (*API, error) {
	c := &API{}

	c.Listen = viper.GetString(Cfg_api_listen)
	c.MetricsAddr = viper.GetString(Cfg_api_metricsAddr)

	return c, nil
}
