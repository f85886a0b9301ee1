package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Node struct {
	MaxBlocksFetch uint32
	MpnVerifier    string
}

// Mempool holds the remote admission policy. Local submissions bypass it.
type Mempool struct {
	MinFee        uint64
	MaxPending    int
	RemoteRate    float64
	RemoteBurst   int
	TTL           time.Duration
	EvictInterval time.Duration
}

const (
	Cfg_node_maxBlocksFetch = "node.maxBlocksFetch"
	Cfg_mpn_verifier        = "mpn.verifier"

	MpnVerifierAccept = "accept"
	MpnVerifierReject = "reject"

	Cfg_mempool_minFee        = "mempool.minFee"
	Cfg_mempool_maxPending    = "mempool.maxPending"
	Cfg_mempool_remoteRate    = "mempool.remoteRate"
	Cfg_mempool_remoteBurst   = "mempool.remoteBurst"
	Cfg_mempool_ttl           = "mempool.ttl"
	Cfg_mempool_evictInterval = "mempool.evictInterval"
)

var (
	nodeDefaults = map[string]interface{}{
		Cfg_node_maxBlocksFetch: 16,
		Cfg_mpn_verifier:        MpnVerifierReject,

		Cfg_mempool_minFee:        1,
		Cfg_mempool_maxPending:    10000,
		Cfg_mempool_remoteRate:    2.0,
		Cfg_mempool_remoteBurst:   10,
		Cfg_mempool_ttl:           "10m",
		Cfg_mempool_evictInterval: "30s",
	}
)

func init() {
	for k, v := range nodeDefaults {
		viper.SetDefault(k, v)
	}
}

func buildNodeConfig() (*Node, error) {
	c := &Node{}

	n := viper.GetInt(Cfg_node_maxBlocksFetch)
	if n <= 0 {
		return nil, errors.Errorf("%s must be positive", Cfg_node_maxBlocksFetch)
	}
	c.MaxBlocksFetch = uint32(n)

	c.MpnVerifier = viper.GetString(Cfg_mpn_verifier)
	switch c.MpnVerifier {
	case MpnVerifierAccept, MpnVerifierReject:
	default:
		return nil, errors.Errorf("unknown %s %q", Cfg_mpn_verifier, c.MpnVerifier)
	}

	return c, nil
}

func buildMempoolConfig() (*Mempool, error) {
	c := &Mempool{}

	c.MinFee = viper.GetUint64(Cfg_mempool_minFee)
	c.MaxPending = viper.GetInt(Cfg_mempool_maxPending)
	c.RemoteRate = viper.GetFloat64(Cfg_mempool_remoteRate)
	c.RemoteBurst = viper.GetInt(Cfg_mempool_remoteBurst)
	c.TTL = viper.GetDuration(Cfg_mempool_ttl)
	c.EvictInterval = viper.GetDuration(Cfg_mempool_evictInterval)

	if c.TTL <= 0 {
		return nil, errors.Errorf("%s must be positive", Cfg_mempool_ttl)
	}
	if c.EvictInterval <= 0 {
		return nil, errors.Errorf("%s must be positive", Cfg_mempool_evictInterval)
	}

	return c, nil
}

// TTLSeconds is the mempool expiry in whole seconds.
func (m *Mempool) TTLSeconds() uint32 {
	return uint32(m.TTL / time.Second)
}
