package node

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tcfw/chaind/pkg/mempool"
	"github.com/tcfw/chaind/pkg/mpn"
)

const (
	DefaultMaxBlocksFetch = 16
)

type Option func(*Context) error

func WithLogger(l *logrus.Logger) Option {
	return func(c *Context) error {
		c.logger = l
		return nil
	}
}

// WithMaxBlocksFetch sets the ceiling on blocks returned by one explorer
// query.
func WithMaxBlocksFetch(n uint32) Option {
	return func(c *Context) error {
		if n == 0 {
			return errors.New("max blocks fetch must be positive")
		}
		c.maxBlocksFetch = n
		return nil
	}
}

// WithVerifier sets the rollup verifier used by the default mempool
// validator.
func WithVerifier(v mpn.Verifier) Option {
	return func(c *Context) error {
		c.verifier = v
		return nil
	}
}

// WithMempoolOptions passes opts to the mempool after the node defaults.
func WithMempoolOptions(opts ...mempool.Option) Option {
	return func(c *Context) error {
		c.mempoolOpts = append(c.mempoolOpts, opts...)
		return nil
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Context) error {
		c.clock = now
		return nil
	}
}
