package mempool

import (
	"time"

	"golang.org/x/time/rate"
)

type limiter struct {
	lim  *rate.Limiter
	last uint32
}

func (l *limiter) allow(now uint32) bool {
	if now > l.last {
		l.last = now
	}
	return l.lim.AllowN(time.Unix(int64(now), 0), 1)
}

func (m *Mempool) limiterFor(key string) *limiter {
	l, ok := m.limiters[key]
	if !ok {
		l = &limiter{lim: rate.NewLimiter(m.remoteRate, m.remoteBurst)}
		m.limiters[key] = l
	}
	return l
}

// pruneLimiters forgets accounts that have not submitted within ttl.
func (m *Mempool) pruneLimiters(now, ttl uint32) {
	for k, l := range m.limiters {
		if uint64(l.last)+uint64(ttl) < uint64(now) {
			delete(m.limiters, k)
		}
	}
}
