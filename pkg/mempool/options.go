package mempool

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type Option func(*Mempool) error

func WithValidator(v Validator) Option {
	return func(m *Mempool) error {
		m.validator = v
		return nil
	}
}

func WithLogger(l *logrus.Logger) Option {
	return func(m *Mempool) error {
		m.logger = l
		return nil
	}
}

// WithMinFee sets the fee floor applied to remote submissions.
func WithMinFee(fee uint64) Option {
	return func(m *Mempool) error {
		m.minFee = fee
		return nil
	}
}

// WithMaxPending caps each partition for remote submissions. Zero disables
// the cap.
func WithMaxPending(n int) Option {
	return func(m *Mempool) error {
		if n < 0 {
			return errors.New("max pending must not be negative")
		}
		m.maxPending = n
		return nil
	}
}

// WithRemoteRate limits remote submissions per account to perSecond with the
// given burst. A zero rate disables the limit.
func WithRemoteRate(perSecond float64, burst int) Option {
	return func(m *Mempool) error {
		if perSecond < 0 || burst < 0 {
			return errors.New("remote rate and burst must not be negative")
		}
		if perSecond > 0 && burst == 0 {
			return errors.New("remote burst must be set with a rate")
		}
		m.remoteRate = rate.Limit(perSecond)
		m.remoteBurst = burst
		return nil
	}
}
