package node

import "github.com/pkg/errors"

var (
	// ErrMempoolInvalidation is returned alongside the removed block when the
	// ledger rollback committed but pending entries could not be rechecked.
	ErrMempoolInvalidation = errors.New("mempool invalidation after rollback failed")
)
