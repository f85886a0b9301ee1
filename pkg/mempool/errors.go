package mempool

import "github.com/pkg/errors"

var (
	ErrNonceAlreadyUsed   = errors.New("nonce already used")
	ErrDuplicatePending   = errors.New("tx with the same nonce already pending")
	ErrAdmissionThrottled = errors.New("admission throttled")
	ErrInvalidTx          = errors.New("invalid tx")
	ErrWrongPartition     = errors.New("tx belongs to the other partition")
)
