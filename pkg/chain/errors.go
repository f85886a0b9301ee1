package chain

import "github.com/pkg/errors"

var (
	ErrInvalidParent    = errors.New("parent hash does not match tip")
	ErrHeightConflict   = errors.New("height already occupied")
	ErrHeightGap        = errors.New("height does not follow tip")
	ErrAtGenesis        = errors.New("cannot roll back genesis")
	ErrStorageFailure   = errors.New("storage failure")
	ErrInvalidStateRoot = errors.New("state root does not match body")
	ErrInvalidNonce     = errors.New("tx nonce is not the next account nonce")
	ErrTooManyTx        = errors.New("block contains too many tx")
	ErrNoGenesis        = errors.New("empty store and no genesis block")
	ErrNotFound         = errors.New("not found")
	ErrGenesisMismatch  = errors.New("stored genesis does not match configured genesis")
)

// StorageError reports a failure of the underlying KV engine. It matches
// ErrStorageFailure with errors.Is and unwraps to the engine error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + ErrStorageFailure.Error() + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}

func storageErr(err error, op string) error {
	return &StorageError{Op: op, Err: err}
}
