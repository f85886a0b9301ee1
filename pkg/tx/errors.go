package tx

import "github.com/pkg/errors"

var (
	ErrUnknownType   = errors.New("unknown tx type")
	ErrMissingData   = errors.New("tx has no data")
	ErrMissingSource = errors.New("tx has no source account")
	ErrBadSignature  = errors.New("tx signature does not match source")
)
