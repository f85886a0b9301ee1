package api

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tcfw/chaind/internal/utils/logging"
	"github.com/tcfw/chaind/pkg/chain"
	"github.com/tcfw/chaind/pkg/mempool"
)

func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code

	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, mempool.ErrInvalidTx),
		errors.Is(err, mempool.ErrWrongPartition):
		code = codes.InvalidArgument
	case errors.Is(err, mempool.ErrDuplicatePending):
		code = codes.AlreadyExists
	case errors.Is(err, mempool.ErrAdmissionThrottled):
		code = codes.ResourceExhausted
	case errors.Is(err, mempool.ErrNonceAlreadyUsed),
		errors.Is(err, chain.ErrAtGenesis),
		errors.Is(err, chain.ErrInvalidParent),
		errors.Is(err, chain.ErrHeightConflict),
		errors.Is(err, chain.ErrHeightGap):
		code = codes.FailedPrecondition
	case errors.Is(err, chain.ErrNotFound):
		code = codes.NotFound
	default:
		logging.WithError(err).Error("request failed")
		code = codes.Internal
	}

	return status.Error(code, err.Error())
}
