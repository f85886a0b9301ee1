package mempool

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tcfw/chaind/pkg/mpn"
	"github.com/tcfw/chaind/pkg/tx"
)

// Validator checks a submission on its own, without looking at the ledger.
type Validator interface {
	IsTxValid(context.Context, *tx.Tx) error
	IsMpnWithdrawValid(context.Context, *tx.MpnWithdraw) error
}

var (
	_ Validator = (*SignatureValidator)(nil)
)

// SignatureValidator checks chain signatures and hands withdrawals to the
// rollup verifier.
type SignatureValidator struct {
	verifier mpn.Verifier
}

func NewSignatureValidator(v mpn.Verifier) *SignatureValidator {
	return &SignatureValidator{verifier: v}
}

func (v *SignatureValidator) IsTxValid(ctx context.Context, t *tx.Tx) error {
	switch d := t.Data.(type) {
	case *tx.RegularSend:
		if len(d.Entries) == 0 {
			return errors.New("send has no entries")
		}
	case *tx.CreateToken:
		if d.Token.Symbol == "" {
			return errors.New("token has no symbol")
		}
	case *tx.CreateContract:
	case *tx.UpdateStaker:
		if d.Commission > 100 {
			return errors.New("commission above 100")
		}
	case *tx.Delegate:
		if d.Amount == 0 {
			return errors.New("delegate of nothing")
		}
	case *tx.MpnDeposit:
		if d.Payment.Amount == 0 {
			return errors.New("empty deposit")
		}
	case *tx.MpnWithdraw:
		return ErrWrongPartition
	case nil:
		return tx.ErrMissingData
	default:
		return errors.Wrapf(tx.ErrUnknownType, "%T", d)
	}

	if err := t.Verify(); err != nil {
		return errors.Wrap(err, "verifying signature")
	}

	return nil
}

func (v *SignatureValidator) IsMpnWithdrawValid(ctx context.Context, w *tx.MpnWithdraw) error {
	if w.Payment.Amount == 0 {
		return errors.New("empty withdraw")
	}

	ok, err := v.verifier.Verify(ctx, w)
	if err != nil {
		return errors.Wrap(err, "verifying rollup authorisation")
	}
	if !ok {
		return errors.New("rollup rejected withdraw")
	}

	return nil
}
