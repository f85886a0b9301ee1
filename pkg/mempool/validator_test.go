package mempool

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/tcfw/chaind/pkg/chain/chaintest"
	"github.com/tcfw/chaind/pkg/mpn"
	"github.com/tcfw/chaind/pkg/tx"
)

func TestSignatureValidatorTx(t *testing.T) {
	ctx := context.Background()
	v := NewSignatureValidator(mpn.AcceptAll{})
	key := chaintest.NewKey(t)

	sign := func(d tx.Data) *tx.Tx {
		st := &tx.Tx{Nonce: 1, Data: d}
		if err := st.Sign(key); err != nil {
			t.Fatal(err)
		}
		return st
	}

	tests := []struct {
		name  string
		tx    *tx.Tx
		valid bool
	}{
		{"send", chaintest.Send(t, key, 1, 1), true},
		{"deposit", chaintest.Deposit(t, key, 1, 1), true},
		{"empty send", sign(&tx.RegularSend{}), false},
		{"token", sign(&tx.CreateToken{Token: tx.Token{Symbol: "X"}}), true},
		{"token no symbol", sign(&tx.CreateToken{}), false},
		{"contract", sign(&tx.CreateContract{}), true},
		{"staker", sign(&tx.UpdateStaker{Commission: 10}), true},
		{"staker commission", sign(&tx.UpdateStaker{Commission: 101}), false},
		{"delegate", sign(&tx.Delegate{Amount: 1}), true},
		{"delegate nothing", sign(&tx.Delegate{}), false},
		{"empty deposit", sign(&tx.MpnDeposit{}), false},
		{"no data", &tx.Tx{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.IsTxValid(ctx, tt.tx)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	w := chaintest.Withdraw(common.HexToHash("0x01"), 1, 1)
	assert.ErrorIs(t, v.IsTxValid(ctx, w.Wrap()), ErrWrongPartition)
}

func TestSignatureValidatorWithdraw(t *testing.T) {
	ctx := context.Background()
	w := chaintest.Withdraw(common.HexToHash("0x01"), 1, 1)

	assert.NoError(t, NewSignatureValidator(mpn.AcceptAll{}).IsMpnWithdrawValid(ctx, w))
	assert.Error(t, NewSignatureValidator(mpn.RejectAll{}).IsMpnWithdrawValid(ctx, w))

	failing := mpn.VerifierFunc(func(context.Context, *tx.MpnWithdraw) (bool, error) {
		return false, errors.New("prover offline")
	})
	assert.Error(t, NewSignatureValidator(failing).IsMpnWithdrawValid(ctx, w))

	empty := *w
	empty.Payment.Amount = 0
	assert.Error(t, NewSignatureValidator(mpn.AcceptAll{}).IsMpnWithdrawValid(ctx, &empty))
}
