package mock

import (
	"context"

	"github.com/tcfw/chaind/pkg/tx"
)

// MockValidator accepts everything.
type MockValidator struct {
}

func (m *MockValidator) IsTxValid(_ context.Context, _ *tx.Tx) error {
	return nil
}

func (m *MockValidator) IsMpnWithdrawValid(_ context.Context, _ *tx.MpnWithdraw) error {
	return nil
}
