// Package mpn holds the capability the node uses to check rollup-sourced
// transactions. Proof verification itself lives with the rollup.
package mpn

import (
	"context"

	"github.com/tcfw/chaind/pkg/tx"
)

// Verifier accepts or rejects a withdrawal against rollup state.
type Verifier interface {
	Verify(context.Context, *tx.MpnWithdraw) (bool, error)
}

var (
	_ Verifier = AcceptAll{}
	_ Verifier = RejectAll{}
	_ Verifier = VerifierFunc(nil)
)

type AcceptAll struct{}

func (AcceptAll) Verify(context.Context, *tx.MpnWithdraw) (bool, error) { return true, nil }

type RejectAll struct{}

func (RejectAll) Verify(context.Context, *tx.MpnWithdraw) (bool, error) { return false, nil }

type VerifierFunc func(context.Context, *tx.MpnWithdraw) (bool, error)

func (f VerifierFunc) Verify(ctx context.Context, w *tx.MpnWithdraw) (bool, error) {
	return f(ctx, w)
}
