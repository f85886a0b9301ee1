// Package chaintest builds in-memory chains for tests.
package chaintest

import (
	"context"
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tcfw/chaind/pkg/chain"
	"github.com/tcfw/chaind/pkg/storage"
	"github.com/tcfw/chaind/pkg/tx"
)

var (
	Validator = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

func Genesis(t testing.TB) *chain.Block {
	g := chain.DefaultGenesis()
	g.Validator = Validator.Hex()

	b, err := g.Block()
	if err != nil {
		t.Fatal(err)
	}

	return b
}

// NewLedger opens a ledger on a fresh MemKV holding heights 0..tip.
func NewLedger(t testing.TB, tip uint64) *chain.Ledger {
	l, err := chain.Open(context.Background(), storage.NewMemKV(), Genesis(t))
	if err != nil {
		t.Fatal(err)
	}

	Extend(t, l, tip)

	return l
}

// Extend appends n empty blocks to l.
func Extend(t testing.TB, l *chain.Ledger, n uint64) {
	for i := uint64(0); i < n; i++ {
		Append(t, l)
	}
}

// Next builds the child of the current tip of l.
func Next(t testing.TB, l *chain.Ledger, body ...*tx.Tx) *chain.Block {
	tip := l.Tip()

	b, err := chain.NewBlock(&tip, tip.ProofOfStake.Timestamp+1, Validator, body)
	if err != nil {
		t.Fatal(err)
	}

	return b
}

// Append builds and appends the child of the current tip of l.
func Append(t testing.TB, l *chain.Ledger, body ...*tx.Tx) *chain.Block {
	b := Next(t, l, body...)
	if err := l.Append(context.Background(), b); err != nil {
		t.Fatal(err)
	}

	return b
}

func NewKey(t testing.TB) *ecdsa.PrivateKey {
	k, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	return k
}

// Send returns a signed RegularSend from key with the given nonce and fee.
func Send(t testing.TB, key *ecdsa.PrivateKey, nonce uint64, fee uint64) *tx.Tx {
	st := &tx.Tx{
		Nonce: nonce,
		Fee:   tx.NativeMoney(fee),
		Data: &tx.RegularSend{Entries: []tx.Entry{
			{Dst: common.HexToAddress("0x01"), Money: tx.NativeMoney(1)},
		}},
	}

	if err := st.Sign(key); err != nil {
		t.Fatal(err)
	}

	return st
}

// Deposit returns a signed MpnDeposit from key.
func Deposit(t testing.TB, key *ecdsa.PrivateKey, nonce uint64, fee uint64) *tx.Tx {
	dt := &tx.Tx{
		Nonce: nonce,
		Fee:   tx.NativeMoney(fee),
		Data: &tx.MpnDeposit{
			ZkAddress: common.HexToHash("0x0100"),
			Payment:   tx.NativeMoney(10),
		},
	}

	if err := dt.Sign(key); err != nil {
		t.Fatal(err)
	}

	return dt
}

func Withdraw(zk common.Hash, nonce uint64, fee uint64) *tx.MpnWithdraw {
	return &tx.MpnWithdraw{
		ZkAddress: zk,
		ZkNonce:   nonce,
		Dst:       common.HexToAddress("0x02"),
		Payment:   tx.NativeMoney(5),
		Fee:       tx.NativeMoney(fee),
		ZkSig:     []byte{1},
	}
}
