package chain_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcfw/chaind/pkg/chain"
	"github.com/tcfw/chaind/pkg/chain/chaintest"
	"github.com/tcfw/chaind/pkg/storage"
	"github.com/tcfw/chaind/pkg/tx"
)

type failingKV struct {
	*storage.MemKV
	fail bool
}

func (f *failingKV) NewBatch() storage.Batch {
	return &failingBatch{Batch: f.MemKV.NewBatch(), kv: f}
}

type failingBatch struct {
	storage.Batch
	kv *failingKV
}

func (b *failingBatch) Commit() error {
	if b.kv.fail {
		return errors.New("disk on fire")
	}
	return b.Batch.Commit()
}

func heights(blocks []*chain.Block) []uint64 {
	hs := make([]uint64, 0, len(blocks))
	for _, b := range blocks {
		hs = append(hs, b.Header.Height)
	}
	return hs
}

func TestOpenAppliesGenesis(t *testing.T) {
	genesis := chaintest.Genesis(t)

	l, err := chain.Open(context.Background(), storage.NewMemKV(), genesis)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), l.Height())
	assert.Equal(t, genesis.Hash(), l.TipHash())
	assert.Equal(t, genesis.Header.StateRoot, l.StateRoot())
}

func TestOpenNoGenesis(t *testing.T) {
	_, err := chain.Open(context.Background(), storage.NewMemKV(), nil)
	assert.ErrorIs(t, err, chain.ErrNoGenesis)
}

func TestOpenReloadsTip(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemKV()

	l, err := chain.Open(ctx, kv, chaintest.Genesis(t))
	require.NoError(t, err)
	chaintest.Extend(t, l, 5)

	tip := l.TipHash()

	l2, err := chain.Open(ctx, kv, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(5), l2.Height())
	assert.Equal(t, tip, l2.TipHash())

	l3, err := chain.Open(ctx, kv, chaintest.Genesis(t))
	require.NoError(t, err)
	assert.Equal(t, tip, l3.TipHash())
}

func TestOpenGenesisMismatch(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemKV()

	_, err := chain.Open(ctx, kv, chaintest.Genesis(t))
	require.NoError(t, err)

	other := chain.DefaultGenesis()
	other.ChainID = "othernet"
	otherBlock, err := other.Block()
	require.NoError(t, err)

	_, err = chain.Open(ctx, kv, otherBlock)
	assert.ErrorIs(t, err, chain.ErrGenesisMismatch)
}

func TestAppendErrors(t *testing.T) {
	ctx := context.Background()
	l := chaintest.NewLedger(t, 3)
	tip := l.Tip()

	good := chaintest.Next(t, l)

	conflict := *good
	conflict.Header.Height = 3

	gap := *good
	gap.Header.Height = 5

	badParent := *good
	badParent.Header.ParentHash = common.HexToHash("0x01")

	badRoot := *good
	badRoot.Header.StateRoot = common.HexToHash("0x02")

	tooMany := &chain.Block{Header: good.Header, Body: make([]*tx.Tx, chain.MaxBlockTxCount+1)}

	tests := []struct {
		name  string
		block *chain.Block
		err   error
	}{
		{"conflict", &conflict, chain.ErrHeightConflict},
		{"gap", &gap, chain.ErrHeightGap},
		{"parent", &badParent, chain.ErrInvalidParent},
		{"state root", &badRoot, chain.ErrInvalidStateRoot},
		{"too many", tooMany, chain.ErrTooManyTx},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Append(ctx, tt.block)
			assert.ErrorIs(t, err, tt.err)

			assert.Equal(t, tip, l.Tip())
		})
	}

	require.NoError(t, l.Append(ctx, good))
	assert.Equal(t, uint64(4), l.Height())
	assert.Equal(t, good.Hash(), l.TipHash())
}

func TestAppendCancelled(t *testing.T) {
	l := chaintest.NewLedger(t, 1)
	b := chaintest.Next(t, l)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, l.Append(ctx, b), context.Canceled)
	assert.Equal(t, uint64(1), l.Height())
}

func TestAppendNonces(t *testing.T) {
	ctx := context.Background()
	l := chaintest.NewLedger(t, 0)
	key := chaintest.NewKey(t)
	acc := crypto.PubkeyToAddress(key.PublicKey)

	skip := chaintest.Next(t, l, chaintest.Send(t, key, 2, 1))
	assert.ErrorIs(t, l.Append(ctx, skip), chain.ErrInvalidNonce)

	chaintest.Append(t, l, chaintest.Send(t, key, 1, 1), chaintest.Send(t, key, 2, 1))

	n, err := l.Nonce(acc)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	replay := chaintest.Next(t, l, chaintest.Send(t, key, 2, 1))
	assert.ErrorIs(t, l.Append(ctx, replay), chain.ErrInvalidNonce)

	zk := common.HexToHash("0xabc")
	chaintest.Append(t, l, chaintest.Withdraw(zk, 1, 1).Wrap())

	mn, err := l.MpnNonce(zk)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), mn)

	dup := chaintest.Next(t, l, chaintest.Withdraw(zk, 1, 1).Wrap())
	assert.ErrorIs(t, l.Append(ctx, dup), chain.ErrInvalidNonce)
}

func TestAppendStorageFailure(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{MemKV: storage.NewMemKV()}

	l, err := chain.Open(ctx, kv, chaintest.Genesis(t))
	require.NoError(t, err)

	b := chaintest.Next(t, l)
	kv.fail = true

	err = l.Append(ctx, b)
	assert.ErrorIs(t, err, chain.ErrStorageFailure)
	assert.Equal(t, uint64(0), l.Height())

	var se *chain.StorageError
	require.True(t, errors.As(err, &se))
	assert.EqualError(t, se.Err, "disk on fire")

	kv.fail = false
	assert.NoError(t, l.Append(ctx, b))
}

func TestRollbackInverse(t *testing.T) {
	ctx := context.Background()
	l := chaintest.NewLedger(t, 10)
	key := chaintest.NewKey(t)
	acc := crypto.PubkeyToAddress(key.PublicKey)
	zk := common.HexToHash("0xdef")

	chaintest.Append(t, l, chaintest.Send(t, key, 1, 1))

	height, tipHash, root := l.Height(), l.TipHash(), l.StateRoot()

	send := chaintest.Send(t, key, 2, 1)
	w := chaintest.Withdraw(zk, 1, 1).Wrap()
	b := chaintest.Append(t, l, send, w)

	sendHash, err := send.Hash()
	require.NoError(t, err)

	found, err := l.TxBlock(ctx, sendHash)
	require.NoError(t, err)
	assert.Equal(t, b.Hash(), found.Hash())

	rev, err := l.Rollback(ctx)
	require.NoError(t, err)

	assert.Equal(t, b.Hash(), rev.Block.Hash())
	assert.Equal(t, []common.Address{acc}, rev.Accounts)
	assert.Equal(t, []common.Hash{zk}, rev.MpnAccounts)

	assert.Equal(t, height, l.Height())
	assert.Equal(t, tipHash, l.TipHash())
	assert.Equal(t, root, l.StateRoot())

	n, err := l.Nonce(acc)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	mn, err := l.MpnNonce(zk)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), mn)

	_, err = l.TxBlock(ctx, sendHash)
	assert.ErrorIs(t, err, chain.ErrNotFound)

	_, err = l.Block(ctx, b.Header.Height)
	assert.ErrorIs(t, err, chain.ErrNotFound)

	// the same block applies again cleanly
	require.NoError(t, l.Append(ctx, b))
	assert.Equal(t, b.Hash(), l.TipHash())
}

func TestRollbackAtGenesis(t *testing.T) {
	l := chaintest.NewLedger(t, 0)
	tip := l.TipHash()

	_, err := l.Rollback(context.Background())
	assert.ErrorIs(t, err, chain.ErrAtGenesis)
	assert.Equal(t, uint64(0), l.Height())
	assert.Equal(t, tip, l.TipHash())
}

func TestRollbackToGenesis(t *testing.T) {
	ctx := context.Background()
	l := chaintest.NewLedger(t, 3)

	for i := 0; i < 3; i++ {
		_, err := l.Rollback(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, uint64(0), l.Height())

	_, err := l.Rollback(ctx)
	assert.ErrorIs(t, err, chain.ErrAtGenesis)
}

func TestBlocksRange(t *testing.T) {
	ctx := context.Background()
	l := chaintest.NewLedger(t, 100)

	tests := []struct {
		name  string
		since uint64
		count uint32
		want  []uint64
	}{
		{"head", 0, 2, []uint64{0, 1}},
		{"middle", 10, 10, []uint64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}},
		{"tip", 99, 10000, []uint64{99, 100}},
		{"exact tip", 100, 1, []uint64{100}},
		{"past tip", 101, 10, []uint64{}},
		{"far past tip", 200, 10, []uint64{}},
		{"zero count", 5, 0, []uint64{}},
		{"overflow", ^uint64(0), ^uint32(0), []uint64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks, err := l.Blocks(ctx, tt.since, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.want, heights(blocks))
		})
	}

	all, err := l.Blocks(ctx, 0, 1000)
	require.NoError(t, err)
	assert.Len(t, all, 101)

	for i := 1; i < len(all); i++ {
		assert.Equal(t, all[i-1].Hash(), all[i].Header.ParentHash)
	}
}

func TestBlocksCancelled(t *testing.T) {
	l := chaintest.NewLedger(t, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Blocks(ctx, 0, 5)
	assert.ErrorIs(t, err, context.Canceled)
}
