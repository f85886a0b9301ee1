package chain

import (
	"context"
	"math"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tcfw/chaind/pkg/storage"
)

// Ledger is the canonical chain kept in a KV engine. Blocks are stored by
// height with a derived tip pointer; every mutation is one batch commit.
//
// The header of the tip is cached in memory and only swapped after a commit
// succeeds, under the write lock, so readers see either the old chain or the
// new one.
type Ledger struct {
	mu sync.RWMutex

	kv     storage.KV
	logger *logrus.Logger

	tip     *Header
	tipHash common.Hash
}

type Option func(*Ledger) error

func WithLogger(l *logrus.Logger) Option {
	return func(lg *Ledger) error {
		lg.logger = l
		return nil
	}
}

type kvWrite struct {
	k, v []byte
}

// Reverted describes the block removed by Rollback and the accounts whose
// nonces it restored.
type Reverted struct {
	Block       *Block
	Accounts    []common.Address
	MpnAccounts []common.Hash
}

// Open loads the chain from kv. When kv holds no chain, genesis is applied
// as height 0.
func Open(ctx context.Context, kv storage.KV, genesis *Block, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		kv:     kv,
		logger: logrus.StandardLogger(),
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	d, err := kv.Get(typedKey(tipTPrefix))
	switch {
	case err == nil:
		if genesis != nil {
			g, err := l.getBlock(0)
			if err != nil {
				return nil, errors.Wrap(err, "loading genesis block")
			}
			if g.Hash() != genesis.Hash() {
				return nil, errors.Wrapf(ErrGenesisMismatch, "stored %s, configured %s", g.Hash().Hex(), genesis.Hash().Hex())
			}
		}

		b, err := l.getBlock(decodeUint64(d))
		if err != nil {
			return nil, errors.Wrap(err, "loading tip block")
		}
		l.setTip(&b.Header)
	case errors.Is(err, storage.ErrNotFound):
		if genesis == nil {
			return nil, ErrNoGenesis
		}
		if err := l.Append(ctx, genesis); err != nil {
			return nil, errors.Wrap(err, "applying genesis")
		}
	default:
		return nil, storageErr(err, "reading tip")
	}

	l.logger.WithField("height", l.tip.Height).WithField("tip", l.tipHash.Hex()).Debug("ledger opened")

	return l, nil
}

func (l *Ledger) setTip(h *Header) {
	hc := *h
	l.tip = &hc
	l.tipHash = hc.Hash()
}

// Height is the height of the tip block.
func (l *Ledger) Height() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.tip.Height
}

func (l *Ledger) TipHash() common.Hash {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.tipHash
}

// StateRoot is the state root committed by the tip block.
func (l *Ledger) StateRoot() common.Hash {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.tip.StateRoot
}

// Tip returns a copy of the tip header.
func (l *Ledger) Tip() Header {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return *l.tip
}

// Nonce is the last nonce consumed by account, 0 if none.
func (l *Ledger) Nonce(account common.Address) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.nonce(typedKey(nonceTPrefix, account.Bytes()))
}

// MpnNonce is the last rollup nonce consumed by a withdrawal from account.
func (l *Ledger) MpnNonce(account common.Hash) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.nonce(typedKey(mpnNonceTPrefix, account.Bytes()))
}

func (l *Ledger) nonce(k []byte) (uint64, error) {
	n, _, err := l.lookupNonce(k)
	return n, err
}

// Append validates b as the child of the tip and stores it together with
// its undo record, nonce updates and tx index in one batch.
func (l *Ledger) Append(ctx context.Context, b *Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.append(b)
}

func (l *Ledger) append(b *Block) error {
	if len(b.Body) > MaxBlockTxCount {
		return ErrTooManyTx
	}

	h := b.Header.Height
	parentRoot := common.Hash{}

	if l.tip == nil {
		if h != 0 {
			return ErrHeightGap
		}
		if b.Header.ParentHash != GenesisParent {
			return ErrInvalidParent
		}
	} else {
		switch {
		case h <= l.tip.Height:
			return ErrHeightConflict
		case h > l.tip.Height+1:
			return ErrHeightGap
		case b.Header.ParentHash != l.tipHash:
			return ErrInvalidParent
		}
		parentRoot = l.tip.StateRoot
	}

	root, err := NextStateRoot(parentRoot, b.Body)
	if err != nil {
		return err
	}
	if root != b.Header.StateRoot {
		return ErrInvalidStateRoot
	}

	undo := &undoRecord{PrevStateRoot: parentRoot}

	nonces := map[common.Address]uint64{}
	mpnNonces := map[common.Hash]uint64{}

	for _, t := range b.Body {
		if account, ok := t.Account(); ok {
			cur, seen := nonces[account]
			if !seen {
				k := typedKey(nonceTPrefix, account.Bytes())
				prev, existed, err := l.lookupNonce(k)
				if err != nil {
					return err
				}
				undo.Nonces = append(undo.Nonces, nonceUndo{Account: account, Prev: prev, Existed: existed})
				cur = prev
			}
			if t.Nonce != cur+1 {
				return errors.Wrapf(ErrInvalidNonce, "account %s nonce %d, expected %d", account.Hex(), t.Nonce, cur+1)
			}
			nonces[account] = t.Nonce
		}

		if w, ok := t.Withdraw(); ok {
			cur, seen := mpnNonces[w.ZkAddress]
			if !seen {
				k := typedKey(mpnNonceTPrefix, w.ZkAddress.Bytes())
				prev, existed, err := l.lookupNonce(k)
				if err != nil {
					return err
				}
				undo.MpnNonces = append(undo.MpnNonces, mpnNonceUndo{Account: w.ZkAddress, Prev: prev, Existed: existed})
				cur = prev
			}
			if w.ZkNonce != cur+1 {
				return errors.Wrapf(ErrInvalidNonce, "rollup account %s nonce %d, expected %d", w.ZkAddress.Hex(), w.ZkNonce, cur+1)
			}
			mpnNonces[w.ZkAddress] = w.ZkNonce
		}
	}

	hashes, err := b.txHashes()
	if err != nil {
		return err
	}

	stored := *b
	stored.Bloom, err = MakeBloom(hashes)
	if err != nil {
		return errors.Wrap(err, "creating block bloom filter")
	}

	blockB, err := msgpack.Marshal(&stored)
	if err != nil {
		return errors.Wrap(err, "marshaling block")
	}

	undoB, err := msgpack.Marshal(undo)
	if err != nil {
		return errors.Wrap(err, "marshaling undo record")
	}

	batch := l.kv.NewBatch()
	defer batch.Close()

	writes := []kvWrite{
		{heightKey(blockTPrefix, h), blockB},
		{heightKey(undoTPrefix, h), undoB},
		{typedKey(tipTPrefix), encodeUint64(h)},
	}
	for account, n := range nonces {
		writes = append(writes, kvWrite{typedKey(nonceTPrefix, account.Bytes()), encodeUint64(n)})
	}
	for account, n := range mpnNonces {
		writes = append(writes, kvWrite{typedKey(mpnNonceTPrefix, account.Bytes()), encodeUint64(n)})
	}
	for _, th := range hashes {
		writes = append(writes, kvWrite{typedKey(txBlockTPrefix, th.Bytes()), encodeUint64(h)})
	}

	for _, w := range writes {
		if err := batch.Set(w.k, w.v); err != nil {
			return storageErr(err, "staging block")
		}
	}

	if err := batch.Commit(); err != nil {
		return storageErr(err, "committing block")
	}

	l.setTip(&b.Header)

	l.logger.WithField("height", h).WithField("txs", len(b.Body)).Debug("appended block")

	return nil
}

func (l *Ledger) lookupNonce(k []byte) (uint64, bool, error) {
	d, err := l.kv.Get(k)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, storageErr(err, "reading nonce")
	}

	return decodeUint64(d), true, nil
}

// Blocks returns the stored blocks with heights in [since, since+count) in
// ascending order. Ranges past the tip are truncated; a since beyond the tip
// yields an empty slice. count is not capped here.
func (l *Ledger) Blocks(ctx context.Context, since uint64, count uint32) ([]*Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	blocks := []*Block{}

	if count == 0 || since > l.tip.Height {
		return blocks, nil
	}

	end := l.tip.Height
	if since <= math.MaxUint64-uint64(count-1) && since+uint64(count-1) < end {
		end = since + uint64(count-1)
	}

	for h := since; ; h++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b, err := l.getBlock(h)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)

		if h == end {
			break
		}
	}

	return blocks, nil
}

// Block returns the block stored at height h.
func (l *Ledger) Block(ctx context.Context, h uint64) (*Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.getBlock(h)
}

func (l *Ledger) getBlock(h uint64) (*Block, error) {
	d, err := l.kv.Get(heightKey(blockTPrefix, h))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr(err, "reading block")
	}

	b := &Block{}
	if err := msgpack.Unmarshal(d, b); err != nil {
		return nil, errors.Wrap(err, "unmarshalling block")
	}

	return b, nil
}

func (l *Ledger) getUndo(h uint64) (*undoRecord, error) {
	d, err := l.kv.Get(heightKey(undoTPrefix, h))
	if err != nil {
		return nil, storageErr(err, "reading undo record")
	}

	u := &undoRecord{}
	if err := msgpack.Unmarshal(d, u); err != nil {
		return nil, errors.Wrap(err, "unmarshalling undo record")
	}

	return u, nil
}

// TxBlock looks up the block that included the tx with hash h.
func (l *Ledger) TxBlock(ctx context.Context, h common.Hash) (*Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	d, err := l.kv.Get(typedKey(txBlockTPrefix, h.Bytes()))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr(err, "looking up tx block")
	}

	b, err := l.getBlock(decodeUint64(d))
	if err != nil {
		return nil, err
	}

	ok, err := b.Contains(h)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "tx index points at block %d without tx", b.Header.Height)
	}

	return b, nil
}

// Rollback removes the tip block, restoring the predecessor's state root
// and the nonces the block consumed. Genesis is never removed.
func (l *Ledger) Rollback(ctx context.Context) (*Reverted, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	h := l.tip.Height
	if h == 0 {
		return nil, ErrAtGenesis
	}

	b, err := l.getBlock(h)
	if err != nil {
		return nil, errors.Wrap(err, "reading tip block")
	}

	undo, err := l.getUndo(h)
	if err != nil {
		return nil, err
	}

	parent, err := l.getBlock(h - 1)
	if err != nil {
		return nil, errors.Wrap(err, "reading parent block")
	}

	if parent.Header.StateRoot != undo.PrevStateRoot {
		return nil, errors.Wrap(ErrInvalidStateRoot, "undo record does not match parent")
	}

	hashes, err := b.txHashes()
	if err != nil {
		return nil, err
	}

	batch := l.kv.NewBatch()
	defer batch.Close()

	dels := [][]byte{
		heightKey(blockTPrefix, h),
		heightKey(undoTPrefix, h),
	}
	for _, th := range hashes {
		dels = append(dels, typedKey(txBlockTPrefix, th.Bytes()))
	}
	for _, n := range undo.Nonces {
		k := typedKey(nonceTPrefix, n.Account.Bytes())
		if !n.Existed {
			dels = append(dels, k)
			continue
		}
		if err := batch.Set(k, encodeUint64(n.Prev)); err != nil {
			return nil, storageErr(err, "staging rollback")
		}
	}
	for _, n := range undo.MpnNonces {
		k := typedKey(mpnNonceTPrefix, n.Account.Bytes())
		if !n.Existed {
			dels = append(dels, k)
			continue
		}
		if err := batch.Set(k, encodeUint64(n.Prev)); err != nil {
			return nil, storageErr(err, "staging rollback")
		}
	}

	for _, k := range dels {
		if err := batch.Delete(k); err != nil {
			return nil, storageErr(err, "staging rollback")
		}
	}

	if err := batch.Set(typedKey(tipTPrefix), encodeUint64(h-1)); err != nil {
		return nil, storageErr(err, "staging rollback")
	}

	if err := batch.Commit(); err != nil {
		return nil, storageErr(err, "committing rollback")
	}

	l.setTip(&parent.Header)

	l.logger.WithField("height", h).Debug("rolled back block")

	return &Reverted{
		Block:       b,
		Accounts:    undo.Accounts(),
		MpnAccounts: undo.MpnAccounts(),
	}, nil
}

// Close releases the KV engine.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.kv.Close()
}
