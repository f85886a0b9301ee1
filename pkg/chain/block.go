package chain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/sha3"

	"github.com/tcfw/chaind/pkg/tx"
)

const (
	MaxBlockTxCount = 1000
)

var (
	// GenesisParent is the parent hash every height 0 block must carry.
	GenesisParent = common.Hash{}
)

type ProofOfStake struct {
	Timestamp uint32         `msgpack:"t"`
	Validator common.Address `msgpack:"v"`
}

type Header struct {
	ParentHash   common.Hash  `msgpack:"p"`
	Height       uint64       `msgpack:"h"`
	StateRoot    common.Hash  `msgpack:"r"`
	ProofOfStake ProofOfStake `msgpack:"s"`
}

func (h *Header) Hash() common.Hash {
	d, err := msgpack.Marshal(h)
	if err != nil {
		// fixed-size fields only
		panic(err)
	}

	return crypto.Keccak256Hash(d)
}

type Block struct {
	Header Header   `msgpack:"h"`
	Body   []*tx.Tx `msgpack:"b"`

	// Bloom is derived from Body by the ledger when the block is stored.
	Bloom []byte `msgpack:"f,omitempty"`
}

func (b *Block) Hash() common.Hash {
	return b.Header.Hash()
}

// Contains reports whether a tx with hash h is in the block body. The bloom
// filter, when present, short circuits most misses.
func (b *Block) Contains(h common.Hash) (bool, error) {
	if len(b.Bloom) != 0 {
		maybe, err := BloomContains(b.Bloom, h)
		if err != nil {
			return false, errors.Wrap(err, "reading block bloom")
		}
		if !maybe {
			return false, nil
		}
	}

	for _, t := range b.Body {
		th, err := t.Hash()
		if err != nil {
			return false, err
		}
		if th == h {
			return true, nil
		}
	}

	return false, nil
}

func (b *Block) txHashes() ([]common.Hash, error) {
	hashes := make([]common.Hash, 0, len(b.Body))
	for _, t := range b.Body {
		h, err := t.Hash()
		if err != nil {
			return nil, errors.Wrap(err, "hashing tx")
		}
		hashes = append(hashes, h)
	}

	return hashes, nil
}

// NextStateRoot folds the body tx hashes into the parent state root.
func NextStateRoot(parent common.Hash, body []*tx.Tx) (common.Hash, error) {
	h := sha3.NewLegacyKeccak256()
	h.Write(parent[:])

	for _, t := range body {
		th, err := t.Hash()
		if err != nil {
			return common.Hash{}, errors.Wrap(err, "hashing tx")
		}
		h.Write(th[:])
	}

	var root common.Hash
	copy(root[:], h.Sum(nil))

	return root, nil
}

// NewBlock builds the child of parent carrying body. A nil parent builds a
// genesis block.
func NewBlock(parent *Header, ts uint32, validator common.Address, body []*tx.Tx) (*Block, error) {
	if len(body) > MaxBlockTxCount {
		return nil, ErrTooManyTx
	}

	header := Header{
		ParentHash: GenesisParent,
		ProofOfStake: ProofOfStake{
			Timestamp: ts,
			Validator: validator,
		},
	}

	var parentRoot common.Hash
	if parent != nil {
		header.ParentHash = parent.Hash()
		header.Height = parent.Height + 1
		parentRoot = parent.StateRoot
	}

	root, err := NextStateRoot(parentRoot, body)
	if err != nil {
		return nil, err
	}
	header.StateRoot = root

	if body == nil {
		body = []*tx.Tx{}
	}

	return &Block{Header: header, Body: body}, nil
}
