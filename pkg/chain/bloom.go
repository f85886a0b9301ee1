package chain

import (
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/ethereum/go-ethereum/common"
)

const (
	falsePositive = 0.01
)

func MakeBloom(txs []common.Hash) ([]byte, error) {
	b := bloom.NewWithEstimates(MaxBlockTxCount, falsePositive)

	for _, t := range txs {
		b.Add(t.Bytes())
	}

	return b.GobEncode()
}

func BloomContains(b []byte, tx common.Hash) (bool, error) {
	bloom := bloom.NewWithEstimates(MaxBlockTxCount, falsePositive)

	if err := bloom.GobDecode(b); err != nil {
		return false, err
	}

	return bloom.Test(tx.Bytes()), nil
}
