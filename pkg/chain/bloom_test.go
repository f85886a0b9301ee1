package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
)

func TestBloom(t *testing.T) {
	txHashes := []common.Hash{
		crypto.Keccak256Hash([]byte{1}),
		crypto.Keccak256Hash([]byte{2}),
	}

	b, err := MakeBloom(txHashes)
	if err != nil {
		t.Fatal(err)
	}

	yes, err := BloomContains(b, txHashes[0])
	if err != nil {
		t.Fatal(err)
	}

	assert.True(t, yes)

	no, err := BloomContains(b, common.Hash{})
	if err != nil {
		t.Fatal(err)
	}

	assert.False(t, no)
}
