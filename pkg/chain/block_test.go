package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcfw/chaind/pkg/tx"
)

func TestNewBlockGenesis(t *testing.T) {
	b, err := NewBlock(nil, 10, common.HexToAddress("0x01"), nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), b.Header.Height)
	assert.Equal(t, GenesisParent, b.Header.ParentHash)
	assert.NotNil(t, b.Body)

	root, err := NextStateRoot(common.Hash{}, nil)
	require.NoError(t, err)
	assert.Equal(t, root, b.Header.StateRoot)
}

func TestNewBlockChild(t *testing.T) {
	parent, err := NewBlock(nil, 10, common.Address{}, nil)
	require.NoError(t, err)

	body := []*tx.Tx{{Memo: "a", Data: &tx.Delegate{Amount: 1}}}

	child, err := NewBlock(&parent.Header, 11, common.Address{}, body)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), child.Header.Height)
	assert.Equal(t, parent.Hash(), child.Header.ParentHash)
	assert.NotEqual(t, parent.Header.StateRoot, child.Header.StateRoot)

	root, err := NextStateRoot(parent.Header.StateRoot, body)
	require.NoError(t, err)
	assert.Equal(t, root, child.Header.StateRoot)
}

func TestNewBlockTooMany(t *testing.T) {
	_, err := NewBlock(nil, 0, common.Address{}, make([]*tx.Tx, MaxBlockTxCount+1))
	assert.ErrorIs(t, err, ErrTooManyTx)
}

func TestHeaderHash(t *testing.T) {
	h := Header{Height: 1}
	h2 := h
	h2.ProofOfStake.Timestamp = 1

	assert.Equal(t, h.Hash(), (&Header{Height: 1}).Hash())
	assert.NotEqual(t, h.Hash(), h2.Hash())
}

func TestBlockContains(t *testing.T) {
	in := &tx.Tx{Memo: "in", Data: &tx.Delegate{Amount: 1}}
	out := &tx.Tx{Memo: "out", Data: &tx.Delegate{Amount: 2}}

	b, err := NewBlock(nil, 0, common.Address{}, []*tx.Tx{in})
	require.NoError(t, err)

	inHash, err := in.Hash()
	require.NoError(t, err)
	outHash, err := out.Hash()
	require.NoError(t, err)

	// without a bloom the body is scanned
	ok, err := b.Contains(inHash)
	require.NoError(t, err)
	assert.True(t, ok)

	b.Bloom, err = MakeBloom([]common.Hash{inHash})
	require.NoError(t, err)

	ok, err = b.Contains(inHash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Contains(outHash)
	require.NoError(t, err)
	assert.False(t, ok)
}
