package node

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/tcfw/chaind/pkg/chain"
	"github.com/tcfw/chaind/pkg/tx"
)

type GetExplorerBlocksRequest struct {
	Since uint64 `msgpack:"s"`
	Count uint32 `msgpack:"c"`
}

type GetExplorerBlocksResponse struct {
	Blocks []*chain.Block `msgpack:"b"`
}

// PostMpnDepositRequest carries a chain-sourced MpnDeposit tx.
type PostMpnDepositRequest struct {
	Tx *tx.Tx `msgpack:"t"`
}

type PostMpnDepositResponse struct{}

type PostMpnWithdrawRequest struct {
	Tx *tx.MpnWithdraw `msgpack:"t"`
}

type PostMpnWithdrawResponse struct{}

// GetTxBlockRequest looks up the block that included the tx with Hash.
type GetTxBlockRequest struct {
	Hash common.Hash `msgpack:"h"`
}

type GetTxBlockResponse struct {
	Block *chain.Block `msgpack:"b"`
}

type GetHeightRequest struct{}

type GetHeightResponse struct {
	Height  uint64      `msgpack:"h"`
	TipHash common.Hash `msgpack:"t"`
}
