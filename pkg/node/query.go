package node

import (
	"context"

	"github.com/tcfw/chaind/pkg/chain"
)

// GetExplorerBlocks returns up to min(MaxBlocksFetch, req.Count) blocks from
// req.Since. A Since past the tip yields no blocks rather than an error.
func (c *Context) GetExplorerBlocks(ctx context.Context, req *GetExplorerBlocksRequest) (*GetExplorerBlocksResponse, error) {
	count := req.Count
	if count > c.maxBlocksFetch {
		count = c.maxBlocksFetch
	}

	var blocks []*chain.Block
	err := c.View(ctx, func(r *Reader) error {
		var err error
		blocks, err = r.Blocks(ctx, req.Since, count)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.metrics.fetched.Observe(float64(len(blocks)))

	return &GetExplorerBlocksResponse{Blocks: blocks}, nil
}

// GetTxBlock returns the block that included req.Hash, or chain.ErrNotFound.
func (c *Context) GetTxBlock(ctx context.Context, req *GetTxBlockRequest) (*GetTxBlockResponse, error) {
	var b *chain.Block
	err := c.View(ctx, func(r *Reader) error {
		var err error
		b, err = r.TxBlock(ctx, req.Hash)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &GetTxBlockResponse{Block: b}, nil
}

func (c *Context) MaxBlocksFetch() uint32 {
	return c.maxBlocksFetch
}
