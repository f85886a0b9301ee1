package api

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/tcfw/chaind/internal/config"
	"github.com/tcfw/chaind/internal/utils/logging"
	"github.com/tcfw/chaind/pkg/chain"
	"github.com/tcfw/chaind/pkg/node"
)

type Client struct {
	cc *grpc.ClientConn
}

func (a *Client) Close() error {
	return a.cc.Close()
}

func NewClient() (*Client, error) {
	return Dial(viper.GetString(config.Cfg_daemon_addr))
}

func Dial(addr string) (*Client, error) {
	cc, err := grpc.Dial(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(codec{})),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to daemon")
	}

	return &Client{cc: cc}, nil
}

// WaitReady polls the daemon until it answers or ctx is done.
func (a *Client) WaitReady(ctx context.Context) error {
	bo := &backoff.Backoff{
		Min: 100 * time.Millisecond,
		Max: 5 * time.Second,
	}

	for {
		_, err := a.GetHeight(ctx)
		if err == nil {
			return nil
		}

		d := bo.Duration()
		logging.Entry().
			WithError(err).
			WithField("waiting", d).
			Debug("waiting for daemon")

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for daemon")
		case <-time.After(d):
		}
	}
}

func (a *Client) GetExplorerBlocks(ctx context.Context, since uint64, count uint32) (*node.GetExplorerBlocksResponse, error) {
	resp := &node.GetExplorerBlocksResponse{}
	req := &node.GetExplorerBlocksRequest{Since: since, Count: count}

	if err := a.cc.Invoke(ctx, methodGetExplorerBlocks, req, resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func (a *Client) PostMpnDeposit(ctx context.Context, req *node.PostMpnDepositRequest) error {
	return a.cc.Invoke(ctx, methodPostMpnDeposit, req, &node.PostMpnDepositResponse{})
}

func (a *Client) PostMpnWithdraw(ctx context.Context, req *node.PostMpnWithdrawRequest) error {
	return a.cc.Invoke(ctx, methodPostMpnWithdraw, req, &node.PostMpnWithdrawResponse{})
}

func (a *Client) GetHeight(ctx context.Context) (*node.GetHeightResponse, error) {
	resp := &node.GetHeightResponse{}

	if err := a.cc.Invoke(ctx, methodGetHeight, &node.GetHeightRequest{}, resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func (a *Client) GetTxBlock(ctx context.Context, h common.Hash) (*chain.Block, error) {
	resp := &node.GetTxBlockResponse{}

	if err := a.cc.Invoke(ctx, methodGetTxBlock, &node.GetTxBlockRequest{Hash: h}, resp); err != nil {
		return nil, err
	}

	return resp.Block, nil
}
