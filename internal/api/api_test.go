package api

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/tcfw/chaind/pkg/chain"
	"github.com/tcfw/chaind/pkg/chain/chaintest"
	"github.com/tcfw/chaind/pkg/mempool"
	"github.com/tcfw/chaind/pkg/mpn"
	"github.com/tcfw/chaind/pkg/node"
)

type testServer struct {
	api    *Api
	ledger *chain.Ledger
	local *Client
	// remote connects through an in-memory pipe, which has no loopback
	// address
	remote *Client
}

func newTestServer(t *testing.T, tip uint64, opts ...node.Option) *testServer {
	l := chaintest.NewLedger(t, tip)

	opts = append([]node.Option{node.WithVerifier(mpn.AcceptAll{})}, opts...)
	n, err := node.New(l, opts...)
	require.NoError(t, err)

	a, err := NewAPI(n)
	require.NoError(t, err)

	tcp, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go a.Serve(tcp)

	pipe := bufconn.Listen(1 << 20)
	go a.Serve(pipe)

	t.Cleanup(func() { a.Shutdown(context.Background()) })

	local, err := Dial(tcp.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })

	cc, err := grpc.Dial("bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return pipe.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(codec{})),
	)
	require.NoError(t, err)
	remote := &Client{cc: cc}
	t.Cleanup(func() { remote.Close() })

	return &testServer{api: a, ledger: l, local: local, remote: remote}
}

func TestGetExplorerBlocks(t *testing.T) {
	s := newTestServer(t, 100, node.WithMaxBlocksFetch(16))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := s.remote.GetExplorerBlocks(ctx, 10, 10000)
	require.NoError(t, err)
	require.Len(t, resp.Blocks, 16)
	assert.Equal(t, uint64(10), resp.Blocks[0].Header.Height)
	assert.Equal(t, uint64(25), resp.Blocks[15].Header.Height)

	resp, err = s.local.GetExplorerBlocks(ctx, 200, 10)
	require.NoError(t, err)
	assert.Empty(t, resp.Blocks)
}

func TestGetHeight(t *testing.T) {
	s := newTestServer(t, 7)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.local.WaitReady(ctx))

	resp, err := s.local.GetHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), resp.Height)
}

func TestPostMpnDepositOrigin(t *testing.T) {
	s := newTestServer(t, 0, node.WithMempoolOptions(mempool.WithMinFee(10)))
	key := chaintest.NewKey(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cheap := &node.PostMpnDepositRequest{Tx: chaintest.Deposit(t, key, 1, 1)}

	err := s.remote.PostMpnDeposit(ctx, cheap)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	require.NoError(t, s.local.PostMpnDeposit(ctx, cheap))

	err = s.remote.PostMpnDeposit(ctx, &node.PostMpnDepositRequest{Tx: chaintest.Deposit(t, key, 1, 50)})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	err = s.local.PostMpnDeposit(ctx, &node.PostMpnDepositRequest{Tx: chaintest.Send(t, key, 2, 50)})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestPostMpnWithdraw(t *testing.T) {
	s := newTestServer(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w := chaintest.Withdraw(common.HexToHash("0x0e"), 1, 1)

	require.NoError(t, s.remote.PostMpnWithdraw(ctx, &node.PostMpnWithdrawRequest{Tx: w}))

	err := s.remote.PostMpnWithdraw(ctx, &node.PostMpnWithdrawRequest{Tx: w})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}

func TestGetTxBlock(t *testing.T) {
	s := newTestServer(t, 2)
	key := chaintest.NewKey(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	send := chaintest.Send(t, key, 1, 1)
	b := chaintest.Next(t, s.ledger, send)
	require.NoError(t, s.api.n.AppendBlock(ctx, b))

	h, err := send.Hash()
	require.NoError(t, err)

	got, err := s.remote.GetTxBlock(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.Header.Height)
	assert.Equal(t, b.Hash(), got.Hash())

	_, err = s.remote.GetTxBlock(ctx, common.HexToHash("0x01"))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{mempool.ErrNonceAlreadyUsed, codes.FailedPrecondition},
		{errors.Wrap(mempool.ErrAdmissionThrottled, "pool full"), codes.ResourceExhausted},
		{mempool.ErrDuplicatePending, codes.AlreadyExists},
		{mempool.ErrInvalidTx, codes.InvalidArgument},
		{chain.ErrAtGenesis, codes.FailedPrecondition},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{status.Error(codes.Unavailable, "x"), codes.Unavailable},
		{errors.New("boom"), codes.Internal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(toStatus(tt.err)), tt.err.Error())
	}
}
