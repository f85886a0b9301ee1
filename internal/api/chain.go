package api

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"

	"github.com/tcfw/chaind/pkg/node"
)

const (
	serviceName = "chaind.Node"

	methodGetExplorerBlocks = "/" + serviceName + "/GetExplorerBlocks"
	methodPostMpnDeposit    = "/" + serviceName + "/PostMpnDeposit"
	methodPostMpnWithdraw   = "/" + serviceName + "/PostMpnWithdraw"
	methodGetHeight         = "/" + serviceName + "/GetHeight"
	methodGetTxBlock        = "/" + serviceName + "/GetTxBlock"
)

func init() {
	reg = append(reg, &chainApi{})
}

// NodeServer is the service served to clients. Rollback is deliberately
// absent; it is only reachable from the offline CLI.
type NodeServer interface {
	GetExplorerBlocks(context.Context, *node.GetExplorerBlocksRequest) (*node.GetExplorerBlocksResponse, error)
	PostMpnDeposit(context.Context, *node.PostMpnDepositRequest) (*node.PostMpnDepositResponse, error)
	PostMpnWithdraw(context.Context, *node.PostMpnWithdrawRequest) (*node.PostMpnWithdrawResponse, error)
	GetHeight(context.Context, *node.GetHeightRequest) (*node.GetHeightResponse, error)
	GetTxBlock(context.Context, *node.GetTxBlockRequest) (*node.GetTxBlockResponse, error)
}

var (
	_ NodeServer = (*chainApi)(nil)
)

type chainApi struct {
	BaseHandler
}

func (c *chainApi) Desc() *grpc.ServiceDesc {
	return &Node_ServiceDesc
}

func (c *chainApi) GetExplorerBlocks(ctx context.Context, req *node.GetExplorerBlocksRequest) (*node.GetExplorerBlocksResponse, error) {
	return c.a.n.GetExplorerBlocks(ctx, req)
}

func (c *chainApi) PostMpnDeposit(ctx context.Context, req *node.PostMpnDepositRequest) (*node.PostMpnDepositResponse, error) {
	return c.a.n.PostMpnDeposit(ctx, req, peerAddr(ctx))
}

func (c *chainApi) PostMpnWithdraw(ctx context.Context, req *node.PostMpnWithdrawRequest) (*node.PostMpnWithdrawResponse, error) {
	return c.a.n.PostMpnWithdraw(ctx, req, peerAddr(ctx))
}

func (c *chainApi) GetHeight(ctx context.Context, _ *node.GetHeightRequest) (*node.GetHeightResponse, error) {
	resp := &node.GetHeightResponse{}

	err := c.a.n.View(ctx, func(r *node.Reader) error {
		resp.Height = r.Height()
		resp.TipHash = r.TipHash()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *chainApi) GetTxBlock(ctx context.Context, req *node.GetTxBlockRequest) (*node.GetTxBlockResponse, error) {
	return c.a.n.GetTxBlock(ctx, req)
}

func peerAddr(ctx context.Context) net.Addr {
	p, ok := peer.FromContext(ctx)
	if !ok {
		return nil
	}
	return p.Addr
}

func unaryHandler[Req any, Resp any](method string, call func(NodeServer, context.Context, *Req) (*Resp, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NodeServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(NodeServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var Node_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*NodeServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetExplorerBlocks",
			Handler:    unaryHandler(methodGetExplorerBlocks, NodeServer.GetExplorerBlocks),
		},
		{
			MethodName: "PostMpnDeposit",
			Handler:    unaryHandler(methodPostMpnDeposit, NodeServer.PostMpnDeposit),
		},
		{
			MethodName: "PostMpnWithdraw",
			Handler:    unaryHandler(methodPostMpnWithdraw, NodeServer.PostMpnWithdraw),
		},
		{
			MethodName: "GetHeight",
			Handler:    unaryHandler(methodGetHeight, NodeServer.GetHeight),
		},
		{
			MethodName: "GetTxBlock",
			Handler:    unaryHandler(methodGetTxBlock, NodeServer.GetTxBlock),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chaind/node",
}
