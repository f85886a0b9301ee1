package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/tcfw/chaind/internal/utils/logging"
	"github.com/tcfw/chaind/pkg/node"
)

type APIHandler interface {
	Setup(*Api) error
	Desc() *grpc.ServiceDesc
}

var (
	reg = []APIHandler{}
)

type BaseHandler struct {
	a *Api
}

func (b *BaseHandler) Setup(a *Api) error {
	b.a = a
	return nil
}

type Api struct {
	n *node.Context
	g *grpc.Server
	m *http.Server
}

func NewAPI(n *node.Context) (*Api, error) {
	a := &Api{
		n: n,
		g: newGRPCServer(),
	}

	for _, s := range reg {
		a.g.RegisterService(s.Desc(), s)
		if err := s.Setup(a); err != nil {
			return nil, errors.Wrap(err, "registering service")
		}
	}

	return a, nil
}

func (a *Api) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "listening for api")
	}

	return a.Serve(lis)
}

func (a *Api) Serve(lis net.Listener) error {
	logging.Entry().WithField("addr", lis.Addr().String()).Info("serving api")

	return a.g.Serve(lis)
}

// ListenAndServeMetrics serves the prometheus registry on /metrics.
func (a *Api) ListenAndServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	a.m = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logging.Entry().WithField("addr", addr).Info("serving metrics")

	err := a.m.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *Api) Shutdown(ctx context.Context) error {
	a.g.GracefulStop()

	if a.m != nil {
		return a.m.Shutdown(ctx)
	}

	return nil
}
