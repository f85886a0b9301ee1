package node

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tcfw/chaind/pkg/chain"
	"github.com/tcfw/chaind/pkg/mempool"
	"github.com/tcfw/chaind/pkg/mpn"
	"github.com/tcfw/chaind/pkg/tx"
)

// Context is the shared node state. The ledger and mempool are only reached
// through View and Update, which hold shared and exclusive access
// respectively for the duration of the callback.
type Context struct {
	gate    *gate
	ledger  *chain.Ledger
	mempool *mempool.Mempool

	logger  *logrus.Logger
	metrics *nodeMetrics

	maxBlocksFetch uint32
	verifier       mpn.Verifier
	mempoolOpts    []mempool.Option

	clock  func() time.Time
	tsMu   sync.Mutex
	lastTs uint32
}

// New wraps ledger with an empty mempool.
func New(ledger *chain.Ledger, opts ...Option) (*Context, error) {
	c := &Context{
		ledger:         ledger,
		logger:         logrus.StandardLogger(),
		metrics:        defaultMetrics(),
		maxBlocksFetch: DefaultMaxBlocksFetch,
		verifier:       mpn.RejectAll{},
		clock:          time.Now,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	mpOpts := append([]mempool.Option{
		mempool.WithLogger(c.logger),
		mempool.WithValidator(mempool.NewSignatureValidator(c.verifier)),
	}, c.mempoolOpts...)

	mp, err := mempool.New(ledger, mpOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating mempool")
	}

	c.mempool = mp
	c.gate = newGate(c.metrics)
	c.metrics.height.Set(float64(ledger.Height()))

	return c, nil
}

// Reader is shared access to node state. It must not be used after the
// View or Update callback returns.
type Reader struct {
	c *Context
}

func (r *Reader) Height() uint64 {
	return r.c.ledger.Height()
}

func (r *Reader) TipHash() common.Hash {
	return r.c.ledger.TipHash()
}

func (r *Reader) StateRoot() common.Hash {
	return r.c.ledger.StateRoot()
}

// Blocks reads the ledger without a ceiling on count.
func (r *Reader) Blocks(ctx context.Context, since uint64, count uint32) ([]*chain.Block, error) {
	return r.c.ledger.Blocks(ctx, since, count)
}

func (r *Reader) Block(ctx context.Context, height uint64) (*chain.Block, error) {
	return r.c.ledger.Block(ctx, height)
}

func (r *Reader) TxBlock(ctx context.Context, h common.Hash) (*chain.Block, error) {
	return r.c.ledger.TxBlock(ctx, h)
}

func (r *Reader) Nonce(account common.Address) (uint64, error) {
	return r.c.ledger.Nonce(account)
}

func (r *Reader) MpnNonce(account common.Hash) (uint64, error) {
	return r.c.ledger.MpnNonce(account)
}

func (r *Reader) ChainSourced() []*mempool.Entry {
	return r.c.mempool.ChainSourced()
}

func (r *Reader) MpnSourced() []*mempool.Entry {
	return r.c.mempool.MpnSourced()
}

func (r *Reader) PendingLen() int {
	return r.c.mempool.Len()
}

// Writer is exclusive access to node state.
type Writer struct {
	Reader
}

// AppendBlock stores b and drops the mempool entries it included or made
// stale.
func (w *Writer) AppendBlock(ctx context.Context, b *chain.Block) error {
	if err := w.c.ledger.Append(ctx, b); err != nil {
		return err
	}

	n := w.c.mempool.RemoveIncluded(b.Body)
	w.c.metrics.height.Set(float64(b.Header.Height))

	w.c.logger.WithField("height", b.Header.Height).WithField("included", n).Debug("appended block")

	return nil
}

// Rollback removes the tip block and drops mempool entries that no longer
// follow their account's nonce. Transactions from the removed block are not
// returned to the mempool.
//
// An error matching ErrMempoolInvalidation comes with the removed block: the
// chain change stands and only the mempool recheck failed.
func (w *Writer) Rollback(ctx context.Context) (*chain.Block, error) {
	rev, err := w.c.ledger.Rollback(ctx)
	if err != nil {
		return nil, err
	}

	w.c.metrics.rollbacks.Inc()
	w.c.metrics.height.Set(float64(rev.Block.Header.Height - 1))

	n, err := w.c.mempool.InvalidateAfterRollback(rev.Accounts, rev.MpnAccounts)
	if err != nil {
		return rev.Block, errors.Wrap(ErrMempoolInvalidation, err.Error())
	}

	w.c.logger.WithField("height", rev.Block.Header.Height).WithField("invalidated", n).Debug("rolled back block")

	return rev.Block, nil
}

// AddChainSourced stamps t with the local timestamp and admits it.
func (w *Writer) AddChainSourced(ctx context.Context, t *tx.Tx, isLocal bool) error {
	return w.c.mempool.AddChainSourced(ctx, t, isLocal, w.c.LocalTimestamp())
}

func (w *Writer) AddMpnSourced(ctx context.Context, mw *tx.MpnWithdraw, isLocal bool) error {
	return w.c.mempool.AddMpnSourced(ctx, mw, isLocal, w.c.LocalTimestamp())
}

func (w *Writer) EvictExpired(ttl uint32) int {
	return w.c.mempool.EvictExpired(w.c.LocalTimestamp(), ttl)
}

// View runs fn with shared access. Cancelling ctx before access is granted
// returns the context error without running fn.
func (c *Context) View(ctx context.Context, fn func(*Reader) error) error {
	if err := c.gate.rlock(ctx); err != nil {
		return err
	}
	defer c.gate.runlock()

	r := &Reader{c: c}
	defer func() { r.c = nil }()

	return fn(r)
}

// Update runs fn with exclusive access. Callers needing to act on what they
// read must do both inside one Update.
func (c *Context) Update(ctx context.Context, fn func(*Writer) error) error {
	if err := c.gate.lock(ctx); err != nil {
		return err
	}
	defer c.gate.unlock()

	w := &Writer{Reader{c: c}}
	defer func() { w.c = nil }()

	return fn(w)
}

func (c *Context) Height(ctx context.Context) (uint64, error) {
	var h uint64
	err := c.View(ctx, func(r *Reader) error {
		h = r.Height()
		return nil
	})
	return h, err
}

func (c *Context) TipHash(ctx context.Context) (common.Hash, error) {
	var h common.Hash
	err := c.View(ctx, func(r *Reader) error {
		h = r.TipHash()
		return nil
	})
	return h, err
}

func (c *Context) AppendBlock(ctx context.Context, b *chain.Block) error {
	return c.Update(ctx, func(w *Writer) error {
		return w.AppendBlock(ctx, b)
	})
}

// Rollback removes the tip block. It is an administrative operation and not
// served to the network. See Writer.Rollback for the partial failure case.
func (c *Context) Rollback(ctx context.Context) (*chain.Block, error) {
	var b *chain.Block
	err := c.Update(ctx, func(w *Writer) error {
		var err error
		b, err = w.Rollback(ctx)
		return err
	})
	return b, err
}

// SubmitTx admits a chain-sourced tx from addr.
func (c *Context) SubmitTx(ctx context.Context, t *tx.Tx, addr net.Addr) error {
	if t == nil {
		return errors.Wrap(mempool.ErrInvalidTx, "no tx")
	}

	return c.Update(ctx, func(w *Writer) error {
		return w.AddChainSourced(ctx, t, IsLocal(addr))
	})
}

func (c *Context) PostMpnDeposit(ctx context.Context, req *PostMpnDepositRequest, addr net.Addr) (*PostMpnDepositResponse, error) {
	if req.Tx == nil || req.Tx.Type() != tx.TypeMpnDeposit {
		return nil, errors.Wrap(mempool.ErrInvalidTx, "not an mpn deposit")
	}

	if err := c.SubmitTx(ctx, req.Tx, addr); err != nil {
		return nil, err
	}

	return &PostMpnDepositResponse{}, nil
}

func (c *Context) PostMpnWithdraw(ctx context.Context, req *PostMpnWithdrawRequest, addr net.Addr) (*PostMpnWithdrawResponse, error) {
	if req.Tx == nil {
		return nil, errors.Wrap(mempool.ErrInvalidTx, "no withdraw")
	}

	err := c.Update(ctx, func(w *Writer) error {
		return w.AddMpnSourced(ctx, req.Tx, IsLocal(addr))
	})
	if err != nil {
		return nil, err
	}

	return &PostMpnWithdrawResponse{}, nil
}

// EvictExpired drops mempool entries older than ttl seconds.
func (c *Context) EvictExpired(ctx context.Context, ttl uint32) (int, error) {
	var n int
	err := c.Update(ctx, func(w *Writer) error {
		n = w.EvictExpired(ttl)
		return nil
	})
	return n, err
}

// LocalTimestamp is the wall clock in unix seconds. It never goes backwards
// within the process.
func (c *Context) LocalTimestamp() uint32 {
	now := uint32(c.clock().Unix())

	c.tsMu.Lock()
	defer c.tsMu.Unlock()

	if now < c.lastTs {
		return c.lastTs
	}
	c.lastTs = now

	return now
}

// Close waits for in-flight operations and releases the storage handle.
func (c *Context) Close() error {
	return c.Update(context.Background(), func(w *Writer) error {
		return w.c.ledger.Close()
	})
}

// IsLocal reports whether addr is a loopback or unix socket peer. A nil
// address is remote.
func IsLocal(addr net.Addr) bool {
	switch a := addr.(type) {
	case nil:
		return false
	case *net.TCPAddr:
		return a.IP.IsLoopback()
	case *net.UDPAddr:
		return a.IP.IsLoopback()
	case *net.IPAddr:
		return a.IP.IsLoopback()
	case *net.UnixAddr:
		return true
	}

	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	ip := net.ParseIP(host)

	return ip != nil && ip.IsLoopback()
}
