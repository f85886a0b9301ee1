package mempool

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/tcfw/chaind/pkg/tx"
)

type Origin uint8

const (
	OriginRemote Origin = iota
	OriginLocal
)

func (o Origin) String() string {
	if o == OriginLocal {
		return "local"
	}
	return "remote"
}

func originOf(isLocal bool) Origin {
	if isLocal {
		return OriginLocal
	}
	return OriginRemote
}

// Entry is a pending transaction. Rollup withdrawals are held in their block
// body form.
type Entry struct {
	Tx         *tx.Tx
	Origin     Origin
	ReceivedAt uint32
}

// NonceSource reports the last nonce consumed by stored blocks.
type NonceSource interface {
	Nonce(common.Address) (uint64, error)
	MpnNonce(common.Hash) (uint64, error)
}

type nonceMap map[uint64]*Entry

// Mempool holds admitted transactions in two partitions: chain-sourced keyed
// by (account, nonce) and rollup-sourced keyed by (zk address, zk nonce).
type Mempool struct {
	mu sync.Mutex

	nonces    NonceSource
	validator Validator
	logger    *logrus.Logger
	metrics   *poolMetrics

	minFee      uint64
	maxPending  int
	remoteRate  rate.Limit
	remoteBurst int

	chain    map[common.Address]nonceMap
	mpn      map[common.Hash]nonceMap
	limiters map[string]*limiter
}

func New(nonces NonceSource, opts ...Option) (*Mempool, error) {
	m := &Mempool{
		nonces:   nonces,
		logger:   logrus.StandardLogger(),
		metrics:  defaultMetrics(),
		chain:    make(map[common.Address]nonceMap),
		mpn:      make(map[common.Hash]nonceMap),
		limiters: make(map[string]*limiter),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	if m.validator == nil {
		return nil, errors.New("no validator")
	}

	return m, nil
}

// AddChainSourced admits a chain account signed tx. Local submissions skip
// the remote admission policy and replace any pending tx with the same
// nonce.
func (m *Mempool) AddChainSourced(ctx context.Context, t *tx.Tx, isLocal bool, now uint32) (err error) {
	defer func() { m.observeReject(partitionChain, err) }()

	if t.IsMpnSourced() {
		return ErrWrongPartition
	}

	account, ok := t.Account()
	if !ok {
		return errors.Wrap(ErrInvalidTx, tx.ErrMissingSource.Error())
	}

	if err := m.validator.IsTxValid(ctx, t); err != nil {
		if errors.Is(err, ErrWrongPartition) {
			return err
		}
		return errors.Wrap(ErrInvalidTx, err.Error())
	}

	consumed, err := m.nonces.Nonce(account)
	if err != nil {
		return errors.Wrap(err, "reading account nonce")
	}
	if t.Nonce <= consumed {
		return ErrNonceAlreadyUsed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pending := m.chain[account]
	_, exists := pending[t.Nonce]

	if !isLocal {
		if exists {
			return ErrDuplicatePending
		}
		if err := m.admitRemote(m.chainLen(), t.Fee, account.Hex(), now); err != nil {
			return err
		}
	}

	if pending == nil {
		pending = make(nonceMap)
		m.chain[account] = pending
	}
	if exists {
		m.metrics.removed.WithLabelValues(partitionChain, reasonReplaced).Inc()
	}
	pending[t.Nonce] = &Entry{Tx: t, Origin: originOf(isLocal), ReceivedAt: now}

	m.metrics.admitted.WithLabelValues(partitionChain, originOf(isLocal).String()).Inc()
	m.updateGauges()

	m.logger.WithField("account", account.Hex()).WithField("nonce", t.Nonce).WithField("local", isLocal).Debug("admitted tx")

	return nil
}

// AddMpnSourced admits a rollup withdrawal under the same policy as
// AddChainSourced, checked against rollup nonces.
func (m *Mempool) AddMpnSourced(ctx context.Context, w *tx.MpnWithdraw, isLocal bool, now uint32) (err error) {
	defer func() { m.observeReject(partitionMpn, err) }()

	if err := m.validator.IsMpnWithdrawValid(ctx, w); err != nil {
		return errors.Wrap(ErrInvalidTx, err.Error())
	}

	consumed, err := m.nonces.MpnNonce(w.ZkAddress)
	if err != nil {
		return errors.Wrap(err, "reading rollup nonce")
	}
	if w.ZkNonce <= consumed {
		return ErrNonceAlreadyUsed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pending := m.mpn[w.ZkAddress]
	_, exists := pending[w.ZkNonce]

	if !isLocal {
		if exists {
			return ErrDuplicatePending
		}
		if err := m.admitRemote(m.mpnLen(), w.Fee, w.ZkAddress.Hex(), now); err != nil {
			return err
		}
	}

	if pending == nil {
		pending = make(nonceMap)
		m.mpn[w.ZkAddress] = pending
	}
	if exists {
		m.metrics.removed.WithLabelValues(partitionMpn, reasonReplaced).Inc()
	}
	pending[w.ZkNonce] = &Entry{Tx: w.Wrap(), Origin: originOf(isLocal), ReceivedAt: now}

	m.metrics.admitted.WithLabelValues(partitionMpn, originOf(isLocal).String()).Inc()
	m.updateGauges()

	m.logger.WithField("zkAddress", w.ZkAddress.Hex()).WithField("nonce", w.ZkNonce).WithField("local", isLocal).Debug("admitted withdraw")

	return nil
}

// admitRemote applies the fee floor, partition cap and per-account rate to
// a remote submission. The rate token is only spent when the other checks
// pass.
func (m *Mempool) admitRemote(partitionLen int, fee tx.Money, key string, now uint32) error {
	if fee.Amount < m.minFee {
		return errors.Wrapf(ErrAdmissionThrottled, "fee %d below floor %d", fee.Amount, m.minFee)
	}

	if m.maxPending > 0 && partitionLen >= m.maxPending {
		return errors.Wrap(ErrAdmissionThrottled, "pool full")
	}

	if m.remoteRate > 0 && !m.limiterFor(key).allow(now) {
		return errors.Wrap(ErrAdmissionThrottled, "rate limited")
	}

	return nil
}

func (m *Mempool) observeReject(partition string, err error) {
	if err == nil {
		return
	}
	m.metrics.rejected.WithLabelValues(partition, rejectReason(err)).Inc()
}

// EvictExpired drops entries received more than ttl seconds before now.
func (m *Mempool) EvictExpired(now, ttl uint32) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	expired := func(e *Entry) bool {
		return uint64(e.ReceivedAt)+uint64(ttl) < uint64(now)
	}

	n := 0
	for account, pending := range m.chain {
		c := pending.removeIf(expired)
		m.metrics.removed.WithLabelValues(partitionChain, reasonExpired).Add(float64(c))
		n += c
		if len(pending) == 0 {
			delete(m.chain, account)
		}
	}
	for account, pending := range m.mpn {
		c := pending.removeIf(expired)
		m.metrics.removed.WithLabelValues(partitionMpn, reasonExpired).Add(float64(c))
		n += c
		if len(pending) == 0 {
			delete(m.mpn, account)
		}
	}

	m.pruneLimiters(now, ttl)
	m.updateGauges()

	if n > 0 {
		m.logger.WithField("count", n).Debug("evicted expired entries")
	}

	return n
}

// InvalidateAfterRollback drops, for each given account, every pending entry
// outside the contiguous run of nonces starting at the next expected nonce.
// Dropped entries are not restored if they later become valid again.
func (m *Mempool) InvalidateAfterRollback(accounts []common.Address, zkAccounts []common.Hash) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0

	for _, account := range accounts {
		pending, ok := m.chain[account]
		if !ok {
			continue
		}
		consumed, err := m.nonces.Nonce(account)
		if err != nil {
			return n, errors.Wrap(err, "reading account nonce")
		}
		c := pending.keepRunFrom(consumed + 1)
		m.metrics.removed.WithLabelValues(partitionChain, reasonInvalidated).Add(float64(c))
		n += c
		if len(pending) == 0 {
			delete(m.chain, account)
		}
	}

	for _, account := range zkAccounts {
		pending, ok := m.mpn[account]
		if !ok {
			continue
		}
		consumed, err := m.nonces.MpnNonce(account)
		if err != nil {
			return n, errors.Wrap(err, "reading rollup nonce")
		}
		c := pending.keepRunFrom(consumed + 1)
		m.metrics.removed.WithLabelValues(partitionMpn, reasonInvalidated).Add(float64(c))
		n += c
		if len(pending) == 0 {
			delete(m.mpn, account)
		}
	}

	m.updateGauges()

	return n, nil
}

// RemoveIncluded drops the entries a newly stored block included, along with
// any other entry whose nonce the block consumed. It returns the number of
// entries included.
func (m *Mempool) RemoveIncluded(body []*tx.Tx) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	chainMax := map[common.Address]uint64{}
	mpnMax := map[common.Hash]uint64{}

	included := 0

	for _, t := range body {
		if account, ok := t.Account(); ok {
			if pending, ok := m.chain[account]; ok && pending.removeSame(t) {
				included++
				m.metrics.removed.WithLabelValues(partitionChain, reasonIncluded).Inc()
			}
			if t.Nonce > chainMax[account] {
				chainMax[account] = t.Nonce
			}
		}
		if w, ok := t.Withdraw(); ok {
			if pending, ok := m.mpn[w.ZkAddress]; ok && pending.removeSame(t) {
				included++
				m.metrics.removed.WithLabelValues(partitionMpn, reasonIncluded).Inc()
			}
			if w.ZkNonce > mpnMax[w.ZkAddress] {
				mpnMax[w.ZkAddress] = w.ZkNonce
			}
		}
	}

	for account, top := range chainMax {
		pending, ok := m.chain[account]
		if !ok {
			continue
		}
		c := pending.removeIf(func(e *Entry) bool { return entryNonce(e) <= top })
		m.metrics.removed.WithLabelValues(partitionChain, reasonInvalidated).Add(float64(c))
		if len(pending) == 0 {
			delete(m.chain, account)
		}
	}
	for account, top := range mpnMax {
		pending, ok := m.mpn[account]
		if !ok {
			continue
		}
		c := pending.removeIf(func(e *Entry) bool { return entryNonce(e) <= top })
		m.metrics.removed.WithLabelValues(partitionMpn, reasonInvalidated).Add(float64(c))
		if len(pending) == 0 {
			delete(m.mpn, account)
		}
	}

	m.updateGauges()

	return included
}

// ChainSourced returns the pending chain-sourced entries ordered by account
// then nonce.
func (m *Mempool) ChainSourced() []*Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := make([]common.Address, 0, len(m.chain))
	for a := range m.chain {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return bytes.Compare(accounts[i][:], accounts[j][:]) < 0
	})

	entries := make([]*Entry, 0, m.chainLen())
	for _, a := range accounts {
		entries = append(entries, m.chain[a].sorted()...)
	}

	return entries
}

// MpnSourced returns the pending rollup withdrawals ordered by zk address
// then nonce.
func (m *Mempool) MpnSourced() []*Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := make([]common.Hash, 0, len(m.mpn))
	for a := range m.mpn {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return bytes.Compare(accounts[i][:], accounts[j][:]) < 0
	})

	entries := make([]*Entry, 0, m.mpnLen())
	for _, a := range accounts {
		entries = append(entries, m.mpn[a].sorted()...)
	}

	return entries
}

func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.chainLen() + m.mpnLen()
}

func (m *Mempool) chainLen() int {
	n := 0
	for _, p := range m.chain {
		n += len(p)
	}
	return n
}

func (m *Mempool) mpnLen() int {
	n := 0
	for _, p := range m.mpn {
		n += len(p)
	}
	return n
}

func (m *Mempool) updateGauges() {
	m.metrics.pending.WithLabelValues(partitionChain).Set(float64(m.chainLen()))
	m.metrics.pending.WithLabelValues(partitionMpn).Set(float64(m.mpnLen()))
}

func (p nonceMap) removeIf(fn func(*Entry) bool) int {
	n := 0
	for nonce, e := range p {
		if fn(e) {
			delete(p, nonce)
			n++
		}
	}
	return n
}

// keepRunFrom removes every entry outside the run next, next+1, ... and
// returns how many were removed.
func (p nonceMap) keepRunFrom(next uint64) int {
	end := next
	for {
		if _, ok := p[end]; !ok {
			break
		}
		end++
	}

	return p.removeIf(func(e *Entry) bool {
		n := entryNonce(e)
		return n < next || n >= end
	})
}

// removeSame removes the entry at t's nonce if it holds the same tx.
func (p nonceMap) removeSame(t *tx.Tx) bool {
	nonce := t.Nonce
	if w, ok := t.Withdraw(); ok {
		nonce = w.ZkNonce
	}

	e, ok := p[nonce]
	if !ok {
		return false
	}

	eh, err := e.Tx.Hash()
	if err != nil {
		return false
	}
	th, err := t.Hash()
	if err != nil || eh != th {
		return false
	}

	delete(p, nonce)
	return true
}

func (p nonceMap) sorted() []*Entry {
	nonces := make([]uint64, 0, len(p))
	for n := range p {
		nonces = append(nonces, n)
	}
	sort.Slice(nonces, func(i, j int) bool { return nonces[i] < nonces[j] })

	entries := make([]*Entry, 0, len(p))
	for _, n := range nonces {
		entries = append(entries, p[n])
	}
	return entries
}

func entryNonce(e *Entry) uint64 {
	if w, ok := e.Tx.Withdraw(); ok {
		return w.ZkNonce
	}
	return e.Tx.Nonce
}
