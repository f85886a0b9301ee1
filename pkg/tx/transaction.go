package tx

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Tx is a chain-sourced transaction envelope. Data holds the kind specific
// payload; a Tx carrying an MpnWithdraw is the form in which rollup-sourced
// withdrawals are included in blocks.
type Tx struct {
	Memo  string
	Src   *common.Address
	Nonce uint64
	Fee   Money
	Data  Data
	Sig   []byte
}

type wireTx struct {
	Memo  string             `msgpack:"m"`
	Src   *common.Address    `msgpack:"s,omitempty"`
	Nonce uint64             `msgpack:"n"`
	Fee   Money              `msgpack:"f"`
	Type  Type               `msgpack:"T"`
	Data  msgpack.RawMessage `msgpack:"d"`
	Sig   []byte             `msgpack:"g,omitempty"`
}

var (
	_ msgpack.CustomEncoder = (*Tx)(nil)
	_ msgpack.CustomDecoder = (*Tx)(nil)
)

func (t *Tx) EncodeMsgpack(enc *msgpack.Encoder) error {
	if t.Data == nil {
		return ErrMissingData
	}

	d, err := msgpack.Marshal(t.Data)
	if err != nil {
		return errors.Wrap(err, "marshaling tx data")
	}

	return enc.Encode(&wireTx{
		Memo:  t.Memo,
		Src:   t.Src,
		Nonce: t.Nonce,
		Fee:   t.Fee,
		Type:  t.Data.Type(),
		Data:  d,
		Sig:   t.Sig,
	})
}

func (t *Tx) DecodeMsgpack(dec *msgpack.Decoder) error {
	w := &wireTx{}
	if err := dec.Decode(w); err != nil {
		return err
	}

	data, err := newData(w.Type)
	if err != nil {
		return err
	}

	if err := msgpack.Unmarshal(w.Data, data); err != nil {
		return errors.Wrapf(err, "unmarshaling %s data", w.Type)
	}

	t.Memo = w.Memo
	t.Src = w.Src
	t.Nonce = w.Nonce
	t.Fee = w.Fee
	t.Data = data
	t.Sig = w.Sig

	return nil
}

func (t *Tx) Marshal() ([]byte, error) {
	b, err := msgpack.Marshal(t)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling tx")
	}

	return b, nil
}

func (t *Tx) Unmarshal(b []byte) error {
	return msgpack.Unmarshal(b, t)
}

// Type returns the kind of the payload, or 0 when there is none.
func (t *Tx) Type() Type {
	if t.Data == nil {
		return 0
	}
	return t.Data.Type()
}

// IsMpnSourced reports whether t wraps a rollup withdrawal rather than a
// chain account action.
func (t *Tx) IsMpnSourced() bool {
	return t.Type() == TypeMpnWithdraw
}

// Withdraw returns the wrapped rollup withdrawal, if any.
func (t *Tx) Withdraw() (*MpnWithdraw, bool) {
	w, ok := t.Data.(*MpnWithdraw)
	return w, ok
}

// Account returns the signing account and true when the tx consumes a
// chain nonce.
func (t *Tx) Account() (common.Address, bool) {
	if t.Src == nil || t.IsMpnSourced() {
		return common.Address{}, false
	}
	return *t.Src, true
}

// MpnWithdraw is a rollup-sourced request to move value from a rollup
// account out to a chain address. It is authorised by ZkSig, which only the
// rollup verifier can check.
type MpnWithdraw struct {
	Memo      string         `msgpack:"m"`
	ZkAddress common.Hash    `msgpack:"z"`
	ZkNonce   uint64         `msgpack:"n"`
	Dst       common.Address `msgpack:"d"`
	Payment   Money          `msgpack:"p"`
	Fee       Money          `msgpack:"f"`
	ZkSig     []byte         `msgpack:"s,omitempty"`
}

func (*MpnWithdraw) Type() Type { return TypeMpnWithdraw }
func (*MpnWithdraw) isData()    {}

func (w *MpnWithdraw) Marshal() ([]byte, error) {
	b, err := msgpack.Marshal(w)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling withdraw")
	}

	return b, nil
}

// Wrap returns the block body form of w.
func (w *MpnWithdraw) Wrap() *Tx {
	return &Tx{Memo: w.Memo, Fee: w.Fee, Data: w}
}
