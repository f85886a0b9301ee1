package tx

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// signatureData marshals t without its signature for use as the signed
// message.
func signatureData(t *Tx) ([]byte, error) {
	unsigned := *t
	unsigned.Sig = nil

	return unsigned.Marshal()
}

// Hash identifies t, including its signature.
func (t *Tx) Hash() (common.Hash, error) {
	d, err := t.Marshal()
	if err != nil {
		return common.Hash{}, err
	}

	return crypto.Keccak256Hash(d), nil
}

// SigningHash is the digest the source account signs.
func (t *Tx) SigningHash() (common.Hash, error) {
	d, err := signatureData(t)
	if err != nil {
		return common.Hash{}, err
	}

	return crypto.Keccak256Hash(d), nil
}

// Sign sets Src to the key's address and signs t.
func (t *Tx) Sign(key *ecdsa.PrivateKey) error {
	src := crypto.PubkeyToAddress(key.PublicKey)
	t.Src = &src

	h, err := t.SigningHash()
	if err != nil {
		return err
	}

	sig, err := crypto.Sign(h.Bytes(), key)
	if err != nil {
		return errors.Wrap(err, "signing tx")
	}

	t.Sig = sig

	return nil
}

// Verify checks that Sig was produced by Src.
func (t *Tx) Verify() error {
	if t.Src == nil {
		return ErrMissingSource
	}

	h, err := t.SigningHash()
	if err != nil {
		return err
	}

	pub, err := crypto.SigToPub(h.Bytes(), t.Sig)
	if err != nil {
		return errors.Wrap(ErrBadSignature, err.Error())
	}

	if crypto.PubkeyToAddress(*pub) != *t.Src {
		return ErrBadSignature
	}

	return nil
}

func (w *MpnWithdraw) Hash() (common.Hash, error) {
	d, err := w.Marshal()
	if err != nil {
		return common.Hash{}, err
	}

	return crypto.Keccak256Hash(d), nil
}

// SigningHash is the digest the rollup account authorises.
func (w *MpnWithdraw) SigningHash() (common.Hash, error) {
	unsigned := *w
	unsigned.ZkSig = nil

	d, err := unsigned.Marshal()
	if err != nil {
		return common.Hash{}, err
	}

	return crypto.Keccak256Hash(d), nil
}
