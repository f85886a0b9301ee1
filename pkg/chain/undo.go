package chain

import (
	"github.com/ethereum/go-ethereum/common"
)

// undoRecord holds what a block overwrote so that removing it is a direct
// inverse rather than a replay from genesis.
type undoRecord struct {
	PrevStateRoot common.Hash    `msgpack:"r"`
	Nonces        []nonceUndo    `msgpack:"n"`
	MpnNonces     []mpnNonceUndo `msgpack:"m"`
}

type nonceUndo struct {
	Account common.Address `msgpack:"a"`
	Prev    uint64         `msgpack:"p"`
	Existed bool           `msgpack:"e"`
}

type mpnNonceUndo struct {
	Account common.Hash `msgpack:"a"`
	Prev    uint64      `msgpack:"p"`
	Existed bool        `msgpack:"e"`
}

// Accounts lists the chain accounts whose nonces the block changed.
func (u *undoRecord) Accounts() []common.Address {
	a := make([]common.Address, 0, len(u.Nonces))
	for _, n := range u.Nonces {
		a = append(a, n.Account)
	}
	return a
}

func (u *undoRecord) MpnAccounts() []common.Hash {
	a := make([]common.Hash, 0, len(u.MpnNonces))
	for _, n := range u.MpnNonces {
		a = append(a, n.Account)
	}
	return a
}
