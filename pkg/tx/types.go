package tx

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

type Type int8

const (
	TypeRegularSend Type = iota + 1
	TypeCreateToken
	TypeCreateContract
	TypeUpdateStaker
	TypeDelegate
	TypeMpnDeposit
	TypeMpnWithdraw
)

func (t Type) String() string {
	switch t {
	case TypeRegularSend:
		return "RegularSend"
	case TypeCreateToken:
		return "CreateToken"
	case TypeCreateContract:
		return "CreateContract"
	case TypeUpdateStaker:
		return "UpdateStaker"
	case TypeDelegate:
		return "Delegate"
	case TypeMpnDeposit:
		return "MpnDeposit"
	case TypeMpnWithdraw:
		return "MpnWithdraw"
	default:
		return fmt.Sprintf("Type(%d)", int8(t))
	}
}

// Data is the closed set of transaction payloads. Only types in this
// package implement it.
type Data interface {
	Type() Type
	isData()
}

func newData(t Type) (Data, error) {
	switch t {
	case TypeRegularSend:
		return &RegularSend{}, nil
	case TypeCreateToken:
		return &CreateToken{}, nil
	case TypeCreateContract:
		return &CreateContract{}, nil
	case TypeUpdateStaker:
		return &UpdateStaker{}, nil
	case TypeDelegate:
		return &Delegate{}, nil
	case TypeMpnDeposit:
		return &MpnDeposit{}, nil
	case TypeMpnWithdraw:
		return &MpnWithdraw{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownType, "%s", t)
	}
}

type TokenID string

const (
	NativeToken TokenID = "Ziesha"
)

type Money struct {
	Amount  uint64  `msgpack:"a"`
	TokenID TokenID `msgpack:"t"`
}

func NativeMoney(amount uint64) Money {
	return Money{Amount: amount, TokenID: NativeToken}
}

type Entry struct {
	Dst   common.Address `msgpack:"d"`
	Money Money          `msgpack:"m"`
}

type RegularSend struct {
	Entries []Entry `msgpack:"e"`
}

type Token struct {
	Name   string          `msgpack:"n"`
	Symbol string          `msgpack:"s"`
	Supply uint64          `msgpack:"u"`
	Minter *common.Address `msgpack:"m,omitempty"`
}

type CreateToken struct {
	Token Token `msgpack:"t"`
}

type Contract struct {
	InitialState      common.Hash `msgpack:"s"`
	StateSize         uint32      `msgpack:"z"`
	DepositFunctions  uint32      `msgpack:"d"`
	WithdrawFunctions uint32      `msgpack:"w"`
	Functions         uint32      `msgpack:"f"`
}

type CreateContract struct {
	Contract Contract `msgpack:"c"`
}

type UpdateStaker struct {
	VrfPubKey  []byte `msgpack:"v"`
	Commission uint8  `msgpack:"c"`
}

type Delegate struct {
	To      common.Address `msgpack:"t"`
	Amount  uint64         `msgpack:"a"`
	Reverse bool           `msgpack:"r"`
}

// MpnDeposit moves funds from a chain account into a rollup account. It is
// chain-sourced: the envelope carries the depositor's signature and nonce.
type MpnDeposit struct {
	ContractID       common.Hash `msgpack:"c"`
	DepositCircuitID uint32      `msgpack:"i"`
	ZkAddress        common.Hash `msgpack:"z"`
	ZkTokenIndex     uint64      `msgpack:"k"`
	Payment          Money       `msgpack:"p"`
}

func (*RegularSend) Type() Type    { return TypeRegularSend }
func (*CreateToken) Type() Type    { return TypeCreateToken }
func (*CreateContract) Type() Type { return TypeCreateContract }
func (*UpdateStaker) Type() Type   { return TypeUpdateStaker }
func (*Delegate) Type() Type       { return TypeDelegate }
func (*MpnDeposit) Type() Type     { return TypeMpnDeposit }

func (*RegularSend) isData()    {}
func (*CreateToken) isData()    {}
func (*CreateContract) isData() {}
func (*UpdateStaker) isData()   {}
func (*Delegate) isData()       {}
func (*MpnDeposit) isData()     {}
