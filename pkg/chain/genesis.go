package chain

import (
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tcfw/chaind/pkg/tx"
)

// GenesisInfo describes the height 0 block of a chain. Genesis txs carry no
// source account so they consume no nonces.
type GenesisInfo struct {
	ChainID     string       `yaml:"chainId"`
	Timestamp   uint32       `yaml:"timestamp"`
	Validator   string       `yaml:"validator"`
	Token       GenesisToken `yaml:"token"`
	Allocations []Allocation `yaml:"allocations"`
	Stakers     []Staker     `yaml:"stakers,omitempty"`
}

type GenesisToken struct {
	Name   string `yaml:"name"`
	Symbol string `yaml:"symbol"`
	Supply uint64 `yaml:"supply"`
}

type Allocation struct {
	Address string `yaml:"address"`
	Amount  uint64 `yaml:"amount"`
}

type Staker struct {
	VrfPubKey  string `yaml:"vrfPubKey"`
	Commission uint8  `yaml:"commission"`
}

func DefaultGenesis() *GenesisInfo {
	return &GenesisInfo{
		ChainID:   "testnet",
		Timestamp: 0,
		Validator: common.Address{}.Hex(),
		Token: GenesisToken{
			Name:   string(tx.NativeToken),
			Symbol: "ZSH",
			Supply: 2_000_000_000_000_000_000,
		},
	}
}

// LoadGenesis reads a yaml encoded GenesisInfo from path.
func LoadGenesis(path string) (*GenesisInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening genesis file")
	}
	defer f.Close()

	return ReadGenesis(f)
}

func ReadGenesis(r io.Reader) (*GenesisInfo, error) {
	g := &GenesisInfo{}
	if err := yaml.NewDecoder(r).Decode(g); err != nil {
		return nil, errors.Wrap(err, "decoding genesis")
	}

	return g, nil
}

// Write encodes g as yaml.
func (g *GenesisInfo) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(g); err != nil {
		return errors.Wrap(err, "encoding genesis")
	}

	return enc.Close()
}

// Block builds the genesis block. The body mints the native token, funds
// the allocations and registers the initial stakers.
func (g *GenesisInfo) Block() (*Block, error) {
	if g.Validator != "" && !common.IsHexAddress(g.Validator) {
		return nil, errors.Errorf("invalid genesis validator %q", g.Validator)
	}

	body := []*tx.Tx{
		{
			Memo: g.ChainID,
			Fee:  tx.NativeMoney(0),
			Data: &tx.CreateToken{Token: tx.Token{
				Name:   g.Token.Name,
				Symbol: g.Token.Symbol,
				Supply: g.Token.Supply,
			}},
		},
	}

	if len(g.Allocations) != 0 {
		send := &tx.RegularSend{}
		for _, a := range g.Allocations {
			if !common.IsHexAddress(a.Address) {
				return nil, errors.Errorf("invalid allocation address %q", a.Address)
			}
			send.Entries = append(send.Entries, tx.Entry{
				Dst:   common.HexToAddress(a.Address),
				Money: tx.NativeMoney(a.Amount),
			})
		}
		body = append(body, &tx.Tx{Memo: "allocations", Fee: tx.NativeMoney(0), Data: send})
	}

	for _, s := range g.Stakers {
		body = append(body, &tx.Tx{
			Fee: tx.NativeMoney(0),
			Data: &tx.UpdateStaker{
				VrfPubKey:  common.FromHex(s.VrfPubKey),
				Commission: s.Commission,
			},
		})
	}

	return NewBlock(nil, g.Timestamp, common.HexToAddress(g.Validator), body)
}
