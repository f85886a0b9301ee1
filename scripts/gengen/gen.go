package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/tcfw/chaind/pkg/chain"
)

var (
	chainID string
	allocs  int
	amount  uint64
)

var rootCmd = &cobra.Command{
	Use:   "gengen",
	Short: "write a genesis file with freshly generated keys to stdout",
	RunE:  run,
}

func main() {
	rootCmd.Flags().StringVar(&chainID, "chain", "testnet", "chain id")
	rootCmd.Flags().IntVar(&allocs, "allocations", 1, "number of funded accounts to generate")
	rootCmd.Flags().Uint64Var(&amount, "amount", 1_000_000, "amount given to each generated account")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	config := chain.DefaultGenesis()
	config.ChainID = chainID
	config.Timestamp = uint32(time.Now().Unix())

	validator, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	config.Validator = crypto.PubkeyToAddress(validator.PublicKey).Hex()

	for i := 0; i < allocs; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			return err
		}

		config.Allocations = append(config.Allocations, chain.Allocation{
			Address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
			Amount:  amount,
		})

		fmt.Fprintf(os.Stderr, "account %d key: %x\n", i, crypto.FromECDSA(key))
	}

	block, err := config.Block()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "genesis hash: %s\n", block.Hash().Hex())

	return config.Write(os.Stdout)
}
