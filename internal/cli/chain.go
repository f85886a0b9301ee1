package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tcfw/chaind/internal/api"
	"github.com/tcfw/chaind/internal/config"
	"github.com/tcfw/chaind/internal/utils/logging"
)

var (
	chainCmd = &cobra.Command{
		Use:   "chain",
		Short: "Chain commands",
	}

	chain_rollbackCmd = &cobra.Command{
		Use:   "rollback",
		Short: "remove the tip block from the local store; the daemon must be stopped",
		RunE:  runChainRollback,
	}

	chain_blocksCmd = &cobra.Command{
		Use:   "blocks",
		Short: "list blocks from the daemon",
		RunE:  runChainBlocks,
	}

	chain_txCmd = &cobra.Command{
		Use:   "tx <hash>",
		Short: "print the block that included a tx",
		Args:  cobra.ExactArgs(1),
		RunE:  runChainTx,
	}

	chain_heightCmd = &cobra.Command{
		Use:   "height",
		Short: "print the chain height",
		RunE:  runChainHeight,
	}
)

func init() {
	chain_rollbackCmd.Flags().Uint64P("count", "n", 1, "number of blocks to remove")

	chain_blocksCmd.Flags().Uint64("since", 0, "first height")
	chain_blocksCmd.Flags().Uint32("count", 16, "number of blocks")
}

func runChainRollback(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	count, _ := cmd.Flags().GetUint64("count")

	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	l, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	for i := uint64(0); i < count; i++ {
		rev, err := l.Rollback(ctx)
		if err != nil {
			return errors.Wrap(err, "rolling back")
		}

		logging.Entry().
			WithField("height", rev.Block.Header.Height).
			WithField("hash", rev.Block.Hash().Hex()).
			Info("removed block")
	}

	fmt.Printf("height %d tip %s\n", l.Height(), l.TipHash().Hex())

	return nil
}

func runChainBlocks(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	since, _ := cmd.Flags().GetUint64("since")
	count, _ := cmd.Flags().GetUint32("count")

	c, err := api.NewClient()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.WaitReady(ctx); err != nil {
		return err
	}

	resp, err := c.GetExplorerBlocks(ctx, since, count)
	if err != nil {
		return errors.Wrap(err, "fetching blocks")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(resp.Blocks)
}

func runChainHeight(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := api.NewClient()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.WaitReady(ctx); err != nil {
		return err
	}

	resp, err := c.GetHeight(ctx)
	if err != nil {
		return errors.Wrap(err, "fetching height")
	}

	fmt.Printf("height %d tip %s\n", resp.Height, resp.TipHash.Hex())

	return nil
}

func runChainTx(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if len(args[0]) != 2*common.HashLength+2 {
		return errors.Errorf("invalid tx hash %q", args[0])
	}
	h := common.HexToHash(args[0])

	c, err := api.NewClient()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.WaitReady(ctx); err != nil {
		return err
	}

	b, err := c.GetTxBlock(ctx, h)
	if err != nil {
		return errors.Wrap(err, "fetching tx block")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(b)
}
