package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tcfw/chaind/internal/api"
	"github.com/tcfw/chaind/internal/config"
	"github.com/tcfw/chaind/internal/storage"
	"github.com/tcfw/chaind/internal/utils/logging"
	"github.com/tcfw/chaind/pkg/chain"
	"github.com/tcfw/chaind/pkg/mempool"
	"github.com/tcfw/chaind/pkg/mpn"
	"github.com/tcfw/chaind/pkg/node"
)

var (
	daemonCmd = &cobra.Command{
		Use:   "daemon",
		RunE:  runDaemon,
		Short: "run the daemon",
	}
)

func init() {
	daemonCmd.Flags().String("listen", "", "api listen address")
	viper.BindPFlag(config.Cfg_api_listen, daemonCmd.Flags().Lookup("listen"))

	daemonCmd.Flags().String("metrics", "", "metrics listen address, empty to disable")
	viper.BindPFlag(config.Cfg_api_metricsAddr, daemonCmd.Flags().Lookup("metrics"))
}

// openLedger opens the configured store and loads the chain, applying
// genesis to an empty store.
func openLedger(ctx context.Context, cfg *config.Config) (*chain.Ledger, error) {
	kv, err := storage.Open(cfg.Storage())
	if err != nil {
		return nil, errors.Wrap(err, "opening storage")
	}

	genesis, err := cfg.Chain().Genesis.Block()
	if err != nil {
		kv.Close()
		return nil, errors.Wrap(err, "building genesis block")
	}

	l, err := chain.Open(ctx, kv, genesis, chain.WithLogger(logging.Logger()))
	if err != nil {
		kv.Close()
		return nil, errors.Wrap(err, "opening ledger")
	}

	return l, nil
}

func newNode(cfg *config.Config, l *chain.Ledger) (*node.Context, error) {
	var verifier mpn.Verifier = mpn.RejectAll{}
	if cfg.Node().MpnVerifier == config.MpnVerifierAccept {
		logging.Entry().Warn("accepting all rollup withdrawals")
		verifier = mpn.AcceptAll{}
	}

	mpCfg := cfg.Mempool()

	return node.New(l,
		node.WithLogger(logging.Logger()),
		node.WithMaxBlocksFetch(cfg.Node().MaxBlocksFetch),
		node.WithVerifier(verifier),
		node.WithMempoolOptions(
			mempool.WithMinFee(mpCfg.MinFee),
			mempool.WithMaxPending(mpCfg.MaxPending),
			mempool.WithRemoteRate(mpCfg.RemoteRate, mpCfg.RemoteBurst),
		),
	)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	l, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}

	n, err := newNode(cfg, l)
	if err != nil {
		l.Close()
		return errors.Wrap(err, "initing node")
	}
	defer func() {
		if err := n.Close(); err != nil {
			logging.WithError(err).Error("closing node")
		}
	}()

	logging.Entry().
		WithField("height", l.Height()).
		WithField("tip", l.TipHash().Hex()).
		Info("chain loaded")

	a, err := api.NewAPI(n)
	if err != nil {
		return err
	}
	defer a.Shutdown(context.Background())

	errCh := make(chan error, 2)

	go func() {
		if err := a.ListenAndServe(cfg.API().Listen); err != nil {
			errCh <- err
		}
	}()

	if addr := cfg.API().MetricsAddr; addr != "" {
		go func() {
			if err := a.ListenAndServeMetrics(addr); err != nil {
				errCh <- errors.Wrap(err, "serving metrics")
			}
		}()
	}

	go evictLoop(ctx, n, cfg.Mempool())

	select {
	case err := <-errCh:
		return err
	case <-waitExit(ctx):
		logging.Entry().Warn("Shutting down")
		return nil
	}
}

func evictLoop(ctx context.Context, n *node.Context, cfg *config.Mempool) {
	t := time.NewTicker(cfg.EvictInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c, err := n.EvictExpired(ctx, cfg.TTLSeconds())
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logging.WithError(err).Error("evicting expired txs")
				}
				continue
			}
			if c > 0 {
				logging.Entry().WithField("count", c).Info("evicted expired txs")
			}
		}
	}
}

func waitExit(ctx context.Context) <-chan os.Signal {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	return sigs
}
