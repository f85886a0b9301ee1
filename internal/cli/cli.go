package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tcfw/chaind/internal/config"
)

var (
	rootCmd = &cobra.Command{
		Use:          "chaind",
		Short:        "chain ledger and mempool node",
		SilenceUsage: true,
	}
)

func Execute() error {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase verbosity")
	viper.BindPFlag(config.Cfg_verbose, rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.PersistentFlags().String("storage-engine", "", "storage engine (pebble, leveldb, memory)")
	viper.BindPFlag(config.Cfg_storage_engine, rootCmd.PersistentFlags().Lookup("storage-engine"))

	rootCmd.PersistentFlags().String("storage-path", "", "storage directory")
	viper.BindPFlag(config.Cfg_storage_path, rootCmd.PersistentFlags().Lookup("storage-path"))

	rootCmd.PersistentFlags().String("daemon-addr", "", "daemon api address")
	viper.BindPFlag(config.Cfg_daemon_addr, rootCmd.PersistentFlags().Lookup("daemon-addr"))

	regCommands()

	return rootCmd.Execute()
}
