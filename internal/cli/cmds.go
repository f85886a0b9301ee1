package cli

func regCommands() {
	//Chain
	chainCmd.AddCommand(chain_rollbackCmd)
	chainCmd.AddCommand(chain_blocksCmd)
	chainCmd.AddCommand(chain_heightCmd)
	chainCmd.AddCommand(chain_txCmd)

	//Root
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(chainCmd)
}
