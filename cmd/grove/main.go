package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootCmdConfig struct {
	verbose bool
	logger  *zap.Logger
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	config := &rootCmdConfig{}
	rootCmd := &cobra.Command{
		Use:   "grove",
		Short: "grove is a tool to serve decision trees and forests",
		Long:  `A tool to load decision trees exported by scikit-learn, inspect them, store them and use them alone or as forests to make predictions`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.logger = newLogger(config.verbose)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			config.logger.Sync()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "log debug information on stderr")
	rootCmd.AddCommand(versionCmd(), featuresCmd(config), treeCmd(config), predictCmd(config), pushCmd(config), serveCmd(config))
	return rootCmd
}
