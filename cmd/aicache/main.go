// Command aicache runs the cached meeting AI service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/aicache/config"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "aicache",
		Short:         "Cached meeting summaries and action items",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (defaults plus AICACHE_* env when empty)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(
		newKeyCmd(load),
		newSummarizeCmd(load),
		newActionItemsCmd(load),
		newServeCmd(load),
	)
	return root
}

type configLoader func() (*config.Config, error)
