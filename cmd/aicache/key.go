package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/aicache/cache"
)

func newKeyCmd(load configLoader) *cobra.Command {
	var options string

	cmd := &cobra.Command{
		Use:   "key <kind> <input>",
		Short: "Print the cache key for a kind and raw input",
		Long: "Print the cache key for a kind and raw input.\n\n" +
			"With --options the input is combined with the canonical JSON of the options,\n" +
			"the same signature the meeting commands use.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			keyer, err := cfg.Cache.Keyer()
			if err != nil {
				return err
			}

			input := args[1]
			if cmd.Flags().Changed("options") {
				var opts any
				if err := json.Unmarshal([]byte(options), &opts); err != nil {
					return fmt.Errorf("parse --options: %w", err)
				}
				input = cache.Signature(input, opts)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), keyer.Key(args[0], input))
			return err
		},
	}

	cmd.Flags().StringVar(&options, "options", "", "JSON options folded into the signature")
	return cmd
}
