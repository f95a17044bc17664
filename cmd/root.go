// Package cmd implements the orderdesk command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petrijr/orderdesk/internal/config"
)

// NewRootCmd returns the orderdesk command tree.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "orderdesk",
		Short: "Order management core for small restaurants",
		Long: `orderdesk runs the order core of a restaurant ordering platform: it prices
orders, hands them to print agents exactly once, notifies customers and purges
fulfilled orders after the retention window.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")

	load := func(cmd *cobra.Command) (*app, error) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		return newApp(cmd.Context(), cfg, cfg.NewLogger())
	}

	root.AddCommand(
		newServeCmd(load),
		newSweepCmd(load),
		newSeedCmd(load),
		newPriceCmd(),
	)
	return root
}

type appLoader func(cmd *cobra.Command) (*app, error)

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
