package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/petrijr/orderdesk/pkg/api"
)

// newSweepCmd runs one sweep and exits, for deployments where an external
// scheduler owns the timing.
func newSweepCmd(load appLoader) *cobra.Command {
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Run a single sweep",
	}

	sweep.AddCommand(&cobra.Command{
		Use:   "recover",
		Short: "Move orders stuck in NEW past the threshold to PRINTING",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.worker.RunRecovery(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recovered %d orders created at or before %s\n", res.Recovered, res.Cutoff.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	})

	sweep.AddCommand(&cobra.Command{
		Use:   "notify",
		Short: "Send pending customer confirmations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.worker.RunNotify(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scanned %d, sent %d, failed %d\n", res.Scanned, res.Sent, res.Failed)

			outcomes := make([]string, 0, len(res.Skipped))
			for k := range res.Skipped {
				outcomes = append(outcomes, string(k))
			}
			sort.Strings(outcomes)
			for _, k := range outcomes {
				fmt.Fprintf(out, "skipped %s: %d\n", k, res.Skipped[api.NotifyOutcome(k)])
			}
			return nil
		},
	})

	sweep.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete printed orders older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.worker.RunPurge(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d orders and %d line items\n", res.Orders, res.LineItems)
			return nil
		},
	})

	return sweep
}
