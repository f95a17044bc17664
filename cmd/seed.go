package cmd

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/petrijr/orderdesk/internal/factories"
	"github.com/petrijr/orderdesk/pkg/api"
)

func newSeedCmd(load appLoader) *cobra.Command {
	var (
		storeID string
		count   int
		printed int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with demo store settings and orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("--orders must be positive")
			}
			if printed < 0 || printed > 100 {
				return fmt.Errorf("--printed must be a percentage between 0 and 100")
			}

			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if err := a.svc.SaveStoreSettings(ctx, factories.NewStoreSettings(storeID)); err != nil {
				return err
			}

			f := factories.NewOrderFactory(factories.NewMenu())
			bar := progressbar.NewOptions(count,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("seeding orders"),
				progressbar.OptionShowCount(),
			)

			var created, completed int
			for i := 0; i < count; i++ {
				order, err := a.svc.CreateOrder(ctx, f.NewOrder(storeID))
				if err != nil {
					return fmt.Errorf("order %d: %w", i+1, err)
				}
				created++

				// The first printed percent of orders goes through the print path.
				if (i*100)/count < printed {
					if outcome, err := a.svc.ClaimOrder(ctx, order.ID); err != nil {
						return err
					} else if outcome == api.ClaimWon {
						if _, err := a.svc.MarkPrinted(ctx, order.ID); err != nil {
							return err
						}
						completed++
					}
				}
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			fmt.Fprintf(cmd.OutOrStdout(), "\nstore %s: %d orders created, %d printed\n", storeID, created, completed)
			return nil
		},
	}

	cmd.Flags().StringVar(&storeID, "store", "demo-store", "store id to seed")
	cmd.Flags().IntVar(&count, "orders", 50, "number of orders to create")
	cmd.Flags().IntVar(&printed, "printed", 50, "percentage of orders to mark printed")
	return cmd
}
