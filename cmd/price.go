package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/petrijr/orderdesk/internal/message"
	"github.com/petrijr/orderdesk/pkg/api"
	"github.com/petrijr/orderdesk/pkg/pricing"
)

// priceRequest is the JSON document read by the price command:
//
//	{"product": {...}, "groups": [...], "quantity": 2}
type priceRequest struct {
	Product  api.Product       `json:"product"`
	Groups   []api.OptionGroup `json:"groups"`
	Quantity int               `json:"quantity"`
}

func newPriceCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price one line item read as JSON from --file or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			var req priceRequest
			if err := json.NewDecoder(r).Decode(&req); err != nil {
				return fmt.Errorf("decode price request: %w", err)
			}
			if req.Quantity <= 0 {
				req.Quantity = 1
			}
			if !req.Product.PricingRule.Valid() {
				return fmt.Errorf("unknown pricing rule %q", req.Product.PricingRule)
			}

			res, err := pricing.Price(req.Product, req.Groups)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unit %s\ntotal %s\n",
				message.FormatMoney(res.UnitPriceCents),
				message.FormatMoney(res.UnitPriceCents*int64(req.Quantity)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "request file (default stdin)")
	return cmd
}
