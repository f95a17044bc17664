package orderdesk_test

import (
	"context"
	"fmt"
	"log"

	"github.com/petrijr/orderdesk"
	"github.com/petrijr/orderdesk/pkg/api"
)

// ExamplePriceLine prices a half-and-half pizza with a stuffed crust.
func ExamplePriceLine() {
	pizza := orderdesk.Product{ID: "pizza-g", Name: "Pizza Grande", PricingRule: api.PricingHalfSum}
	groups := []orderdesk.OptionGroup{
		{Name: "Sabores", Role: api.RoleFlavor, Items: []orderdesk.OptionItem{
			{Name: "Calabresa", PriceDeltaCents: 4200},
			{Name: "Quatro Queijos", PriceDeltaCents: 5001},
		}},
		{Name: "Borda", Role: api.RoleAddon, Items: []orderdesk.OptionItem{
			{Name: "Catupiry", PriceDeltaCents: 900},
		}},
	}

	cents, err := orderdesk.PriceLine(pizza, groups)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(cents)
	// Output: 5501
}

// Example_claim shows that only the first print agent wins an order.
func Example_claim() {
	ctx := context.Background()
	svc := orderdesk.NewInMemoryService(orderdesk.Options{})

	order, err := svc.CreateOrder(ctx, orderdesk.NewOrder{
		StoreID:         "store-1",
		FulfillmentType: api.FulfillmentPickup,
		PaymentMethod:   api.PaymentCash,
		Items: []orderdesk.NewLineItem{{
			Product:  orderdesk.Product{ID: "coxinha", Name: "Coxinha", PricingRule: api.PricingSum, BasePriceCents: 650},
			Quantity: 4,
		}},
	})
	if err != nil {
		log.Fatal(err)
	}

	first, _ := svc.ClaimOrder(ctx, order.ID)
	second, _ := svc.ClaimOrder(ctx, order.ID)
	fmt.Println(order.TotalCents, first, second)
	// Output: 2600 won already_claimed
}
