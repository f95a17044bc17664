// Package factories generates realistic demo catalogs and orders for the
// seed command and for load-style tests.
package factories

import (
	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"

	"github.com/petrijr/orderdesk/pkg/api"
)

// MenuEntry is a catalog product together with the options a customer can
// pick from.
type MenuEntry struct {
	Product api.Product
	Flavors []api.OptionItem
	Addons  []api.OptionItem
	// MaxFlavors is how many flavors one line may combine.
	MaxFlavors int
}

var flavorNames = []string{
	"Calabresa", "Marguerita", "Frango com Catupiry", "Portuguesa",
	"Quatro Queijos", "Pepperoni", "Napolitana", "Atum",
}

var crustNames = []string{"Borda Catupiry", "Borda Cheddar", "Borda Chocolate"}

// NewMenu returns a small pizzeria menu that covers every pricing rule.
func NewMenu() []MenuEntry {
	var flavorsG, flavorsM []api.OptionItem
	for i, name := range flavorNames {
		flavorsG = append(flavorsG, api.OptionItem{ID: cuid.New(), Name: name, PriceDeltaCents: 4200 + int64(i%4)*400})
		flavorsM = append(flavorsM, api.OptionItem{ID: cuid.New(), Name: name, PriceDeltaCents: 3400 + int64(i%4)*300})
	}
	var crusts []api.OptionItem
	for _, name := range crustNames {
		crusts = append(crusts, api.OptionItem{ID: cuid.New(), Name: name, PriceDeltaCents: 900})
	}

	return []MenuEntry{
		{
			Product:    api.Product{ID: cuid.New(), Name: "Pizza Grande", PricingRule: api.PricingHalfSum},
			Flavors:    flavorsG,
			Addons:     crusts,
			MaxFlavors: 2,
		},
		{
			Product:    api.Product{ID: cuid.New(), Name: "Pizza Média", PricingRule: api.PricingMaxOption},
			Flavors:    flavorsM,
			Addons:     crusts,
			MaxFlavors: 2,
		},
		{
			Product: api.Product{ID: cuid.New(), Name: "X-Burguer", PricingRule: api.PricingSum, BasePriceCents: 2800},
			Addons: []api.OptionItem{
				{ID: cuid.New(), Name: "Bacon", PriceDeltaCents: 500},
				{ID: cuid.New(), Name: "Ovo", PriceDeltaCents: 300},
			},
		},
		{Product: api.Product{ID: cuid.New(), Name: "Refrigerante Lata", PricingRule: api.PricingSum, BasePriceCents: 700}},
		{Product: api.Product{ID: cuid.New(), Name: "Suco Natural", PricingRule: api.PricingSum, BasePriceCents: 1100}},
	}
}

// OrderFactory builds random orders against a menu.
type OrderFactory struct {
	fake faker.Faker
	menu []MenuEntry
}

func NewOrderFactory(menu []MenuEntry) *OrderFactory {
	return &OrderFactory{fake: faker.New(), menu: menu}
}

var (
	fulfillments = []string{string(api.FulfillmentPickup), string(api.FulfillmentDelivery), string(api.FulfillmentDineIn)}
	payments     = []string{string(api.PaymentCash), string(api.PaymentCard), string(api.PaymentPix)}
)

// NewOrder returns a valid order request for storeID.
func (f *OrderFactory) NewOrder(storeID string) api.NewOrder {
	req := api.NewOrder{
		StoreID:         storeID,
		FulfillmentType: api.FulfillmentType(f.fake.RandomStringElement(fulfillments)),
		PaymentMethod:   api.PaymentMethod(f.fake.RandomStringElement(payments)),
		CustomerName:    f.fake.Person().FirstName() + " " + f.fake.Person().LastName(),
		CustomerPhone:   f.Phone(),
	}

	switch req.FulfillmentType {
	case api.FulfillmentDelivery:
		req.DeliveryAddress = f.fake.Address().StreetName() + ", " + f.fake.Address().BuildingNumber()
		req.DeliveryFeeCents = int64(f.fake.IntBetween(4, 12)) * 100
	case api.FulfillmentDineIn:
		req.TableRef = f.fake.Numerify("Mesa ##")
		req.CustomerPhone = ""
	}

	lines := f.fake.IntBetween(1, 3)
	for i := 0; i < lines; i++ {
		req.Items = append(req.Items, f.NewLine())
	}

	if req.PaymentMethod == api.PaymentCash && f.fake.Bool() {
		// a round note above any realistic demo total
		req.CashTenderedCents = 20000
	}
	return req
}

// NewLine picks a menu entry and a valid option selection for it.
func (f *OrderFactory) NewLine() api.NewLineItem {
	entry := f.menu[f.fake.IntBetween(0, len(f.menu)-1)]
	line := api.NewLineItem{
		Product:  entry.Product,
		Quantity: f.fake.IntBetween(1, 2),
	}

	if len(entry.Flavors) > 0 {
		n := 1
		if entry.MaxFlavors > 1 {
			n = f.fake.IntBetween(1, entry.MaxFlavors)
		}
		line.Groups = append(line.Groups, api.OptionGroup{
			Name:  "Sabores",
			Role:  api.RoleFlavor,
			Items: f.pick(entry.Flavors, n),
		})
	}
	if len(entry.Addons) > 0 && f.fake.Bool() {
		line.Groups = append(line.Groups, api.OptionGroup{
			Name:  "Adicionais",
			Role:  api.RoleAddon,
			Items: f.pick(entry.Addons, 1),
		})
	}
	if f.fake.IntBetween(0, 4) == 0 {
		line.Notes = "sem cebola"
	}
	return line
}

// Phone returns a Brazilian mobile number in the loose format customers type.
func (f *OrderFactory) Phone() string {
	return f.fake.Numerify("(##) 9####-####")
}

// pick returns n distinct items.
func (f *OrderFactory) pick(items []api.OptionItem, n int) []api.OptionItem {
	if n > len(items) {
		n = len(items)
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	out := make([]api.OptionItem, 0, n)
	for i := 0; i < n; i++ {
		j := f.fake.IntBetween(i, len(idx)-1)
		idx[i], idx[j] = idx[j], idx[i]
		out = append(out, items[idx[i]])
	}
	return out
}

// NewStoreSettings returns messaging-enabled settings for a demo store.
func NewStoreSettings(storeID string) api.StoreSettings {
	fake := faker.New()
	return api.StoreSettings{
		StoreID:          storeID,
		Name:             "Pizzaria " + fake.Person().LastName(),
		MessagingEnabled: true,
		MessagingRef:     "wa-" + storeID,
		ReceiptBaseURL:   "https://pedidos.example.com/r",
		PixKey:           fake.Internet().Email(),
		PixHolderName:    fake.Person().Name(),
	}
}
