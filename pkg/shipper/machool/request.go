package machool

import (
	"github.com/tournevent/machool/pkg/shipper"
)

// prepareItems flattens cart lines into one Item per physical unit.
// Weights are converted from the store unit to grams; a zero weight stays 0.
func prepareItems(contents []shipper.CartItem, unit shipper.WeightUnit) []Item {
	items := make([]Item, 0, len(contents))
	for _, line := range contents {
		grams := 0.0
		if kg := shipper.ToKilograms(line.Weight, unit); kg != 0 {
			grams = kg * 1000
		}
		for i := 0; i < line.Quantity; i++ {
			items = append(items, Item{Grams: grams, Quantity: 1})
		}
	}
	return items
}

// buildRequest assembles the rate request for pkg. The origin comes from the
// store base address; credentials are repeated inside the nested rate.
func (c *Client) buildRequest(pkg *shipper.Package, items []Item) *RateRequest {
	return &RateRequest{
		AccountNumber: c.config.StoreDomain,
		APIToken:      c.config.APIKey,
		Rate: RateDetails{
			APIToken:      c.config.APIKey,
			AccountNumber: c.config.StoreDomain,
			Origin:        addressToLocation(c.config.Store.Origin),
			Destination:   addressToLocation(pkg.Destination),
			Items:         items,
			Currency:      c.config.Store.Currency,
			Locale:        c.config.Store.Locale,
		},
	}
}

func addressToLocation(addr shipper.Address) Location {
	return Location{
		Country:    addr.Country,
		PostalCode: addr.PostalCode,
		Province:   addr.Province,
		City:       addr.City,
		Address1:   addr.Address1,
		Address2:   addr.Address2,
	}
}
