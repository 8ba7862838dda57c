package shipper

import (
	"sort"
	"strings"
)

// WeightUnit represents the store's weight measurement unit.
type WeightUnit string

const (
	WeightKG  WeightUnit = "kg"
	WeightG   WeightUnit = "g"
	WeightLBS WeightUnit = "lbs"
	WeightOZ  WeightUnit = "oz"
)

// gramsPer holds the number of grams in one unit of each supported weight unit.
var gramsPer = map[WeightUnit]float64{
	WeightKG:  1000,
	WeightG:   1,
	WeightLBS: 453.59237,
	WeightOZ:  28.34952,
}

// ParseWeightUnit normalizes a unit name. Unknown units report false.
func ParseWeightUnit(s string) (WeightUnit, bool) {
	u := WeightUnit(strings.ToLower(strings.TrimSpace(s)))
	if u == "lb" {
		u = WeightLBS
	}
	_, ok := gramsPer[u]
	return u, ok
}

// ToKilograms converts a weight expressed in unit to kilograms.
// The conversion goes through grams, the same way WooCommerce does it.
// Unknown units are treated as kilograms.
func ToKilograms(weight float64, unit WeightUnit) float64 {
	if weight == 0 {
		return 0
	}
	factor, ok := gramsPer[unit]
	if !ok {
		return weight
	}
	return weight * factor * 0.001
}

// Address represents a checkout destination or store origin address.
type Address struct {
	Country    string `json:"country"`  // ISO 3166-1 alpha-2, e.g., "CA"
	PostalCode string `json:"postcode"` // e.g., "M5V 1A1"
	Province   string `json:"state"`    // e.g., "ON", "QC", "BC"
	City       string `json:"city"`
	Address1   string `json:"address_1"`
	Address2   string `json:"address_2"`
}

// CartItem is one cart line of a package.
type CartItem struct {
	ProductID int     `json:"product_id,omitempty"`
	Name      string  `json:"name,omitempty"`
	Weight    float64 `json:"weight"` // store weight unit, 0 when unset
	Quantity  int     `json:"quantity"`
}

// Package is the shipment the host checkout asks rates for.
type Package struct {
	Destination Address    `json:"destination"`
	Contents    []CartItem `json:"contents"`
}

// QuotedRate is a checkout-ready shipping option.
type QuotedRate struct {
	ID       string            `json:"id"`
	Label    string            `json:"label"`
	Cost     float64           `json:"cost"`
	Taxes    bool              `json:"taxes"`
	MetaData map[string]string `json:"meta_data"`
}

// SortRatesByCost sorts rates ascending by cost, keeping the relative order of equal costs.
func SortRatesByCost(rates []QuotedRate) {
	sort.SliceStable(rates, func(i, j int) bool {
		return rates[i].Cost < rates[j].Cost
	})
}
