package graphql

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tournevent/machool/internal/service"
	"github.com/tournevent/machool/pkg/shipper"
	"github.com/tournevent/machool/pkg/shipper/machool"
)

func packageInputToModel(input any) (*shipper.Package, error) {
	data, ok := input.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'package' argument")
	}

	pkg := &shipper.Package{
		Destination: addressInputToModel(data["destination"]),
		Contents:    []shipper.CartItem{},
	}
	if contents, ok := data["contents"].([]any); ok {
		for _, c := range contents {
			item, ok := c.(map[string]any)
			if !ok {
				continue
			}
			pkg.Contents = append(pkg.Contents, cartItemInputToModel(item))
		}
	}
	return pkg, nil
}

func addressInputToModel(input any) shipper.Address {
	data, ok := input.(map[string]any)
	if !ok {
		return shipper.Address{}
	}
	addr := shipper.Address{}
	addr.Country, _ = data["country"].(string)
	addr.PostalCode, _ = data["postcode"].(string)
	addr.Province, _ = data["state"].(string)
	addr.City, _ = data["city"].(string)
	addr.Address1, _ = data["address1"].(string)
	addr.Address2, _ = data["address2"].(string)
	return addr
}

func cartItemInputToModel(data map[string]any) shipper.CartItem {
	item := shipper.CartItem{Quantity: 1}
	if id, ok := toFloat(data["productId"]); ok {
		item.ProductID = int(id)
	}
	item.Name, _ = data["name"].(string)
	if w, ok := toFloat(data["weight"]); ok {
		item.Weight = w
	}
	if q, ok := toFloat(data["quantity"]); ok && q >= 1 {
		item.Quantity = int(q)
	}
	return item
}

func stringList(input any) []string {
	list, ok := input.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func quoteResultToMap(result service.QuoteResult) map[string]any {
	rates := make([]any, len(result.Rates))
	for i, r := range result.Rates {
		rates[i] = rateToMap(r)
	}
	errs := make([]any, len(result.Errors))
	for i, e := range result.Errors {
		errs[i] = e
	}
	return map[string]any{
		"quoteId": result.QuoteID,
		"rates":   rates,
		"errors":  errs,
	}
}

func rateToMap(r shipper.QuotedRate) map[string]any {
	keys := make([]string, 0, len(r.MetaData))
	for k := range r.MetaData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	meta := make([]any, len(keys))
	for i, k := range keys {
		meta[i] = map[string]any{"key": k, "value": r.MetaData[k]}
	}
	return map[string]any{
		"id":       r.ID,
		"label":    r.Label,
		"cost":     r.Cost,
		"taxes":    r.Taxes,
		"metaData": meta,
	}
}

func providerToMap(info machool.Info) map[string]any {
	return map[string]any{
		"name":             info.Name,
		"id":               info.ID,
		"instanceId":       info.InstanceID,
		"title":            info.Title,
		"description":      info.Description,
		"version":          info.Version,
		"storeDomain":      info.StoreDomain,
		"enabled":          info.Enabled,
		"credentialsValid": info.CredentialsValid,
	}
}
