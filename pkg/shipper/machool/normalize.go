package machool

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tournevent/machool/pkg/shipper"
)

const defaultEstimatedDays = 2

var businessDaysPattern = regexp.MustCompile(`(\d+)\s+business\s+days?`)

// normalizeRates turns a decoded rates response into checkout rates sorted by
// cost. ok is false when the response carries no rates array at all.
// Entries without a positive numeric total_price are skipped and counted.
func normalizeRates(resp any, version string) (rates []shipper.QuotedRate, skipped int, ok bool) {
	rates = make([]shipper.QuotedRate, 0)

	obj, isObj := resp.(map[string]any)
	if !isObj {
		return rates, 0, false
	}
	list, isList := obj["rates"].([]any)
	if !isList {
		return rates, 0, false
	}

	for _, raw := range list {
		pr, admitted := parseProviderRate(raw)
		if !admitted {
			skipped++
			continue
		}
		rates = append(rates, shipper.QuotedRate{
			ID:       rateID(pr.ServiceName),
			Label:    rateLabel(pr.ServiceName, pr.MaxDeliveryDate),
			Cost:     pr.TotalPrice / 100,
			Taxes:    false,
			MetaData: map[string]string{"version": version},
		})
	}

	shipper.SortRatesByCost(rates)
	return rates, skipped, true
}

// parseProviderRate reads one rate object. It is admitted only when
// total_price is present, numeric and greater than zero.
func parseProviderRate(raw any) (ProviderRate, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return ProviderRate{}, false
	}
	price, ok := toNumber(obj["total_price"])
	if !ok || price <= 0 {
		return ProviderRate{}, false
	}
	return ProviderRate{
		ServiceName:     toText(obj["service_name"]),
		TotalPrice:      price,
		MaxDeliveryDate: toText(obj["max_delivery_date"]),
	}, true
}

// estimatedDays maps a free-text delivery estimate to a number of days.
func estimatedDays(estimate string) int {
	lower := strings.ToLower(estimate)
	if lower == "next day delivery" || lower == "next business day" {
		return 1
	}
	if m := businessDaysPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return defaultEstimatedDays
}

func daysString(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// rateLabel renders e.g. "Purolator express (1 day)".
func rateLabel(serviceName, estimate string) string {
	return fmt.Sprintf("%s (%s)", upperFirst(serviceName), daysString(estimatedDays(estimate)))
}

// rateID renders e.g. "machool_purolator_express".
func rateID(serviceName string) string {
	return "machool_" + strings.ToLower(strings.ReplaceAll(serviceName, " ", "_"))
}

// upperFirst upper-cases a leading ASCII letter only. Multi-byte first
// characters pass through unchanged.
func upperFirst(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// toNumber accepts JSON numbers and numeric strings.
func toNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "1"
		}
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// truthy reports whether a decoded JSON value would count as set.
// Objects are always truthy, even when empty.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "0"
	case []any:
		return len(t) > 0
	case map[string]any:
		return true
	default:
		f, ok := toNumber(t)
		if !ok {
			return true
		}
		return f != 0
	}
}
