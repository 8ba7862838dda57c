package machool

import (
	"context"
	"fmt"
)

// DefaultBaseURL is the Machool REST services root. Endpoints are appended to it.
const DefaultBaseURL = "https://api.machool.com/REST-app-services/"

// Endpoints used by the integration.
const (
	EndpointValidateToken = "api/v1/tokens/validate"
	EndpointRates         = "api/v1/rates"
)

// APIClient defines the transport to the Machool API.
// Responses are returned as generic decoded JSON (maps, slices, json.Number,
// strings, bools or nil); callers inspect them defensively.
type APIClient interface {
	// Call POSTs params as JSON to endpoint and returns the decoded body.
	// A nil params sends an empty body.
	Call(ctx context.Context, endpoint string, params any) (any, error)
}

// ============================================================================
// API Request Types (match the Machool REST app services contract)
// ============================================================================

// TokenRequest is the body of a token validation call.
// POST api/v1/tokens/validate
type TokenRequest struct {
	APIToken      string `json:"apiToken"`
	AccountNumber string `json:"accountNumber"`
}

// RateRequest is the body of a rate quote call. Token and account number
// appear at both levels.
// POST api/v1/rates
type RateRequest struct {
	AccountNumber string      `json:"accountNumber"`
	APIToken      string      `json:"apiToken"`
	Rate          RateDetails `json:"rate"`
}

// RateDetails holds the shipment being quoted.
type RateDetails struct {
	APIToken      string   `json:"apiToken"`
	AccountNumber string   `json:"accountNumber"`
	Origin        Location `json:"origin"`
	Destination   Location `json:"destination"`
	Items         []Item   `json:"items"`
	Currency      string   `json:"currency"`
	Locale        string   `json:"locale"`
}

// Location is an origin or destination address. Contact fields are always
// sent as empty strings.
type Location struct {
	Country     string `json:"country"`
	PostalCode  string `json:"postal_code"`
	Province    string `json:"province"`
	City        string `json:"city"`
	Name        string `json:"name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	Phone       string `json:"phone"`
	Fax         string `json:"fax"`
	Email       string `json:"email"`
	AddressType string `json:"address_type"`
	CompanyName string `json:"company_name"`
}

// Item is one physical unit in the shipment.
type Item struct {
	Grams    float64 `json:"grams"`
	Quantity int     `json:"quantity"` // always 1
}

// ============================================================================
// API Response Types
// ============================================================================

// ProviderRate is the typed view of one entry of the "rates" array.
// It is built by the normalizer from the generic response.
type ProviderRate struct {
	ServiceName     string
	TotalPrice      float64 // cents
	MaxDeliveryDate string
}

// APIError represents an error from the Machool transport.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Code, e.Message, e.StatusCode)
	}
	return e.Code + ": " + e.Message
}
