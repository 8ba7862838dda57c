package machool

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/tournevent/machool/pkg/shipper"
)

// MockCall records one call made through MockAPIClient.
type MockCall struct {
	Endpoint string
	Params   any
}

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnValidateToken func(ctx context.Context, req *TokenRequest) (any, error)
	OnGetRates      func(ctx context.Context, req *RateRequest) (any, error)

	mu    sync.Mutex
	calls []MockCall
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// Call records the call and returns a canned or hooked response.
func (m *MockAPIClient) Call(ctx context.Context, endpoint string, params any) (any, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Endpoint: endpoint, Params: params})
	m.mu.Unlock()

	if m.SimulateLatency > 0 {
		select {
		case <-ctx.Done():
			return nil, shipper.NewShipperError(carrierName, shipper.CodeTransport, "request cancelled").WithCause(ctx.Err())
		case <-time.After(m.SimulateLatency):
		}
	}

	if m.SimulateErrors {
		return nil, shipper.NewShipperError(carrierName, shipper.CodeTransport, "simulated network failure").
			WithCause(&APIError{Code: "MOCK_ERROR", Message: "Simulated API error"})
	}

	switch endpoint {
	case EndpointValidateToken:
		req, _ := params.(*TokenRequest)
		if m.OnValidateToken != nil {
			return m.OnValidateToken(ctx, req)
		}
		return map[string]any{
			"statusCode": json.Number("200"),
			"message":    "Token is valid",
		}, nil

	case EndpointRates:
		req, _ := params.(*RateRequest)
		if m.OnGetRates != nil {
			return m.OnGetRates(ctx, req)
		}
		return map[string]any{
			"rates": []any{
				map[string]any{
					"service_name":      "Purolator Express",
					"total_price":       json.Number("2995"),
					"max_delivery_date": "Next Day Delivery",
				},
				map[string]any{
					"service_name":      "Canada Post Expedited Parcel",
					"total_price":       json.Number("1582"),
					"max_delivery_date": "3 business days",
				},
				map[string]any{
					"service_name":      "UPS Standard",
					"total_price":       json.Number("1874"),
					"max_delivery_date": "Delivered by end of week",
				},
			},
		}, nil
	}

	return nil, shipper.NewShipperError(carrierName, shipper.CodeTransport, "unknown endpoint: "+endpoint)
}

// Calls returns a copy of the recorded calls.
func (m *MockAPIClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many calls were made to endpoint.
func (m *MockAPIClient) CallCount(endpoint string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Endpoint == endpoint {
			n++
		}
	}
	return n
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
