package machool

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tournevent/machool/pkg/shipper"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP.
type HTTPAPIClient struct {
	baseURL     string
	apiKey      string
	storeDomain string
	httpClient  *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL      string
	APIKey       string
	StoreDomain  string
	Timeout      time.Duration
	MaxRedirects int // Redirects followed before the last response is returned
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
// Machool is reached over HTTP/1.1 with certificate verification disabled.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	maxRedirects := cfg.MaxRedirects
	if maxRedirects == 0 {
		maxRedirects = 1
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // sslverify is off for this API
		TLSNextProto:        map[string]func(string, *tls.Conn) http.RoundTripper{},
		ForceAttemptHTTP2:   false,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	return &HTTPAPIClient{
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		storeDomain: cfg.StoreDomain,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Call POSTs params to the endpoint and decodes the JSON body.
// The HTTP status is not inspected; the API reports failures in the body.
func (c *HTTPAPIClient) Call(ctx context.Context, endpoint string, params any) (any, error) {
	if endpoint == "" {
		return nil, shipper.NewShipperError(carrierName, shipper.CodeTransport, "no endpoint given")
	}

	resp, err := c.doRequest(ctx, endpoint, params)
	if err != nil {
		return nil, shipper.NewShipperError(carrierName, shipper.CodeTransport,
			"no response returned when connecting to "+c.baseURL+endpoint).WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, shipper.NewShipperError(carrierName, shipper.CodeTransport, "failed to read response body").
			WithCause(err).
			WithStatusCode(resp.StatusCode)
	}

	decoded, err := DecodeResponse(bytes.NewReader(body))
	if err != nil {
		return nil, shipper.NewShipperError(carrierName, shipper.CodeMalformedResponse, "failed to decode response").
			WithCause(c.parseError(resp.StatusCode, body, err)).
			WithStatusCode(resp.StatusCode)
	}
	return decoded, nil
}

// doRequest performs an HTTP request with the Machool authentication headers.
// The token and account number also travel as JSON-encoded query parameters.
func (c *HTTPAPIClient) doRequest(ctx context.Context, endpoint string, params any) (*http.Response, error) {
	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}

	apiToken, _ := json.Marshal(c.apiKey)
	accountNumber, _ := json.Marshal(c.storeDomain)
	q := u.Query()
	q.Set("apiToken", string(apiToken))
	q.Set("accountNumber", string(accountNumber))
	u.RawQuery = q.Encode()

	var body []byte
	if params != nil {
		body, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var bodyReader io.Reader = http.NoBody
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("authorization", c.apiKey)
	req.Header.Set("token", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.ContentLength = int64(len(body))
	}

	return c.httpClient.Do(req)
}

// parseError describes an undecodable response body.
func (c *HTTPAPIClient) parseError(statusCode int, body []byte, cause error) error {
	msg := string(body)
	if len(msg) > 256 {
		msg = msg[:256]
	}
	if msg == "" {
		msg = cause.Error()
	}
	return &APIError{
		Code:       "INVALID_JSON",
		Message:    msg,
		StatusCode: statusCode,
	}
}

// DecodeResponse decodes a Machool response body into generic JSON values.
// Numbers are kept as json.Number. An empty body or trailing data is an error.
func DecodeResponse(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty response body")
		}
		return nil, err
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after response body")
	}
	return v, nil
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
