package machool

import (
	"context"
	"encoding/json"
	"regexp"

	"go.opentelemetry.io/otel/attribute"
)

// InvalidCredentialsNotice is shown to store admins when validation fails.
const InvalidCredentialsNotice = "Machool API key and Store domain is invalid. Please check your settings."

// InvalidCredentialsNoticeKey identifies the notice on a NoticeBoard.
const InvalidCredentialsNoticeKey = "machool_invalid_credentials"

// The pattern is unanchored and lowercase only; it gates the remote check.
var uuidPattern = regexp.MustCompile(`[0-9a-f]{8}\b-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-\b[0-9a-f]{12}`)

// NoticeBoard receives admin-facing notices. Add must register a key at most once.
type NoticeBoard interface {
	Add(key, message string) bool
}

// LooksLikeAPIKey reports whether key is shaped like a Machool API key.
func LooksLikeAPIKey(key string) bool {
	return uuidPattern.MatchString(key)
}

// ValidateCredentials checks the API key shape and confirms it with Machool.
// Keys that are not UUID-shaped are rejected without a network call. The
// result is kept for CredentialsValid, and a failed check posts the
// invalid-credentials notice.
func (c *Client) ValidateCredentials(ctx context.Context) bool {
	ctx, span := c.tracer.Start(ctx, "machool.ValidateCredentials")
	defer span.End()

	valid := false
	shaped := LooksLikeAPIKey(c.config.APIKey)
	if shaped {
		resp, err := c.call(ctx, EndpointValidateToken, &TokenRequest{
			APIToken:      c.config.APIKey,
			AccountNumber: c.config.StoreDomain,
		})
		if err == nil {
			valid = tokenAccepted(resp)
		}
	}
	c.valid.Store(valid)

	span.SetAttributes(
		attribute.Bool("machool.key_shaped", shaped),
		attribute.Bool("machool.credentials_valid", valid),
	)

	if !valid && c.config.Notices != nil {
		c.config.Notices.Add(InvalidCredentialsNoticeKey, InvalidCredentialsNotice)
	}
	return valid
}

// CredentialsValid returns the result of the last ValidateCredentials call.
func (c *Client) CredentialsValid() bool {
	return c.valid.Load()
}

// tokenAccepted applies the validation rule to a decoded response: an empty
// response is a rejection, a set statusCode other than 200 is a rejection,
// anything else is accepted.
func tokenAccepted(resp any) bool {
	if !truthy(resp) {
		return false
	}
	obj, ok := resp.(map[string]any)
	if !ok {
		return true
	}
	status := obj["statusCode"]
	return !truthy(status) || isStatusOK(status)
}

// isStatusOK matches only the integer 200, not "200" or 200.0.
func isStatusOK(v any) bool {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return err == nil && i == 200
	case int:
		return n == 200
	case int64:
		return n == 200
	}
	return false
}
