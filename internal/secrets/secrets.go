// Package secrets resolves credentials stored in GCP Secret Manager.
package secrets

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
)

// versionAccessor is the part of the Secret Manager client used here.
type versionAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// SecretManager reads secret payloads.
type SecretManager struct {
	client versionAccessor
	close  func() error
}

// NewSecretManager connects to Secret Manager with default credentials.
func NewSecretManager(ctx context.Context) (*SecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating secret manager client: %w", err)
	}
	return &SecretManager{client: client, close: client.Close}, nil
}

// NewSecretManagerWithClient wraps an existing accessor, e.g. in tests.
func NewSecretManagerWithClient(client versionAccessor) *SecretManager {
	return &SecretManager{client: client, close: func() error { return nil }}
}

// Close releases the client.
func (s *SecretManager) Close() error {
	return s.close()
}

// Access returns the trimmed payload of a secret version. name may be a
// full version name or "projects/{p}/secrets/{s}", which reads "latest".
func (s *SecretManager) Access(ctx context.Context, name string) (string, error) {
	name = VersionName(name)
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("accessing secret %s: %w", name, err)
	}
	if result.GetPayload() == nil {
		return "", fmt.Errorf("secret %s has no payload", name)
	}
	return strings.TrimSpace(string(result.GetPayload().GetData())), nil
}

// VersionName appends "/versions/latest" when name has no version.
func VersionName(name string) string {
	if strings.Contains(name, "/versions/") {
		return name
	}
	return strings.TrimSuffix(name, "/") + "/versions/latest"
}
