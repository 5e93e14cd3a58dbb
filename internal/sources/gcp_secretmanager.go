package sources

import (
	"context"
	"fmt"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	enverrors "github.com/systmms/envit/internal/errors"
	"github.com/systmms/envit/pkg/secretsource"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GCPSecretManagerSource reads secrets from Google Cloud Secret Manager.
type GCPSecretManagerSource struct {
	client    *secretmanager.Client
	projectID string
}

// NewGCPSecretManagerSource creates a GCP Secret Manager source from the
// inline provider configuration map.
func NewGCPSecretManagerSource(ctx context.Context, configMap map[string]interface{}) (*GCPSecretManagerSource, error) {
	var projectID string
	if p, ok := configMap["project_id"].(string); ok {
		projectID = p
	}
	if projectID == "" {
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if projectID == "" {
		return nil, enverrors.ConfigError{
			Field:      "provider.project_id",
			Message:    "project_id is required for GCP Secret Manager",
			Suggestion: "Set project_id in config or the GOOGLE_CLOUD_PROJECT environment variable",
		}
	}

	var clientOpts []option.ClientOption
	if keyPath, ok := configMap["service_account_key_path"].(string); ok && keyPath != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(keyPath))
	}

	client, err := secretmanager.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
	}

	return &GCPSecretManagerSource{client: client, projectID: projectID}, nil
}

// Name implements secretsource.Source.
func (s *GCPSecretManagerSource) Name() string {
	return "gcp.secretmanager"
}

// List implements secretsource.Source. Resource names come back fully
// qualified (projects/<p>/secrets/<name>); descriptors carry the short name.
func (s *GCPSecretManagerSource) List(ctx context.Context) ([]secretsource.Descriptor, error) {
	var descriptors []secretsource.Descriptor

	it := s.client.ListSecrets(ctx, &secretmanagerpb.ListSecretsRequest{
		Parent: "projects/" + s.projectID,
	})
	for {
		secret, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, enverrors.SourceError(s.Name(), "list", err)
		}
		if name := shortSecretName(secret.GetName()); name != "" {
			descriptors = append(descriptors, secretsource.Descriptor{Name: name})
		}
	}

	return descriptors, nil
}

// Get implements secretsource.Source, reading the latest enabled version.
func (s *GCPSecretManagerSource) Get(ctx context.Context, name string) (string, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, name),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", secretsource.NotFoundError{Source: s.Name(), Name: name}
		}
		return "", enverrors.SourceError(s.Name(), "get", err)
	}
	return string(resp.GetPayload().GetData()), nil
}

// Close releases the underlying gRPC connection.
func (s *GCPSecretManagerSource) Close() error {
	return s.client.Close()
}

// shortSecretName extracts the secret name from a fully qualified resource
// name, returning the input unchanged when it is not qualified.
func shortSecretName(resource string) string {
	if idx := strings.LastIndex(resource, "/secrets/"); idx >= 0 {
		return resource[idx+len("/secrets/"):]
	}
	return resource
}
