package sources

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	enverrors "github.com/systmms/envit/internal/errors"
	"github.com/systmms/envit/pkg/secretsource"
)

// SecretsManagerClientAPI is the slice of the AWS Secrets Manager client
// this source uses, kept as an interface for mock injection in tests.
type SecretsManagerClientAPI interface {
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManagerSource reads secrets from AWS Secrets Manager.
type AWSSecretsManagerSource struct {
	client SecretsManagerClientAPI
	region string
}

// AWSOption is a functional option for configuring the AWS source.
type AWSOption func(*AWSSecretsManagerSource)

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing).
func WithSecretsManagerClient(client SecretsManagerClientAPI) AWSOption {
	return func(s *AWSSecretsManagerSource) {
		s.client = client
	}
}

// NewAWSSecretsManagerSource creates an AWS Secrets Manager source from the
// inline provider configuration map. An optional endpoint plus static
// credentials support LocalStack-style testing.
func NewAWSSecretsManagerSource(configMap map[string]interface{}, opts ...AWSOption) (*AWSSecretsManagerSource, error) {
	region := "us-east-1"
	if r, ok := configMap["region"].(string); ok && r != "" {
		region = r
	}

	var endpoint string
	if e, ok := configMap["endpoint"].(string); ok && e != "" {
		endpoint = e
	}

	var accessKeyID, secretAccessKey string
	if ak, ok := configMap["access_key_id"].(string); ok && ak != "" {
		accessKeyID = ak
	}
	if sk, ok := configMap["secret_access_key"].(string); ok && sk != "" {
		secretAccessKey = sk
	}

	s := &AWSSecretsManagerSource{region: region}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		configOpts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(region),
		}
		if accessKeyID != "" && secretAccessKey != "" {
			configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
			))
		}

		cfg, err := awsconfig.LoadDefaultConfig(context.Background(), configOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		var clientOpts []func(*secretsmanager.Options)
		if endpoint != "" {
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		s.client = secretsmanager.NewFromConfig(cfg, clientOpts...)
	}

	return s, nil
}

// Name implements secretsource.Source.
func (s *AWSSecretsManagerSource) Name() string {
	return "aws.secretsmanager"
}

// List implements secretsource.Source, following NextToken pagination until
// the listing is exhausted.
func (s *AWSSecretsManagerSource) List(ctx context.Context) ([]secretsource.Descriptor, error) {
	var descriptors []secretsource.Descriptor

	input := &secretsmanager.ListSecretsInput{}
	for {
		out, err := s.client.ListSecrets(ctx, input)
		if err != nil {
			if authErr, ok := asAWSAuthError(s.Name(), err); ok {
				return nil, authErr
			}
			return nil, enverrors.SourceError(s.Name(), "list", err)
		}
		for _, entry := range out.SecretList {
			if entry.Name != nil && *entry.Name != "" {
				descriptors = append(descriptors, secretsource.Descriptor{Name: *entry.Name})
			}
		}
		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}

	return descriptors, nil
}

// asAWSAuthError converts credential and authorization API errors into the
// typed auth error. Auth failures stay hard errors; they must never look
// like a missing secret.
func asAWSAuthError(source string, err error) (secretsource.AuthError, bool) {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "UnrecognizedClientException",
			"InvalidSignatureException", "ExpiredTokenException", "NotAuthorized":
			return secretsource.AuthError{
				Source:  source,
				Message: fmt.Sprintf("request rejected (%s)", apiErr.ErrorCode()),
			}, true
		}
	}
	return secretsource.AuthError{}, false
}

// Get implements secretsource.Source. ResourceNotFoundException maps to the
// typed not-found error; everything else is a hard failure.
func (s *AWSSecretsManagerSource) Get(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &name,
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", secretsource.NotFoundError{Source: s.Name(), Name: name}
		}
		if authErr, ok := asAWSAuthError(s.Name(), err); ok {
			return "", authErr
		}
		return "", enverrors.SourceError(s.Name(), "get", err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}
	return *out.SecretString, nil
}
