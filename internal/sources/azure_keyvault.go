package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	enverrors "github.com/systmms/envit/internal/errors"
	"github.com/systmms/envit/pkg/secretsource"
)

// AzureSecretsClientAPI is the slice of the azsecrets client this source
// uses. Narrowing it to an interface allows mock injection in tests.
type AzureSecretsClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	NewListSecretPropertiesPager(options *azsecrets.ListSecretPropertiesOptions) *runtime.Pager[azsecrets.ListSecretPropertiesResponse]
}

// AzureKeyVaultSource reads secrets from one Azure Key Vault.
type AzureKeyVaultSource struct {
	client   AzureSecretsClientAPI
	vaultURL string
}

// azureConfig holds the provider block settings for Azure Key Vault.
type azureConfig struct {
	VaultURL           string
	TenantID           string
	ClientID           string
	ClientSecret       string
	UseManagedIdentity bool
	UserAssignedID     string
}

// AzureOption is a functional option for configuring the Azure source.
type AzureOption func(*AzureKeyVaultSource)

// WithAzureClient sets a custom Key Vault client (for testing).
func WithAzureClient(client AzureSecretsClientAPI) AzureOption {
	return func(s *AzureKeyVaultSource) {
		s.client = client
	}
}

// NewAzureKeyVaultSource creates an Azure Key Vault source from the inline
// provider configuration map.
func NewAzureKeyVaultSource(configMap map[string]interface{}, opts ...AzureOption) (*AzureKeyVaultSource, error) {
	cfg := azureConfig{}

	if vaultURL, ok := configMap["vault_url"].(string); ok {
		cfg.VaultURL = vaultURL
	}
	if tenantID, ok := configMap["tenant_id"].(string); ok {
		cfg.TenantID = tenantID
	}
	if clientID, ok := configMap["client_id"].(string); ok {
		cfg.ClientID = clientID
	}
	if clientSecret, ok := configMap["client_secret"].(string); ok {
		cfg.ClientSecret = clientSecret
	}
	if useMI, ok := configMap["use_managed_identity"].(bool); ok {
		cfg.UseManagedIdentity = useMI
	}
	if userAssignedID, ok := configMap["user_assigned_identity_id"].(string); ok {
		cfg.UserAssignedID = userAssignedID
	}

	if cfg.VaultURL == "" {
		return nil, enverrors.ConfigError{
			Field:      "provider.vault_url",
			Message:    "vault_url is required for Azure Key Vault",
			Suggestion: "Provide the Key Vault URL (e.g., https://my-vault.vault.azure.net/)",
		}
	}
	if _, err := url.Parse(cfg.VaultURL); err != nil {
		return nil, enverrors.ConfigError{
			Field:      "provider.vault_url",
			Message:    "invalid vault_url format",
			Suggestion: "Use format: https://vault-name.vault.azure.net/",
		}
	}

	s := &AzureKeyVaultSource{vaultURL: strings.TrimSuffix(cfg.VaultURL, "/")}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		client, err := newAzureSecretsClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Key Vault client: %w", err)
		}
		s.client = client
	}

	return s, nil
}

// newAzureSecretsClient builds the real azsecrets client with the
// configured authentication method: managed identity, service principal,
// or the default credential chain (Azure CLI included).
func newAzureSecretsClient(cfg azureConfig) (*azsecrets.Client, error) {
	var cred azcore.TokenCredential
	var err error

	switch {
	case cfg.UseManagedIdentity && cfg.UserAssignedID != "":
		cred, err = azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
			ID: azidentity.ClientID(cfg.UserAssignedID),
		})
	case cfg.UseManagedIdentity:
		cred, err = azidentity.NewManagedIdentityCredential(nil)
	case cfg.ClientSecret != "":
		cred, err = azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
	default:
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	return azsecrets.NewClient(cfg.VaultURL, cred, nil)
}

// Name implements secretsource.Source.
func (s *AzureKeyVaultSource) Name() string {
	return "azure.keyvault"
}

// List implements secretsource.Source, walking the secret properties pager
// page by page.
func (s *AzureKeyVaultSource) List(ctx context.Context) ([]secretsource.Descriptor, error) {
	var descriptors []secretsource.Descriptor

	pager := s.client.NewListSecretPropertiesPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if authErr, ok := asAzureAuthError(s.Name(), err); ok {
				return nil, authErr
			}
			return nil, enverrors.SourceError(s.Name(), "list", err)
		}
		for _, item := range page.Value {
			if item == nil || item.ID == nil {
				continue
			}
			if name := item.ID.Name(); name != "" {
				descriptors = append(descriptors, secretsource.Descriptor{Name: name})
			}
		}
	}

	return descriptors, nil
}

// Get implements secretsource.Source. A 404 from the vault maps to the
// typed not-found error; everything else is a hard failure.
func (s *AzureKeyVaultSource) Get(ctx context.Context, name string) (string, error) {
	resp, err := s.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		if isAzureNotFound(err) {
			return "", secretsource.NotFoundError{Source: s.Name(), Name: name}
		}
		if authErr, ok := asAzureAuthError(s.Name(), err); ok {
			return "", authErr
		}
		return "", enverrors.SourceError(s.Name(), "get", err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret %s has no value", name)
	}
	return *resp.Value, nil
}

// asAzureAuthError converts a 401/403 vault response into the typed auth
// error. Auth failures stay hard errors; they must never look like a
// missing secret.
func asAzureAuthError(source string, err error) (secretsource.AuthError, bool) {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return secretsource.AuthError{
				Source:  source,
				Message: fmt.Sprintf("vault returned status %d (%s)", respErr.StatusCode, respErr.ErrorCode),
			}, true
		}
	}
	return secretsource.AuthError{}, false
}

// isAzureNotFound checks the typed SDK response error first, falling back
// to message matching for error shapes that do not carry a status code.
func isAzureNotFound(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusNotFound
	}
	return strings.Contains(err.Error(), "SecretNotFound") || strings.Contains(err.Error(), "404")
}
