// Package sources implements the secret store backends behind the
// secretsource.Source contract, plus the kind factory that selects one
// from configuration.
package sources

import (
	"context"
	"os"
	"strings"

	"github.com/systmms/envit/internal/config"
	enverrors "github.com/systmms/envit/internal/errors"
	"github.com/systmms/envit/pkg/secretsource"
)

// FixtureEnvVar, when set, overrides the configured provider with the
// file-backed fixture source. Integration tests use it to run the full
// pull pipeline without any cloud credentials.
const FixtureEnvVar = "ENVIT_TEST_SECRETS_FILE"

// SupportedKinds lists the provider kinds the factory can build.
var SupportedKinds = []string{
	"azure.keyvault",
	"aws.secretsmanager",
	"gcp.secretmanager",
}

// Build constructs the secret source selected by the provider block.
func Build(ctx context.Context, cfg config.ProviderConfig) (secretsource.Source, error) {
	if path := os.Getenv(FixtureEnvVar); path != "" {
		return NewFixtureSource(path)
	}

	switch cfg.Kind {
	case "azure.keyvault":
		return NewAzureKeyVaultSource(cfg.Config)
	case "aws.secretsmanager":
		return NewAWSSecretsManagerSource(cfg.Config)
	case "gcp.secretmanager":
		return NewGCPSecretManagerSource(ctx, cfg.Config)
	default:
		return nil, enverrors.ConfigError{
			Field:      "provider.kind",
			Value:      cfg.Kind,
			Message:    "unsupported provider kind",
			Suggestion: "Use one of: " + strings.Join(SupportedKinds, ", "),
		}
	}
}
