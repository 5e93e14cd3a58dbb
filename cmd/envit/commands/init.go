package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/envit/internal/config"
)

const exampleConfig = `version: 1

output:
  env_file: .env
  create_if_missing: true

# Secret store. All fields besides 'kind' are store-specific.
provider:
  kind: azure.keyvault
  vault_url: https://my-vault.vault.azure.net/

  # kind: aws.secretsmanager
  # region: us-east-1

  # kind: gcp.secretmanager
  # project_id: my-project

# Explicit variable-name overrides. Secrets not listed here get a derived
# name: dashes become underscores and letters are upper-cased, so the
# secret 'database-url' materializes as DATABASE_URL either way.
map:
  DATABASE_URL: database-url
`

func NewInitCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new envit configuration",
		Long:  "Create an envit.yaml file with example configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(cfg.Path); err == nil {
				return fmt.Errorf("%s already exists. Remove it first if you want to reinitialize", cfg.Path)
			}

			if err := os.WriteFile(cfg.Path, []byte(exampleConfig), 0644); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			cfg.Logger.Info("Created %s", cfg.Path)
			cfg.Logger.Info("Next steps:")
			cfg.Logger.Info("  1. Edit %s to point at your secret store", cfg.Path)
			cfg.Logger.Info("  2. Run 'envit pull --dry-run' to preview the changes")
			cfg.Logger.Info("  3. Run 'envit pull' to materialize the env file")
			return nil
		},
	}

	return cmd
}
