// Package config loads and validates the envit.yaml configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	enverrors "github.com/systmms/envit/internal/errors"
	"github.com/systmms/envit/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration shared across commands.
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the envit.yaml structure.
type Definition struct {
	Version  int               `yaml:"version"`
	Output   OutputConfig      `yaml:"output"`
	Provider ProviderConfig    `yaml:"provider"`
	Map      map[string]string `yaml:"map"`
}

// OutputConfig describes the materialized env file.
type OutputConfig struct {
	EnvFile         string `yaml:"env_file"`
	CreateIfMissing *bool  `yaml:"create_if_missing"`
}

// ShouldCreateMissing reports whether a missing env file starts an empty
// document (the default) or is an error.
func (o OutputConfig) ShouldCreateMissing() bool {
	return o.CreateIfMissing == nil || *o.CreateIfMissing
}

// ProviderConfig selects the secret store kind; everything else in the
// block is kind-specific and handed to the store constructor as-is.
type ProviderConfig struct {
	Kind   string                 `yaml:"kind"`
	Config map[string]interface{} `yaml:",inline"`
}

// Load reads and validates the configuration file at c.Path.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return enverrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Run 'envit init' to create a starter configuration file",
			}
		}
		return enverrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return enverrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}

	if def.Output.EnvFile == "" {
		def.Output.EnvFile = ".env"
	}

	if err := validate(&def); err != nil {
		return err
	}

	c.Definition = &def
	return nil
}

// EnvFilePath resolves the target env file path: relative paths are
// anchored at the configuration file's own directory.
func (c *Config) EnvFilePath() string {
	envFile := c.Definition.Output.EnvFile
	if filepath.IsAbs(envFile) {
		return envFile
	}
	return filepath.Join(filepath.Dir(c.Path), envFile)
}

// validate applies the structural checks that must pass before any remote
// interaction.
func validate(def *Definition) error {
	if def.Version != 1 {
		return enverrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 1' at the top of your envit.yaml file",
		}
	}

	if strings.TrimSpace(def.Output.EnvFile) == "" {
		return enverrors.ConfigError{
			Field:   "output.env_file",
			Message: "env_file must not be empty",
		}
	}

	if strings.TrimSpace(def.Provider.Kind) == "" {
		return enverrors.ConfigError{
			Field:      "provider.kind",
			Message:    "provider kind is required",
			Suggestion: "Set provider.kind to one of: azure.keyvault, aws.secretsmanager, gcp.secretmanager",
		}
	}

	for variable, secret := range def.Map {
		if strings.TrimSpace(variable) == "" || strings.TrimSpace(secret) == "" {
			return enverrors.ConfigError{
				Field:   "map",
				Message: fmt.Sprintf("map entries must not be empty (got %q: %q)", variable, secret),
			}
		}
	}

	return nil
}
