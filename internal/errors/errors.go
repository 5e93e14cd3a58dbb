// Package errors defines the typed, user-facing errors envit surfaces at
// the top level. Every fatal condition ends up as one of these so the CLI
// can print a message, an optional detail line, and a concrete suggestion.
package errors

import (
	"fmt"
	"strings"
)

// UserError is a failure that should be shown to the user with context.
type UserError struct {
	Message    string
	Details    string
	Suggestion string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError is a configuration problem detected before any remote
// interaction.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// SourceError wraps a secret store failure with the store kind and the
// operation that failed, adding a suggestion where one is known.
func SourceError(source string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s error during %s", source, operation),
		Suggestion: sourceSuggestion(source, err),
		Err:        err,
	}
}

// sourceSuggestion returns a remediation hint based on the store kind and
// the error text.
func sourceSuggestion(source string, err error) string {
	errStr := strings.ToLower(err.Error())

	switch source {
	case "azure.keyvault":
		if strings.Contains(errStr, "forbidden") || strings.Contains(errStr, "access denied") {
			return "Check Key Vault access policies: 'Get' and 'List' permissions are required for secrets"
		}
		if strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "401") {
			return "Check authentication: verify managed identity, service principal, or Azure CLI login"
		}
		if strings.Contains(errStr, "tenant") {
			return "Check that the tenant ID is correct and the application is registered"
		}

	case "aws.secretsmanager":
		if strings.Contains(errStr, "credentials") || strings.Contains(errStr, "authorization") {
			return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
		}
		if strings.Contains(errStr, "accessdenied") {
			return "Check IAM permissions for secretsmanager:ListSecrets and secretsmanager:GetSecretValue"
		}
		if strings.Contains(errStr, "throttling") {
			return "AWS rate limit exceeded. Wait a moment and try again"
		}

	case "gcp.secretmanager":
		if strings.Contains(errStr, "permission") {
			return "Check IAM: roles/secretmanager.viewer is required to list and read secrets"
		}
		if strings.Contains(errStr, "could not find default credentials") {
			return "Run 'gcloud auth application-default login' or set GOOGLE_APPLICATION_CREDENTIALS"
		}
	}

	if strings.Contains(errStr, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and provider configuration"
	}

	return ""
}
