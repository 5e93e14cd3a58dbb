// Package secretsource defines the contract between the envit pull pipeline
// and the remote secret stores it reads from.
//
// A Source is the read-only view of one secret store: it can enumerate the
// secrets it holds and fetch individual values. Production implementations
// (Azure Key Vault, AWS Secrets Manager, GCP Secret Manager) and the
// file-backed fixture used in tests are interchangeable behind this
// interface.
//
// # Error contract
//
// Get distinguishes two failure shapes, and the pipeline treats them very
// differently:
//
//   - A secret that does not exist is reported as NotFoundError. Callers
//     check it with IsNotFound. This is not fatal: the pull pipeline simply
//     leaves the corresponding env file entry untouched.
//   - Any other error (authentication, transport, malformed response) is
//     fatal and aborts the whole pull before anything is written.
//
// Implementations must never fold a hard failure into a not-found result;
// doing so would silently freeze a variable at its previous value.
//
// Implementations must be safe for concurrent use and honor context
// cancellation. Retry and timeout policy, if any, belongs inside the
// implementation, not in the pipeline.
package secretsource

import (
	"context"
	"errors"
)

// Descriptor identifies a secret in a store prior to fetching its value.
// No value is attached; listing must never transfer secret material.
type Descriptor struct {
	// Name is the store's identifier for the secret, e.g. "database-url".
	Name string
}

// Source is the capability interface a secret store implements.
type Source interface {
	// Name returns the stable identifier of the store kind, matching the
	// provider kind used in configuration (e.g. "azure.keyvault").
	Name() string

	// List enumerates the secrets visible in the store, in the store's
	// natural order. The order is significant: name resolution and fetches
	// follow it deterministically.
	List(ctx context.Context) ([]Descriptor, error)

	// Get fetches the current value of one secret. A missing secret is
	// reported as NotFoundError; every other error is a hard failure.
	// Implementations must never log or embed the returned value in errors.
	Get(ctx context.Context, name string) (string, error)
}

// NotFoundError indicates that a requested secret does not exist in the store.
type NotFoundError struct {
	// Source is the name of the store kind where the lookup happened.
	Source string

	// Name is the secret identifier that could not be found.
	Name string
}

func (e NotFoundError) Error() string {
	return "secret not found: " + e.Name + " in " + e.Source
}

// IsNotFound reports whether err (anywhere in its chain) signals a missing
// secret rather than a hard failure.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// AuthError indicates that authentication to the store failed. Auth failures
// are hard errors: the pipeline aborts rather than treating the secret as
// absent.
type AuthError struct {
	// Source is the name of the store kind that rejected the credentials.
	Source string

	// Message describes the failure without embedding credential material.
	Message string
}

func (e AuthError) Error() string {
	return "authentication failed for " + e.Source + ": " + e.Message
}
