// Package resolve maps the secrets visible in a store to the variable
// names they materialize as, and drives the all-or-nothing value fetch.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/systmms/envit/pkg/secretsource"
)

// Mapping pairs one secret with the variable name it will materialize as.
// A resolved mapping list is ordered (store listing order) and carries no
// values.
type Mapping struct {
	Secret   string
	Variable string
}

// ConflictError reports two mappings claiming the same identifier. It is
// produced either when two override entries name the same secret, or when
// two secrets end up with the same variable name (derived or overridden).
type ConflictError struct {
	// Identifier is the contested name: a secret name for override
	// conflicts, a variable name for target conflicts.
	Identifier string

	// First and Second are the two claimants, in discovery order.
	First  string
	Second string

	// Scope is "override" or "variable", matching the two cases above.
	Scope string
}

func (e ConflictError) Error() string {
	if e.Scope == "override" {
		return fmt.Sprintf("duplicate override mapping for secret %s: %s and %s", e.Identifier, e.First, e.Second)
	}
	return fmt.Sprintf("duplicate variable name %s: mapped from both %s and %s", e.Identifier, e.First, e.Second)
}

// Resolve maps each listed secret to a variable name: the override table
// wins when it names the secret, otherwise the name is derived. The full
// result is then scanned for duplicate variable names, with no precedence
// between overridden and derived names; the first duplicate in listing
// order is reported.
func Resolve(descriptors []secretsource.Descriptor, overrides map[string]string) ([]Mapping, error) {
	reverse, err := invertOverrides(overrides)
	if err != nil {
		return nil, err
	}

	mappings := make([]Mapping, 0, len(descriptors))
	for _, desc := range descriptors {
		variable, ok := reverse[desc.Name]
		if !ok {
			variable = DeriveName(desc.Name)
		}
		mappings = append(mappings, Mapping{Secret: desc.Name, Variable: variable})
	}

	seen := make(map[string]string, len(mappings))
	for _, m := range mappings {
		if prev, dup := seen[m.Variable]; dup {
			return nil, ConflictError{
				Identifier: m.Variable,
				First:      prev,
				Second:     m.Secret,
				Scope:      "variable",
			}
		}
		seen[m.Variable] = m.Secret
	}

	return mappings, nil
}

// invertOverrides flips the declared variable -> secret table into the
// secret -> variable direction the resolver consults. Two overrides naming
// the same secret are a conflict detected from configuration alone, before
// any store interaction. Keys are walked sorted so the reported pair is
// deterministic.
func invertOverrides(overrides map[string]string) (map[string]string, error) {
	variables := make([]string, 0, len(overrides))
	for variable := range overrides {
		variables = append(variables, variable)
	}
	sort.Strings(variables)

	reverse := make(map[string]string, len(overrides))
	for _, variable := range variables {
		secret := overrides[variable]
		if existing, dup := reverse[secret]; dup {
			return nil, ConflictError{
				Identifier: secret,
				First:      existing,
				Second:     variable,
				Scope:      "override",
			}
		}
		reverse[secret] = variable
	}
	return reverse, nil
}

// DeriveName computes the default variable name for a secret: '-' becomes
// '_' and ASCII letters are upper-cased. Nothing else is transformed, so
// non-ASCII bytes pass through untouched.
func DeriveName(secret string) string {
	var b strings.Builder
	b.Grow(len(secret))
	for i := 0; i < len(secret); i++ {
		c := secret[i]
		switch {
		case c == '-':
			b.WriteByte('_')
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// FetchValues fetches each mapped secret in order and returns the
// variable -> value updates for the merge. A not-found secret is skipped:
// the variable keeps whatever the env file already says. Any other failure
// aborts immediately so the env file is never partially updated.
func FetchValues(ctx context.Context, src secretsource.Source, mappings []Mapping) (map[string]string, error) {
	updates := make(map[string]string, len(mappings))
	for _, m := range mappings {
		value, err := src.Get(ctx, m.Secret)
		if err != nil {
			if secretsource.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("failed to fetch secret %s: %w", m.Secret, err)
		}
		updates[m.Variable] = value
	}
	return updates, nil
}
