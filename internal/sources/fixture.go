package sources

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/systmms/envit/pkg/secretsource"
)

// FixtureSource is the file-backed secret store used for verification. It
// reads a declarative fixture of canonical name=value pairs plus names
// declared to always fail ("!error:name") or always be absent
// ("!missing:name"), so tests can exercise every branch of the fetch
// policy without a remote store.
type FixtureSource struct {
	listed  []string
	values  map[string]string
	errorOn map[string]bool
	missing map[string]bool
}

// NewFixtureSource loads a fixture file. The format is line-oriented and
// case-sensitive: blank lines and '#' comments are ignored, "!error:" and
// "!missing:" prefixes mark special behaviors, and everything else must be
// a name=value pair. Listed names are sorted and de-duplicated.
func NewFixtureSource(path string) (*FixtureSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture secrets file %s: %w", path, err)
	}

	src := &FixtureSource{
		values:  make(map[string]string),
		errorOn: make(map[string]bool),
		missing: make(map[string]bool),
	}

	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if name, ok := strings.CutPrefix(line, "!error:"); ok {
			name = strings.TrimSpace(name)
			src.errorOn[name] = true
			src.listed = append(src.listed, name)
			continue
		}
		if name, ok := strings.CutPrefix(line, "!missing:"); ok {
			name = strings.TrimSpace(name)
			src.missing[name] = true
			src.listed = append(src.listed, name)
			continue
		}

		name, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid fixture entry: %s", line)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid fixture entry (empty name): %s", line)
		}
		src.listed = append(src.listed, name)
		src.values[name] = value
	}

	sort.Strings(src.listed)
	src.listed = dedupe(src.listed)
	return src, nil
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, name := range sorted {
		if i == 0 || sorted[i-1] != name {
			out = append(out, name)
		}
	}
	return out
}

// Name implements secretsource.Source.
func (s *FixtureSource) Name() string {
	return "fixture"
}

// List implements secretsource.Source.
func (s *FixtureSource) List(ctx context.Context) ([]secretsource.Descriptor, error) {
	descriptors := make([]secretsource.Descriptor, len(s.listed))
	for i, name := range s.listed {
		descriptors[i] = secretsource.Descriptor{Name: name}
	}
	return descriptors, nil
}

// Get implements secretsource.Source, honoring the declared !error and
// !missing behaviors.
func (s *FixtureSource) Get(ctx context.Context, name string) (string, error) {
	if s.errorOn[name] {
		return "", fmt.Errorf("fixture induced get error for secret: %s", name)
	}
	if s.missing[name] {
		return "", secretsource.NotFoundError{Source: s.Name(), Name: name}
	}
	value, ok := s.values[name]
	if !ok {
		return "", secretsource.NotFoundError{Source: s.Name(), Name: name}
	}
	return value, nil
}
